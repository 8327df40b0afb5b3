package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"civicfix-backend/internal/issues"
)

func newIssuesCmd(e *env) *cobra.Command {
	var filter issues.Filter
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List dashboard issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := e.issues.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			stats, err := e.issues.Stats(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSEVERITY\tVOTES\tREPORTED\tTITLE")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					it.ID, it.Status, it.Severity, it.Votes, humanize.RelTime(it.CreatedAt, e.now(), "ago", "from now"), it.Title)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d shown, %d total: %d resolved, %d in progress, %d pending\n",
				len(items), stats.Total, stats.Resolved, stats.InProgress, stats.Pending)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Status, "status", "all", "all, pending, in-progress or resolved")
	cmd.Flags().StringVar(&filter.Query, "q", "", "case-insensitive title search")
	return cmd
}
