package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"civicfix-backend/internal/tracking"
)

var stepMarks = map[tracking.StepStatus]string{
	tracking.StepCompleted: "[x]",
	tracking.StepCurrent:   "[>]",
	tracking.StepPending:   "[ ]",
}

func newTrackCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "track TICKET",
		Short: "Show the progress timeline of a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := e.tracking.Track(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s (%s)\n", report.Issue.ID, report.Issue.Title, report.Issue.Status)
			for _, ev := range report.Timeline {
				fmt.Fprintf(out, "%s %-22s %s\n", stepMarks[ev.Status], ev.Title, ev.Timestamp)
				fmt.Fprintf(out, "    %s\n", ev.Description)
			}
			return nil
		},
	}
}
