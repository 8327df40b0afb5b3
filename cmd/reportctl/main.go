// Command reportctl drives the report wizard and the dashboard in-process against seeded data.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(time.Now).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(now func() time.Time) *cobra.Command {
	root := &cobra.Command{
		Use:          "reportctl",
		Short:        "Submit and inspect civic issue reports",
		SilenceUsage: true,
	}
	env := newEnv(now)
	root.AddCommand(
		newSubmitCmd(env),
		newIssuesCmd(env),
		newTrackCmd(env),
	)
	return root
}
