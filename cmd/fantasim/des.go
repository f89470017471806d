package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/des"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/internal/ids"
)

func newDESCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "des", Short: "Run the discrete-event simulation scheduler"}

	var endTick int64
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Drain the scheduler's work queue up to --end-tick, appending resulting truth events",
		RunE: func(cmd *cobra.Command, args []string) error {
			sched := des.NewScheduler(nil)
			dispatcher := des.NewDispatcher()
			// No handlers are registered by the bare CLI invocation: a
			// real deployment registers its own simulation-specific
			// handlers at wiring time. This command exists to exercise
			// the scheduler/dispatcher/appender plumbing end to end.
			opts := des.RunOptions{StartTick: 0, EndTick: ids.Tick(endTick)}
			if err := des.Run(cmd.Context(), sched, dispatcher, rawEventStore, opts, log.WithField("component", "des")); err != nil {
				return &cliError{code: exitIOError, err: err}
			}
			fmt.Fprintln(os.Stdout, "des run complete")
			return nil
		},
	}
	runCmd.Flags().Int64Var(&endTick, "end-tick", 0, "last tick (inclusive) to process")

	cmd.AddCommand(runCmd)
	return cmd
}
