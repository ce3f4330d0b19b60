package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mentionscope/scanner/internal/workflow"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a scan workflow worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		runner, err := workflow.NewRunner(env.TC, cfg.Temporal.TaskQueue, initActivities(env.Store))
		if err != nil {
			return err
		}
		return runner.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
