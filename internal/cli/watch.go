package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crier/internal/scheduler"
)

func newWatchCmd() *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay running and publish on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			settings, err := loadSettings(logger)
			if err != nil {
				return err
			}
			if err := settings.Validate(!settings.DryRun); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d := buildDriver(settings, settings.DryRun, logger, cmd.OutOrStdout())
			return d.Watch(ctx, schedule)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", scheduler.DefaultSchedule, "cron schedule for publishing runs")
	return cmd
}
