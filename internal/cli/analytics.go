package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Record engagement metrics for previously posted content",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			settings, err := loadSettings(logger)
			if err != nil {
				return err
			}
			if missing := settings.MissingCredentials(); len(missing) > 0 {
				return fmt.Errorf("analytics requires credentials, missing: %s", strings.Join(missing, ", "))
			}

			d := buildDriver(settings, settings.DryRun, logger, cmd.OutOrStdout())
			n, err := d.RunAnalytics(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded engagement for %d post(s).\n", n)
			return nil
		},
	}
}
