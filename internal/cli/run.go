package cli

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var dryRun bool
	var live bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Publish everything due today",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, dryRun, live)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview what would be posted without posting")
	cmd.Flags().BoolVar(&live, "live", false, "post for real regardless of DRY_RUN")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "live")
	return cmd
}

func executeRun(cmd *cobra.Command, dryRunFlag, liveFlag bool) error {
	logger := newLogger()
	settings, err := loadSettings(logger)
	if err != nil {
		return err
	}

	dryRun := resolveMode(dryRunFlag, liveFlag, settings)
	if err := settings.Validate(!dryRun); err != nil {
		return err
	}

	d := buildDriver(settings, dryRun, logger, cmd.OutOrStdout())
	_, err = d.Run(cmd.Context())
	return err
}
