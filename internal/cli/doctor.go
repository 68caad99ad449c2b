package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"crier/internal/calendar"
	"crier/internal/preflight"
	"crier/internal/validation"
	"crier/pkg/config"
)

const apiCheckTimeout = 10 * time.Second

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, calendar, and API access",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			// Doctor diagnoses a broken setup, so it must not die on one: a
			// named env file that is missing becomes a finding, not an error.
			envPath := envFile
			if envPath == "" {
				envPath = ".env"
				config.LoadEnv(logger)
			} else if err := config.LoadEnvFile(logger, envPath); err != nil {
				logger.WithError(err).Debug("env file not loadable")
			}
			settings := config.FromEnv()
			if calendarPath != "" {
				settings.CalendarPath = calendarPath
			}

			summary := &preflight.Summary{}
			summary.Add(preflight.EnvFile(envPath))

			missing := settings.MissingCredentials()
			summary.Add(preflight.Credentials(missing))

			store := calendar.NewStore(settings.CalendarPath)
			summary.Add(preflight.Calendar(store, validation.NewCalendarValidator())...)
			summary.Add(preflight.LedgerDir(settings.LedgerDir))

			if len(missing) > 0 {
				summary.Add(preflight.Check{Name: "x-api", OK: true, Detail: "skipped (credentials incomplete)"})
			} else {
				ctx, cancel := context.WithTimeout(cmd.Context(), apiCheckTimeout)
				defer cancel()
				summary.Add(preflight.API(ctx, newXClient(settings, logger)))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "crier doctor")
			for _, c := range summary.Checks {
				printCheck(out, c)
			}
			fmt.Fprintf(out, "\nSummary: %d/%d checks passed\n", len(summary.Checks)-summary.Failed(), len(summary.Checks))

			if !summary.OK() {
				return fmt.Errorf("%d check(s) failed", summary.Failed())
			}
			return nil
		},
	}
}

func printCheck(out io.Writer, c preflight.Check) {
	mark := okMark()
	if !c.OK {
		mark = failMark()
	}
	if c.Error != "" {
		fmt.Fprintf(out, " %s %-18s %-40s (%s)\n", mark, c.Name, c.Detail, c.Error)
		return
	}
	fmt.Fprintf(out, " %s %-18s %s\n", mark, c.Name, c.Detail)
}
