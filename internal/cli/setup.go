package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"crier/internal/calendar"
	"crier/internal/ledger"
	"crier/pkg/config"
)

const envTemplate = `# X API Configuration
# Get these from https://developer.x.com (app needs read and write access)
X_API_KEY=your_api_key_here
X_API_SECRET=your_api_secret_here
X_ACCESS_TOKEN=your_access_token_here
X_ACCESS_SECRET=your_access_token_secret_here

# App Configuration
# Stay in dry-run mode until the preview looks right.
DRY_RUN=True

# Optional overrides
#CALENDAR_PATH=content_calendar.csv
#LEDGER_DIR=.
#POST_DELAY=1s
#LOG_LEVEL=info
#LOG_FORMAT=text

# Optional run-summary email
#SMTP_HOST=
#SMTP_PORT=587
#SMTP_USER=
#SMTP_PASSWORD=
#NOTIFY_FROM=
#NOTIFY_TO=
`

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Scaffold the calendar, env file, and ledgers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			// Best-effort env load: the file this command scaffolds may not
			// exist yet, so a named file that is missing is fine here.
			envPath := envFile
			if envPath == "" {
				envPath = ".env"
				config.LoadEnv(logger)
			} else if err := config.LoadEnvFile(logger, envPath); err != nil {
				logger.WithError(err).Debug("env file not loadable yet")
			}
			settings := config.FromEnv()
			if calendarPath != "" {
				settings.CalendarPath = calendarPath
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Setting up crier...")

			store := calendar.NewStore(settings.CalendarPath)
			if store.Exists() {
				fmt.Fprintf(out, " %s %s already exists, leaving it alone\n", okMark(), store.Path())
			} else if err := store.Bootstrap(); err != nil {
				return fmt.Errorf("create calendar: %w", err)
			} else {
				fmt.Fprintf(out, " %s created %s with sample rows\n", okMark(), store.Path())
			}

			if _, err := os.Stat(envPath); err == nil {
				fmt.Fprintf(out, " %s %s already exists, leaving it alone\n", okMark(), envPath)
			} else if errors.Is(err, fs.ErrNotExist) {
				if err := os.WriteFile(envPath, []byte(envTemplate), 0o600); err != nil {
					return fmt.Errorf("write %s: %w", envPath, err)
				}
				fmt.Fprintf(out, " %s wrote %s\n", okMark(), envPath)
			} else {
				return fmt.Errorf("stat %s: %w", envPath, err)
			}

			led := ledger.New(settings.LedgerDir)
			if err := led.EnsureFiles(); err != nil {
				return fmt.Errorf("create ledgers: %w", err)
			}
			fmt.Fprintf(out, " %s ledgers ready in %s\n", okMark(), led.Dir())

			fmt.Fprintln(out)
			fmt.Fprintln(out, "NEXT STEPS:")
			fmt.Fprintf(out, " 1. Put your X API keys in %s\n", envPath)
			fmt.Fprintf(out, " 2. Edit %s and set a row's status to %q\n", store.Path(), calendar.StatusTrigger)
			fmt.Fprintln(out, " 3. crier run           (dry run by default)")
			fmt.Fprintln(out, " 4. crier run --live    (once the preview looks right)")
			return nil
		},
	}
}
