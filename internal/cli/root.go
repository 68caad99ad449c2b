// Package cli builds the crier command tree. Commands assemble Settings
// from the environment once, construct the scheduler driver, and hand it
// the terminal; everything below this layer takes explicit configuration.
package cli

import (
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"crier/internal/calendar"
	"crier/internal/ledger"
	"crier/internal/notify"
	"crier/internal/publisher"
	"crier/internal/scheduler"
	"crier/internal/validation"
	"crier/pkg/clients"
	"crier/pkg/config"
	"crier/pkg/logging"
	"crier/pkg/xapi"
)

var (
	envFile      string
	calendarPath string
	verbose      bool
)

// NewRootCmd returns the root command. Bare `crier` performs a scheduled
// run, with DRY_RUN (default true) deciding the mode.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "crier",
		Short:         "Publish a CSV content calendar to X",
		Long:          "crier reads a CSV content calendar, publishes the rows due today to X as single posts or threads, writes the outcome back into the calendar, and keeps append-only CSV logs of successes, errors, and engagement.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, false, false)
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default: .env then .env.local)")
	rootCmd.PersistentFlags().StringVar(&calendarPath, "calendar", "", "calendar CSV path (overrides CALENDAR_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPostCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newSetupCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newAnalyticsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newLogger() logging.Logger {
	logger := logging.NewLogger()
	if verbose {
		logger.SetLevel(logging.DebugLevel)
	}
	return logger
}

// loadSettings folds env files into the process environment and assembles
// Settings. A --env-file that cannot be read is an error; the implicit
// .env/.env.local lookups stay best-effort.
func loadSettings(logger logging.Logger) (config.Settings, error) {
	if envFile != "" {
		if err := config.LoadEnvFile(logger, envFile); err != nil {
			return config.Settings{}, err
		}
	} else {
		config.LoadEnv(logger)
	}

	settings := config.FromEnv()
	if calendarPath != "" {
		settings.CalendarPath = calendarPath
	}
	return settings, nil
}

// resolveMode picks dry-run or live: explicit flags win, otherwise the
// DRY_RUN environment default applies. Live is therefore always opt-in.
func resolveMode(dryRunFlag, liveFlag bool, settings config.Settings) bool {
	switch {
	case dryRunFlag:
		return true
	case liveFlag:
		return false
	default:
		return settings.DryRun
	}
}

func newXClient(settings config.Settings, logger logging.Logger) *xapi.Client {
	execCfg := clients.DefaultHTTPExecutorConfig()
	execCfg.CircuitBreaker = &clients.CircuitBreakerConfig{
		Name:   "x-api",
		Logger: logger,
	}
	return xapi.NewClient(
		xapi.Credentials{
			APIKey:       settings.APIKey,
			APISecret:    settings.APISecret,
			AccessToken:  settings.AccessToken,
			AccessSecret: settings.AccessSecret,
		},
		xapi.WithHTTPExecutorConfig(execCfg),
	)
}

func buildDriver(settings config.Settings, dryRun bool, logger logging.Logger, out io.Writer) *scheduler.Driver {
	client := newXClient(settings, logger)
	led := ledger.New(settings.LedgerDir)
	pub := publisher.New(client, led, logger,
		publisher.WithDelay(settings.PostDelay),
		publisher.WithOutput(out),
	)

	var notifier scheduler.Notifier
	if settings.NotifyConfigured() {
		notifier = notify.NewMailer(settings.SMTP)
	}

	return scheduler.New(scheduler.Config{
		Store:      calendar.NewStore(settings.CalendarPath),
		Validator:  validation.NewCalendarValidator(),
		Publisher:  pub,
		Ledger:     led,
		Engagement: client,
		Notifier:   notifier,
		Logger:     logger,
		Out:        out,
		DryRun:     dryRun,
	})
}

func okMark() string   { return color.GreenString("✓") }
func failMark() string { return color.RedString("✗") }
