package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Settings is the fully resolved runtime configuration. It is assembled once
// at startup and handed down explicitly; nothing below the command layer
// reads the process environment.
type Settings struct {
	CalendarPath string `validate:"required"`
	LedgerDir    string `validate:"required"`

	// DryRun defaults to true; a live run must be requested explicitly
	// via flag or DRY_RUN=false.
	DryRun    bool
	PostDelay time.Duration `validate:"min=0"`

	// X API user-context credentials (OAuth 1.0a)
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string

	SMTP SMTPSettings
}

// SMTPSettings configures the optional run-summary email.
type SMTPSettings struct {
	Host     string
	Port     int    `validate:"min=0,max=65535"`
	Username string
	Password string
	From     string `validate:"omitempty,email"`
	To       string `validate:"omitempty,email"`
}

// FromEnv assembles Settings from the process environment.
// Call LoadEnv first so .env files are folded in.
func FromEnv() Settings {
	return Settings{
		CalendarPath: GetEnv("CALENDAR_PATH", "content_calendar.csv"),
		LedgerDir:    GetEnv("LEDGER_DIR", "."),
		DryRun:       GetEnvBool("DRY_RUN", true),
		PostDelay:    GetEnvDuration("POST_DELAY", time.Second),
		APIKey:       GetEnv("X_API_KEY", ""),
		APISecret:    GetEnv("X_API_SECRET", ""),
		AccessToken:  GetEnv("X_ACCESS_TOKEN", ""),
		AccessSecret: GetEnv("X_ACCESS_SECRET", ""),
		SMTP: SMTPSettings{
			Host:     GetEnv("SMTP_HOST", ""),
			Port:     GetEnvInt("SMTP_PORT", 587),
			Username: GetEnv("SMTP_USER", ""),
			Password: GetEnv("SMTP_PASSWORD", ""),
			From:     GetEnv("NOTIFY_FROM", ""),
			To:       GetEnv("NOTIFY_TO", ""),
		},
	}
}

// MissingCredentials returns the env keys of unset X API credentials.
func (s Settings) MissingCredentials() []string {
	var missing []string
	if strings.TrimSpace(s.APIKey) == "" {
		missing = append(missing, "X_API_KEY")
	}
	if strings.TrimSpace(s.APISecret) == "" {
		missing = append(missing, "X_API_SECRET")
	}
	if strings.TrimSpace(s.AccessToken) == "" {
		missing = append(missing, "X_ACCESS_TOKEN")
	}
	if strings.TrimSpace(s.AccessSecret) == "" {
		missing = append(missing, "X_ACCESS_SECRET")
	}
	return missing
}

// Validate checks structural constraints, and for live runs that the
// platform credentials are all present.
func (s Settings) Validate(live bool) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("settings validation failed: %w", err)
	}
	if live {
		if missing := s.MissingCredentials(); len(missing) > 0 {
			return fmt.Errorf("live run requires credentials, missing: %s", strings.Join(missing, ", "))
		}
	}
	return nil
}

// NotifyConfigured reports whether the run-summary email can be sent.
func (s Settings) NotifyConfigured() bool {
	return s.SMTP.Host != "" && s.SMTP.To != ""
}
