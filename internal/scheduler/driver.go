// Package scheduler drives a full publishing run: load the calendar, gate on
// validation, publish due rows, write statuses back, then fan out to the
// analytics and notification passes. One run holds the calendar lock from
// load to save so overlapping invocations refuse instead of double-posting.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"crier/internal/calendar"
	"crier/internal/ledger"
	"crier/internal/publisher"
	"crier/internal/validation"
	"crier/pkg/logging"
	"crier/pkg/xapi"
)

// Poster is the slice of the publisher the driver needs.
type Poster interface {
	Publish(ctx context.Context, platform calendar.Platform, content string, dryRun bool) publisher.Result
}

// EngagementSource fetches engagement metrics for the analytics pass.
type EngagementSource interface {
	GetEngagement(ctx context.Context, postID string) (xapi.Engagement, error)
}

// Notifier delivers the run summary out of band. Delivery failures are
// logged, never escalated.
type Notifier interface {
	Send(subject, body string) error
}

// RowStatus is the outcome of one publish attempt. Row is the CSV row
// number, counting the header as row 1.
type RowStatus struct {
	Row      int
	Platform calendar.Platform
	Outcome  publisher.Outcome
	Status   string
	Err      string
}

// Summary is the result of one scheduler run.
type Summary struct {
	RunID    string
	Posted   int
	Failed   int
	DryRun   int
	Skipped  int
	Statuses []RowStatus
}

func (s *Summary) record(rs RowStatus) {
	s.Statuses = append(s.Statuses, rs)
	switch rs.Outcome {
	case publisher.OutcomeSuccess:
		s.Posted++
	case publisher.OutcomeDryRun:
		s.DryRun++
	case publisher.OutcomeFailure:
		s.Failed++
	}
}

// Body renders the plain-text run report used for notifications.
func (s Summary) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", s.RunID)
	fmt.Fprintf(&b, "Posted: %d\n", s.Posted)
	fmt.Fprintf(&b, "Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "Dry run: %d\n", s.DryRun)
	fmt.Fprintf(&b, "Skipped: %d\n", s.Skipped)
	if len(s.Statuses) > 0 {
		b.WriteString("\nRows:\n")
		for _, rs := range s.Statuses {
			fmt.Fprintf(&b, "  row %d (%s): %s", rs.Row, rs.Platform, rs.Status)
			if rs.Err != "" {
				fmt.Fprintf(&b, " - %s", rs.Err)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Config wires a Driver. Engagement and Notifier are optional; Clock and
// Out default to time.Now and os.Stdout.
type Config struct {
	Store      *calendar.Store
	Validator  *validation.CalendarValidator
	Publisher  Poster
	Ledger     *ledger.Ledger
	Engagement EngagementSource
	Notifier   Notifier
	Logger     logging.Logger
	Clock      func() time.Time
	Out        io.Writer
	DryRun     bool
}

type Driver struct {
	store      *calendar.Store
	validator  *validation.CalendarValidator
	publisher  Poster
	ledger     *ledger.Ledger
	engagement EngagementSource
	notifier   Notifier
	logger     logging.Logger
	clock      func() time.Time
	out        io.Writer
	dryRun     bool
}

func New(cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Driver{
		store:      cfg.Store,
		validator:  cfg.Validator,
		publisher:  cfg.Publisher,
		ledger:     cfg.Ledger,
		engagement: cfg.Engagement,
		notifier:   cfg.Notifier,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
		out:        cfg.Out,
		dryRun:     cfg.DryRun,
	}
}

// Run executes one full scheduling pass. A missing calendar is bootstrapped
// with sample rows and the run ends there; validation errors block the run
// before any row is published or rewritten.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	log := d.logger.WithFields(logging.Fields{
		"run_id":  summary.RunID,
		"dry_run": d.dryRun,
	})
	log.Info("starting scheduler run")

	if err := d.ledger.EnsureFiles(); err != nil {
		return summary, fmt.Errorf("ensure ledger files: %w", err)
	}

	if !d.store.Exists() {
		if err := d.store.Bootstrap(); err != nil {
			return summary, fmt.Errorf("bootstrap calendar: %w", err)
		}
		fmt.Fprintf(d.out, "Created sample calendar at %s.\n", d.store.Path())
		fmt.Fprintf(d.out, "Edit it, set a row's status to %q, then run again.\n", calendar.StatusTrigger)
		log.WithField("path", d.store.Path()).Info("bootstrapped calendar")
		return summary, nil
	}

	lock, err := d.store.Lock()
	if err != nil {
		return summary, err
	}
	defer func() { _ = lock.Release() }()

	file, err := d.store.Load()
	if err != nil {
		if errors.Is(err, calendar.ErrEmptyCalendar) {
			fmt.Fprintln(d.out, "Calendar is empty; nothing to publish.")
			return summary, nil
		}
		return summary, fmt.Errorf("load calendar: %w", err)
	}

	vres := d.validator.ValidateRows(file.Rows)
	for _, w := range vres.Warnings {
		fmt.Fprintf(d.out, "warning: %s\n", w)
	}
	if !vres.OK() {
		for _, e := range vres.Errors {
			fmt.Fprintf(d.out, "error: %s\n", e)
		}
		return summary, fmt.Errorf("calendar has %d validation error(s); fix them and run again", len(vres.Errors))
	}

	today := d.clock()
	for i := range file.Rows {
		entry, ok := file.Entry(i)
		if !ok || !entry.Due(today) {
			summary.Skipped++
			continue
		}

		rowNum := i + 2
		fmt.Fprintf(d.out, "Processing row %d (%s)\n", rowNum, entry.Platform)

		res := d.publisher.Publish(ctx, entry.Platform, entry.Content, d.dryRun)
		status := res.Status()
		file.SetStatus(i, status)
		summary.record(RowStatus{
			Row:      rowNum,
			Platform: entry.Platform,
			Outcome:  res.Outcome,
			Status:   status,
			Err:      res.Err,
		})
		fmt.Fprintf(d.out, "Row %d: %s\n", rowNum, status)
	}

	if len(summary.Statuses) > 0 {
		if err := d.store.Save(file); err != nil {
			return summary, fmt.Errorf("save calendar: %w", err)
		}
	}

	if !d.dryRun && summary.Posted > 0 && d.engagement != nil {
		n, err := d.RunAnalytics(ctx)
		if err != nil {
			log.WithError(err).Warn("analytics pass failed")
		} else if n > 0 {
			fmt.Fprintf(d.out, "Recorded engagement for %d post(s).\n", n)
		}
	}

	d.notify(summary)

	fmt.Fprintf(d.out, "Run complete: %d posted, %d failed, %d dry-run, %d skipped.\n",
		summary.Posted, summary.Failed, summary.DryRun, summary.Skipped)
	log.WithFields(logging.Fields{
		"posted":  summary.Posted,
		"failed":  summary.Failed,
		"dry_run": summary.DryRun,
		"skipped": summary.Skipped,
	}).Info("scheduler run finished")
	return summary, nil
}

// RunRow publishes one data row immediately, ignoring the due-date gate.
// index is 1-based over data rows, matching the pick list the CLI shows.
func (d *Driver) RunRow(ctx context.Context, index int) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	log := d.logger.WithFields(logging.Fields{
		"run_id":  summary.RunID,
		"dry_run": d.dryRun,
	})

	if err := d.ledger.EnsureFiles(); err != nil {
		return summary, fmt.Errorf("ensure ledger files: %w", err)
	}
	if !d.store.Exists() {
		return summary, fmt.Errorf("calendar not found at %s (run \"crier setup\" first)", d.store.Path())
	}

	lock, err := d.store.Lock()
	if err != nil {
		return summary, err
	}
	defer func() { _ = lock.Release() }()

	file, err := d.store.Load()
	if err != nil {
		return summary, fmt.Errorf("load calendar: %w", err)
	}

	if index < 1 || index > len(file.Rows) {
		return summary, fmt.Errorf("row %d out of range (calendar has %d data rows)", index, len(file.Rows))
	}
	i := index - 1
	entry, ok := file.Entry(i)
	if !ok {
		return summary, fmt.Errorf("row %d is malformed (fewer than 4 columns)", index)
	}

	rowNum := i + 2
	fmt.Fprintf(d.out, "Posting row %d (%s)\n", rowNum, entry.Platform)
	log.WithField("row", rowNum).Info("manual publish")

	res := d.publisher.Publish(ctx, entry.Platform, entry.Content, d.dryRun)
	status := res.Status()
	file.SetStatus(i, status)
	summary.record(RowStatus{
		Row:      rowNum,
		Platform: entry.Platform,
		Outcome:  res.Outcome,
		Status:   status,
		Err:      res.Err,
	})

	if err := d.store.Save(file); err != nil {
		return summary, fmt.Errorf("save calendar: %w", err)
	}

	fmt.Fprintf(d.out, "Row %d: %s\n", rowNum, status)
	return summary, nil
}

func (d *Driver) notify(summary Summary) {
	if d.notifier == nil || len(summary.Statuses) == 0 {
		return
	}
	subject := fmt.Sprintf("crier: %d posted, %d failed", summary.Posted, summary.Failed)
	if err := d.notifier.Send(subject, summary.Body()); err != nil {
		d.logger.WithError(err).Warn("run summary notification failed")
	}
}
