package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"crier/internal/calendar"
	"crier/pkg/logging"
)

// DefaultSchedule fires once a day at 09:00 local time.
const DefaultSchedule = "0 9 * * *"

// tickTimeout bounds one scheduled run.
const tickTimeout = 30 * time.Minute

// Watch runs the driver on a cron schedule until ctx is canceled. A tick
// that finds the calendar still locked by a previous run skips with a
// warning instead of queueing. Returns nil after a clean shutdown.
func (d *Driver) Watch(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	c := cron.New()
	entryID, err := c.AddFunc(schedule, func() {
		// Ticks get their own context so an interrupt lets the in-flight
		// run finish instead of aborting mid-thread.
		tickCtx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()

		if _, err := d.Run(tickCtx); err != nil {
			if errors.Is(err, calendar.ErrLocked) {
				d.logger.Warn("calendar still locked by a previous run; skipping this tick")
				return
			}
			d.logger.WithError(err).Error("scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	c.Start()
	for _, entry := range c.Entries() {
		if entry.ID == entryID {
			d.logger.WithFields(logging.Fields{
				"schedule": schedule,
				"next_run": entry.Next.Format(time.RFC3339),
			}).Info("watch mode started")
		}
	}

	<-ctx.Done()
	d.logger.Info("watch mode stopping")
	<-c.Stop().Done()
	return nil
}
