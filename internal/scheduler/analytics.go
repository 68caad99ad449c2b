package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crier/internal/calendar"
	"crier/internal/ledger"
	"crier/pkg/logging"
)

// RunAnalytics reads the success log and appends one engagement snapshot
// per live post. Placeholder IDs (absent, dry run) are skipped and thread
// records fan out to one lookup per part ID. Per-post failures are logged
// and skipped; the pass only errors when the log itself is unreadable.
func (d *Driver) RunAnalytics(ctx context.Context) (int, error) {
	if d.engagement == nil {
		return 0, errors.New("engagement source not configured")
	}

	records, err := d.ledger.ReadSuccesses()
	if err != nil {
		return 0, fmt.Errorf("read success log: %w", err)
	}

	appended := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return appended, err
		}
		if rec.PostID == "" || rec.PostID == ledger.PostIDNone || rec.PostID == ledger.PostIDDryRun {
			continue
		}
		if !calendar.Platform(rec.Platform).Valid() {
			continue
		}

		for _, id := range strings.Split(rec.PostID, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}

			eng, err := d.engagement.GetEngagement(ctx, id)
			if err != nil {
				d.logger.WithError(err).WithField("post_id", id).Warn("engagement lookup failed")
				continue
			}

			err = d.ledger.AppendAnalytics(ledger.AnalyticsRecord{
				Platform:    rec.Platform,
				PostID:      id,
				Likes:       eng.Likes,
				Retweets:    eng.Retweets,
				Replies:     eng.Replies,
				Impressions: eng.Impressions,
			})
			if err != nil {
				d.logger.WithError(err).WithField("post_id", id).Error("failed to record engagement")
				continue
			}
			appended++
		}
	}

	d.logger.WithFields(logging.Fields{
		"posts":   appended,
		"sourced": len(records),
	}).Info("analytics pass finished")
	return appended, nil
}
