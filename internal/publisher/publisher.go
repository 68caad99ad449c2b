// Package publisher turns one calendar entry into platform posts: single
// posts as-is, threads as a chain of replies with a fixed delay between
// parts. Every attempt lands in the ledger, and callers always get a
// Result back rather than a panic.
package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"crier/internal/calendar"
	"crier/internal/ledger"
	"crier/pkg/logging"
)

// PlatformClient is the slice of the platform API publishing needs.
type PlatformClient interface {
	CreatePost(ctx context.Context, text string) (string, error)
	CreateReply(ctx context.Context, text, inReplyToID string) (string, error)
}

// WaitFunc pauses between thread parts. Injected so tests run instantly.
type WaitFunc func(ctx context.Context, d time.Duration)

func defaultWait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Truncate bounds text to the platform character limit; overflowing text is
// cut and given a trailing ellipsis so the result is exactly at the limit.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= calendar.MaxPostLength {
		return text
	}
	return string(runes[:calendar.MaxPostLength-3]) + "..."
}

type Publisher struct {
	client PlatformClient
	ledger *ledger.Ledger
	logger logging.Logger
	delay  time.Duration
	wait   WaitFunc
	out    io.Writer
}

type Option func(*Publisher)

// WithDelay sets the pause between thread parts.
func WithDelay(d time.Duration) Option {
	return func(p *Publisher) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithWaitFunc replaces the inter-part wait.
func WithWaitFunc(wait WaitFunc) Option {
	return func(p *Publisher) {
		if wait != nil {
			p.wait = wait
		}
	}
}

// WithOutput redirects operator-facing preview lines.
func WithOutput(out io.Writer) Option {
	return func(p *Publisher) {
		if out != nil {
			p.out = out
		}
	}
}

func New(client PlatformClient, led *ledger.Ledger, logger logging.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		ledger: led,
		logger: logger,
		delay:  time.Second,
		wait:   defaultWait,
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish dispatches one entry to the platform. Dry runs preview instead of
// posting but still land in the success log with a placeholder ID.
func (p *Publisher) Publish(ctx context.Context, platform calendar.Platform, content string, dryRun bool) Result {
	switch platform {
	case calendar.PlatformPost:
		return p.publishPost(ctx, platform, content, dryRun)
	case calendar.PlatformThread:
		return p.publishThread(ctx, platform, content, dryRun)
	default:
		return p.fail(platform, content, fmt.Sprintf("unsupported platform: %s", platform))
	}
}

func (p *Publisher) publishPost(ctx context.Context, platform calendar.Platform, content string, dryRun bool) Result {
	text := Truncate(content)

	if dryRun {
		fmt.Fprintf(p.out, "[DRY RUN] %s: %s\n", platform, text)
		p.recordSuccess(platform, content, StatusDryRun, ledger.PostIDDryRun)
		return Result{Outcome: OutcomeDryRun}
	}

	id, err := p.client.CreatePost(ctx, text)
	if err != nil {
		return p.fail(platform, content, err.Error())
	}

	p.logger.WithFields(logging.Fields{
		"platform": string(platform),
		"post_id":  id,
	}).Info("published post")
	p.recordSuccess(platform, content, StatusPosted, id)
	return Result{Outcome: OutcomeSuccess, PostIDs: []string{id}}
}

func (p *Publisher) publishThread(ctx context.Context, platform calendar.Platform, content string, dryRun bool) Result {
	parts := calendar.SplitThread(content)

	// dry runs never fail, whatever the content splits to
	if dryRun {
		for i, part := range parts {
			fmt.Fprintf(p.out, "[DRY RUN] %s part %d/%d: %s\n", platform, i+1, len(parts), Truncate(part))
		}
		p.recordSuccess(platform, content, StatusDryRun, ledger.PostIDDryRun)
		return Result{Outcome: OutcomeDryRun}
	}

	if len(parts) == 0 {
		return p.fail(platform, content, "thread content splits to zero parts")
	}

	ids := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			p.wait(ctx, p.delay)
		}

		var id string
		var err error
		if i == 0 {
			id, err = p.client.CreatePost(ctx, Truncate(part))
		} else {
			// each part replies to the one immediately before it
			id, err = p.client.CreateReply(ctx, Truncate(part), ids[len(ids)-1])
		}
		if err != nil {
			if len(ids) > 0 {
				// The posted prefix stays live on the platform but is
				// dropped from the result and never reaches the success
				// log. Surface the gap here; it is otherwise invisible.
				p.logger.WithFields(logging.Fields{
					"platform":          string(platform),
					"posted_parts":      len(ids),
					"total_parts":       len(parts),
					"orphaned_post_ids": strings.Join(ids, ","),
				}).Warn("thread aborted; already published parts stay live and unrecorded")
			}
			return p.fail(platform, content, fmt.Sprintf("thread part %d/%d: %s", i+1, len(parts), err.Error()))
		}
		ids = append(ids, id)
	}

	p.logger.WithFields(logging.Fields{
		"platform": string(platform),
		"parts":    len(ids),
		"post_ids": strings.Join(ids, ","),
	}).Info("published thread")
	p.recordSuccess(platform, content, StatusPosted, strings.Join(ids, ","))
	return Result{Outcome: OutcomeSuccess, PostIDs: ids}
}

func (p *Publisher) recordSuccess(platform calendar.Platform, content, status, postID string) {
	err := p.ledger.AppendSuccess(ledger.SuccessRecord{
		Platform: string(platform),
		Content:  content,
		Status:   status,
		PostID:   postID,
	})
	if err != nil {
		p.logger.WithError(err).Error("failed to record success")
	}
}

func (p *Publisher) fail(platform calendar.Platform, content, message string) Result {
	p.logger.WithFields(logging.Fields{
		"platform": string(platform),
		"error":    message,
	}).Error("publish failed")

	err := p.ledger.AppendError(ledger.ErrorRecord{
		Platform: string(platform),
		Content:  content,
		Message:  message,
	})
	if err != nil {
		p.logger.WithError(err).Error("failed to record error")
	}

	return Result{Outcome: OutcomeFailure, Err: message}
}
