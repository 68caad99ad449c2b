// Package ledger appends publish outcomes to three independent CSV logs:
// successes, errors, and analytics snapshots. Records are append-only and
// never mutated after writing.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	successFile   = "success_log.csv"
	errorFile     = "error_log.csv"
	analyticsFile = "analytics_log.csv"
)

const timestampLayout = "2006-01-02 15:04:05"

// previewLength bounds the content excerpt stored with each record.
const previewLength = 100

// Post ID placeholders written when no live post exists.
const (
	PostIDNone   = "N/A"
	PostIDDryRun = "DryRun"
)

var (
	successHeader   = []string{"Timestamp", "Platform", "Content Preview", "Status", "Post ID"}
	errorHeader     = []string{"Timestamp", "Platform", "Content Preview", "Error Message", "Resolved"}
	analyticsHeader = []string{"Timestamp", "Platform", "Post ID", "Likes", "Retweets", "Replies", "Impressions"}
)

// SuccessRecord notes one published (or dry-run) entry. PostID holds the
// live post ID, a comma-joined ID list for threads, or a placeholder.
type SuccessRecord struct {
	Timestamp time.Time
	Platform  string
	Content   string
	Status    string
	PostID    string
}

// ErrorRecord notes one failed publish attempt. Resolved is always written
// false; the operator flips it by hand after fixing the row.
type ErrorRecord struct {
	Timestamp time.Time
	Platform  string
	Content   string
	Message   string
	Resolved  bool
}

// AnalyticsRecord is one engagement snapshot for one live post.
type AnalyticsRecord struct {
	Timestamp   time.Time
	Platform    string
	PostID      string
	Likes       int
	Retweets    int
	Replies     int
	Impressions int
}

// Ledger owns the three log files inside one directory.
type Ledger struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Ledger {
	return &Ledger{dir: dir}
}

// Dir returns the directory holding the log files.
func (l *Ledger) Dir() string {
	return l.dir
}

// SuccessPath returns the success log location.
func (l *Ledger) SuccessPath() string {
	return filepath.Join(l.dir, successFile)
}

// ErrorPath returns the error log location.
func (l *Ledger) ErrorPath() string {
	return filepath.Join(l.dir, errorFile)
}

// AnalyticsPath returns the analytics log location.
func (l *Ledger) AnalyticsPath() string {
	return filepath.Join(l.dir, analyticsFile)
}

// EnsureFiles creates any missing log files with their headers. Existing
// files are left untouched.
func (l *Ledger) EnsureFiles() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, f := range []struct {
		path   string
		header []string
	}{
		{l.SuccessPath(), successHeader},
		{l.ErrorPath(), errorHeader},
		{l.AnalyticsPath(), analyticsHeader},
	} {
		if err := ensureFile(f.path, f.header); err != nil {
			return err
		}
	}
	return nil
}

// AppendSuccess adds one record to the success log. A zero timestamp is
// filled with the current time.
func (l *Ledger) AppendSuccess(rec SuccessRecord) error {
	return l.appendRow(l.SuccessPath(), successHeader, []string{
		formatTimestamp(rec.Timestamp),
		rec.Platform,
		preview(rec.Content),
		rec.Status,
		rec.PostID,
	})
}

// AppendError adds one record to the error log.
func (l *Ledger) AppendError(rec ErrorRecord) error {
	return l.appendRow(l.ErrorPath(), errorHeader, []string{
		formatTimestamp(rec.Timestamp),
		rec.Platform,
		preview(rec.Content),
		rec.Message,
		formatResolved(rec.Resolved),
	})
}

// AppendAnalytics adds one engagement snapshot to the analytics log.
func (l *Ledger) AppendAnalytics(rec AnalyticsRecord) error {
	return l.appendRow(l.AnalyticsPath(), analyticsHeader, []string{
		formatTimestamp(rec.Timestamp),
		rec.Platform,
		rec.PostID,
		strconv.Itoa(rec.Likes),
		strconv.Itoa(rec.Retweets),
		strconv.Itoa(rec.Replies),
		strconv.Itoa(rec.Impressions),
	})
}

// ReadSuccesses parses the success log back, most recent last. Callers
// decide what to do with placeholder post IDs.
func (l *Ledger) ReadSuccesses() ([]SuccessRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.SuccessPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open success log: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse success log: %w", err)
	}

	records := make([]SuccessRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 5 {
			continue
		}
		ts, _ := time.ParseInLocation(timestampLayout, row[0], time.Local)
		records = append(records, SuccessRecord{
			Timestamp: ts,
			Platform:  row[1],
			Content:   row[2],
			Status:    row[3],
			PostID:    row[4],
		})
	}
	return records, nil
}

// appendRow opens, writes, and closes per record so every outcome survives
// even when a later step crashes the process.
func (l *Ledger) appendRow(path string, header []string, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ensureFile(path, header); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(row); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to %s: %w", filepath.Base(path), err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append to %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", filepath.Base(path), err)
	}
	return nil
}

func ensureFile(path string, header []string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write header to %s: %w", filepath.Base(path), err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write header to %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.Format(timestampLayout)
}

func formatResolved(resolved bool) string {
	if resolved {
		return "Yes"
	}
	return "No"
}

// preview bounds content to the first previewLength characters.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength])
}
