// Package calendar models the CSV content calendar: one row per planned
// post, selected for publishing by status and planned date.
package calendar

import (
	"strings"
	"time"
)

// DateLayout is the planned-date format in the calendar.
const DateLayout = "2006-01-02"

// StatusTrigger marks a row as ready for the next scheduled run.
const StatusTrigger = "Post Now"

// ThreadDelimiter separates thread parts inside a single content cell.
const ThreadDelimiter = "|||"

// MaxPostLength is the platform character limit per post. Content over the
// limit is flagged at validation and truncated at publish.
const MaxPostLength = 280

// Platform names a supported publishing target.
type Platform string

const (
	PlatformPost   Platform = "X Tweet"
	PlatformThread Platform = "X Thread"
)

// Platforms returns the supported platform labels.
func Platforms() []Platform {
	return []Platform{PlatformPost, PlatformThread}
}

// Valid reports whether the platform is supported.
func (p Platform) Valid() bool {
	switch p {
	case PlatformPost, PlatformThread:
		return true
	default:
		return false
	}
}

// IsThread reports whether content is split and published as a thread.
func (p Platform) IsThread() bool {
	return p == PlatformThread
}

// Entry is one parsed calendar row. Extra preserves any columns beyond the
// four known ones so a save never loses operator data.
type Entry struct {
	PlannedDate string
	Platform    Platform
	Content     string
	Status      string
	Extra       []string
}

// ParseRow converts a raw CSV row into an Entry. Returns false when the row
// has fewer than four fields. All fields are kept verbatim: the status and
// platform gates compare literal cell values, so padding makes a row
// invalid rather than silently matching.
func ParseRow(row []string) (Entry, bool) {
	if len(row) < 4 {
		return Entry{}, false
	}
	e := Entry{
		PlannedDate: row[0],
		Platform:    Platform(row[1]),
		Content:     row[2],
		Status:      row[3],
	}
	if len(row) > 4 {
		e.Extra = row[4:]
	}
	return e, true
}

// Due reports whether the entry should publish on the given day: the status
// must literally equal the trigger and the planned date must parse and
// match. Rows with unparseable dates are never due.
func (e Entry) Due(today time.Time) bool {
	if e.Status != StatusTrigger {
		return false
	}
	planned, err := time.Parse(DateLayout, e.PlannedDate)
	if err != nil {
		return false
	}
	return planned.Format(DateLayout) == today.Format(DateLayout)
}

// SplitThread breaks thread content into parts: split on the delimiter,
// trim whitespace, drop empties.
func SplitThread(content string) []string {
	parts := strings.Split(content, ThreadDelimiter)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
