package calendar

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "content_calendar.csv"))
}

func writeCalendar(t *testing.T, s *Store, lines ...string) {
	t.Helper()
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to seed calendar: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := newTempStore(t)
	if _, err := s.Load(); err == nil {
		t.Fatal("expected error for missing calendar")
	}
	if s.Exists() {
		t.Fatal("expected Exists to be false")
	}
}

func TestLoadHeaderOnlyIsEmpty(t *testing.T) {
	s := newTempStore(t)
	writeCalendar(t, s, "date_planned,platform,content,status")

	_, err := s.Load()
	if !errors.Is(err, ErrEmptyCalendar) {
		t.Fatalf("expected ErrEmptyCalendar, got %v", err)
	}
}

func TestLoadToleratesRaggedRows(t *testing.T) {
	s := newTempStore(t)
	writeCalendar(t, s,
		"date_planned,platform,content,status",
		"2024-06-01,X Tweet,hello,Post Now",
		"2024-06-02,X Tweet,short row",
		"2024-06-03,X Thread,a|||b,Post Now,extra-col",
	)

	f, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(f.Rows))
	}
	if len(f.Rows[1]) != 3 {
		t.Fatalf("expected short row preserved with 3 fields, got %d", len(f.Rows[1]))
	}
	if len(f.Rows[2]) != 5 {
		t.Fatalf("expected wide row preserved with 5 fields, got %d", len(f.Rows[2]))
	}

	entry, ok := f.Entry(2)
	if !ok {
		t.Fatal("expected wide row to parse")
	}
	if len(entry.Extra) != 1 || entry.Extra[0] != "extra-col" {
		t.Fatalf("expected extra column, got %v", entry.Extra)
	}
	if _, ok := f.Entry(1); ok {
		t.Fatal("expected short row to fail parsing")
	}
}

func TestSaveRoundTripsUntouchedRows(t *testing.T) {
	s := newTempStore(t)
	writeCalendar(t, s,
		"date_planned,platform,content,status",
		"2024-06-01,X Tweet,first,Post Now",
		`2024-06-02,X Tweet,"comma, inside",Post Now,keep-me`,
		"2024-06-03,X Thread,a|||b,Draft",
	)

	f, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.SetStatus(0, "Posted")

	if err := s.Save(f); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded, err := s.Load()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := reloaded.Rows[0][3]; got != "Posted" {
		t.Fatalf("expected updated status Posted, got %q", got)
	}
	if got := reloaded.Rows[1][2]; got != "comma, inside" {
		t.Fatalf("expected quoted field preserved, got %q", got)
	}
	if got := reloaded.Rows[1][4]; got != "keep-me" {
		t.Fatalf("expected extra column preserved, got %q", got)
	}
	if got := reloaded.Rows[2][3]; got != "Draft" {
		t.Fatalf("expected untouched status preserved, got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSetStatusIgnoresShortRow(t *testing.T) {
	f := &File{
		Header: Header(),
		Rows:   [][]string{{"2024-06-01", "X Tweet", "short"}},
	}
	f.SetStatus(0, "Posted")
	if len(f.Rows[0]) != 3 {
		t.Fatal("short row must not grow a status cell")
	}
}

func TestBootstrapCreatesStarterCalendar(t *testing.T) {
	s := newTempStore(t)

	if err := s.Bootstrap(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if !s.Exists() {
		t.Fatal("expected calendar to exist after bootstrap")
	}

	f, err := s.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(f.Rows) != 2 {
		t.Fatalf("expected 2 starter rows, got %d", len(f.Rows))
	}
	for i := range f.Rows {
		entry, ok := f.Entry(i)
		if !ok {
			t.Fatalf("starter row %d failed to parse", i)
		}
		if entry.Status != StatusTrigger {
			t.Fatalf("starter row %d status = %q, want trigger", i, entry.Status)
		}
		if !entry.Platform.Valid() {
			t.Fatalf("starter row %d platform %q invalid", i, entry.Platform)
		}
	}
	if parts := SplitThread(f.Rows[1][2]); len(parts) != 3 {
		t.Fatalf("expected 3-part starter thread, got %d", len(parts))
	}
}

func TestBootstrapRefusesExistingCalendar(t *testing.T) {
	s := newTempStore(t)
	writeCalendar(t, s, "date_planned,platform,content,status", "2024-06-01,X Tweet,mine,Draft")

	if err := s.Bootstrap(); err == nil {
		t.Fatal("expected bootstrap to refuse existing calendar")
	}

	f, err := s.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if f.Rows[0][2] != "mine" {
		t.Fatal("bootstrap must not overwrite operator data")
	}
}

func TestLockConflictAndRelease(t *testing.T) {
	s := newTempStore(t)

	lock, err := s.Lock()
	if err != nil {
		t.Fatalf("first lock failed: %v", err)
	}

	if _, err := s.Lock(); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	again, err := s.Lock()
	if err != nil {
		t.Fatalf("expected lock to succeed after release: %v", err)
	}
	if err := again.Release(); err != nil {
		t.Fatalf("second release failed: %v", err)
	}
}
