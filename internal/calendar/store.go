package calendar

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEmptyCalendar is returned when the file holds no data rows.
var ErrEmptyCalendar = errors.New("calendar is empty")

// Store reads and writes the calendar CSV on disk.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the calendar file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the calendar file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Header returns the calendar column header.
func Header() []string {
	return []string{"date_planned", "platform", "content", "status"}
}

// File is a loaded calendar: the header plus raw data rows in file order.
// Rows keep their original field counts so validation can report malformed
// rows and saves can round-trip extra columns.
type File struct {
	Header []string
	Rows   [][]string
}

// Entry parses the data row at index i.
func (f *File) Entry(i int) (Entry, bool) {
	return ParseRow(f.Rows[i])
}

// SetStatus rewrites the status cell of data row i.
func (f *File) SetStatus(i int, status string) {
	if len(f.Rows[i]) >= 4 {
		f.Rows[i][3] = status
	}
}

// Load reads the whole calendar. Returns ErrEmptyCalendar when the file has
// no data rows beneath the header.
func (s *Store) Load() (*File, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrEmptyCalendar
	}

	return &File{Header: records[0], Rows: records[1:]}, nil
}

// Save rewrites the whole calendar through a temp file and rename so a
// crash mid-write never leaves a half-written calendar behind.
func (s *Store) Save(f *File) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".calendar-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to stage calendar write: %w", err)
	}
	tmpPath := tmp.Name()

	writer := csv.NewWriter(tmp)
	records := make([][]string, 0, len(f.Rows)+1)
	records = append(records, f.Header)
	records = append(records, f.Rows...)
	if err := writer.WriteAll(records); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to flush calendar: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace calendar: %w", err)
	}
	return nil
}

// Bootstrap creates a starter calendar with sample rows. The sample dates
// are intentionally in the past so nothing publishes until the operator
// edits the file. Fails if the calendar already exists.
func (s *Store) Bootstrap() error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create calendar: %w", err)
	}

	writer := csv.NewWriter(f)
	err = writer.WriteAll([][]string{
		Header(),
		{"2023-12-15", string(PlatformPost), "This is a test tweet - replace with your content!", StatusTrigger},
		{"2023-12-15", string(PlatformThread), "First part of my thread|||Second part with more details|||Final part with a call to action", StatusTrigger},
	})
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write starter calendar: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to flush starter calendar: %w", err)
	}
	return nil
}
