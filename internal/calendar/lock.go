package calendar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrLocked means another run currently holds the calendar.
var ErrLocked = errors.New("calendar locked by another run")

// FileLock is an advisory lock next to the calendar file. It exists so
// overlapping invocations (cron firing while a manual run is active)
// refuse to start instead of double-posting.
type FileLock struct {
	path string
}

// Lock acquires the advisory lock, creating <calendar>.lock exclusively
// with the holder PID inside.
func (s *Store) Lock() (*FileLock, error) {
	lockPath := s.path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w (%s exists; remove it if no run is active)", ErrLocked, lockPath)
		}
		return nil, fmt.Errorf("failed to acquire calendar lock: %w", err)
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write calendar lock: %w", err)
	}
	return &FileLock{path: lockPath}, nil
}

// Release removes the lock file.
func (l *FileLock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to release calendar lock: %w", err)
	}
	return nil
}
