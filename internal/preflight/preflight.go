// Package preflight holds the doctor checks: small functions that probe one
// aspect of the setup each and report a Check the CLI can print.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"crier/internal/calendar"
	"crier/internal/validation"
	"crier/pkg/xapi"
)

type Check struct {
	Name   string
	OK     bool
	Detail string
	Error  string
}

type Summary struct {
	Checks []Check
}

func (s *Summary) Add(checks ...Check) {
	s.Checks = append(s.Checks, checks...)
}

// OK reports whether every check passed.
func (s Summary) OK() bool {
	for _, c := range s.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func (s Summary) Failed() int {
	n := 0
	for _, c := range s.Checks {
		if !c.OK {
			n++
		}
	}
	return n
}

// EnvFile reports whether the env file exists. A missing file passes with a
// note; credentials may come straight from the process environment.
func EnvFile(path string) Check {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return Check{Name: "env-file", OK: true, Detail: path}
	case errors.Is(err, fs.ErrNotExist):
		return Check{Name: "env-file", OK: true, Detail: fmt.Sprintf("%s not found (using process environment)", path)}
	default:
		return Check{Name: "env-file", OK: false, Detail: "cannot stat", Error: err.Error()}
	}
}

// Credentials reports whether all four credential keys are set. missing is
// the list of unset key names.
func Credentials(missing []string) Check {
	if len(missing) == 0 {
		return Check{Name: "credentials", OK: true, Detail: "all credential keys set"}
	}
	return Check{Name: "credentials", OK: false, Detail: "missing: " + strings.Join(missing, ", ")}
}

// Calendar checks that the store exists, loads, and validates.
func Calendar(store *calendar.Store, v *validation.CalendarValidator) []Check {
	if !store.Exists() {
		return []Check{{
			Name:   "calendar",
			OK:     false,
			Detail: fmt.Sprintf("%s not found (run \"crier setup\")", store.Path()),
		}}
	}

	file, err := store.Load()
	if err != nil {
		if errors.Is(err, calendar.ErrEmptyCalendar) {
			return []Check{{Name: "calendar", OK: true, Detail: "exists but has no data rows"}}
		}
		return []Check{{Name: "calendar", OK: false, Detail: "cannot load", Error: err.Error()}}
	}

	checks := []Check{{
		Name:   "calendar",
		OK:     true,
		Detail: fmt.Sprintf("%d data row(s)", len(file.Rows)),
	}}

	res := v.ValidateRows(file.Rows)
	content := Check{Name: "calendar-content", OK: res.OK()}
	switch {
	case !res.OK():
		content.Detail = fmt.Sprintf("%d error(s), first: %s", len(res.Errors), res.Errors[0])
	case len(res.Warnings) > 0:
		content.Detail = fmt.Sprintf("no errors, %d warning(s)", len(res.Warnings))
	default:
		content.Detail = "no errors"
	}
	return append(checks, content)
}

// LedgerDir verifies the ledger directory exists and is writable.
func LedgerDir(dir string) Check {
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: "ledger-dir", OK: false, Detail: dir, Error: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: "ledger-dir", OK: false, Detail: fmt.Sprintf("%s is not a directory", dir)}
	}

	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "ledger-dir", OK: false, Detail: "not writable", Error: err.Error()}
	}
	probe.Close()
	os.Remove(probe.Name())
	return Check{Name: "ledger-dir", OK: true, Detail: dir}
}

// IdentitySource is the one platform call the API check needs.
type IdentitySource interface {
	Me(ctx context.Context) (xapi.User, error)
}

// API verifies the credentials against the authenticated-user endpoint.
func API(ctx context.Context, client IdentitySource) Check {
	user, err := client.Me(ctx)
	if err != nil {
		return Check{Name: "x-api", OK: false, Detail: "credential check failed", Error: err.Error()}
	}
	return Check{Name: "x-api", OK: true, Detail: fmt.Sprintf("authenticated as @%s", user.Username)}
}
