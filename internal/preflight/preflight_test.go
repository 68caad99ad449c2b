package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crier/internal/calendar"
	"crier/internal/validation"
	"crier/pkg/xapi"
)

func TestCredentials(t *testing.T) {
	check := Credentials(nil)
	if !check.OK {
		t.Fatalf("expected all-set credentials to pass, got %#v", check)
	}

	check = Credentials([]string{"X_API_KEY", "X_ACCESS_SECRET"})
	if check.OK {
		t.Fatalf("expected missing credentials to fail, got %#v", check)
	}
	if !strings.Contains(check.Detail, "X_API_KEY") {
		t.Fatalf("expected missing key names in detail, got %q", check.Detail)
	}
}

func TestEnvFileMissingPasses(t *testing.T) {
	check := EnvFile(filepath.Join(t.TempDir(), ".env"))
	if !check.OK {
		t.Fatalf("missing env file should pass with a note, got %#v", check)
	}
	if !strings.Contains(check.Detail, "process environment") {
		t.Fatalf("expected fallback note, got %q", check.Detail)
	}
}

func TestCalendarMissing(t *testing.T) {
	store := calendar.NewStore(filepath.Join(t.TempDir(), "content_calendar.csv"))
	checks := Calendar(store, validation.NewCalendarValidator())
	if len(checks) != 1 || checks[0].OK {
		t.Fatalf("expected single failing check for a missing calendar, got %#v", checks)
	}
}

func TestCalendarWithErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content_calendar.csv")
	data := "date_planned,platform,content,status\nnot-a-date,X Tweet,hello,\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	checks := Calendar(calendar.NewStore(path), validation.NewCalendarValidator())
	if len(checks) != 2 {
		t.Fatalf("expected load + content checks, got %#v", checks)
	}
	if !checks[0].OK {
		t.Fatalf("load check should pass, got %#v", checks[0])
	}
	if checks[1].OK {
		t.Fatalf("content check should fail on a bad date, got %#v", checks[1])
	}
	if !strings.Contains(checks[1].Detail, "Row 2") {
		t.Fatalf("expected first error in detail, got %q", checks[1].Detail)
	}
}

func TestLedgerDirWritable(t *testing.T) {
	check := LedgerDir(t.TempDir())
	if !check.OK {
		t.Fatalf("temp dir should be writable, got %#v", check)
	}

	check = LedgerDir(filepath.Join(t.TempDir(), "absent"))
	if check.OK {
		t.Fatalf("missing dir should fail, got %#v", check)
	}
}

type fakeIdentity struct {
	user xapi.User
	err  error
}

func (f fakeIdentity) Me(_ context.Context) (xapi.User, error) {
	return f.user, f.err
}

func TestAPI(t *testing.T) {
	check := API(context.Background(), fakeIdentity{user: xapi.User{Username: "crier_bot"}})
	if !check.OK || !strings.Contains(check.Detail, "@crier_bot") {
		t.Fatalf("expected authenticated check, got %#v", check)
	}

	check = API(context.Background(), fakeIdentity{err: errors.New("401 Unauthorized")})
	if check.OK || check.Error == "" {
		t.Fatalf("expected failing check with error, got %#v", check)
	}
}

func TestSummaryOK(t *testing.T) {
	var s Summary
	s.Add(Check{Name: "a", OK: true}, Check{Name: "b", OK: true})
	if !s.OK() || s.Failed() != 0 {
		t.Fatalf("expected all-pass summary, got %#v", s)
	}

	s.Add(Check{Name: "c", OK: false})
	if s.OK() || s.Failed() != 1 {
		t.Fatalf("expected one failure, got %#v", s)
	}
}
