package version

import "testing"

func TestGetInfoDefaults(t *testing.T) {
	info := GetInfo()
	if info.Version != Version || info.GitCommit != GitCommit || info.BuildDate != BuildDate {
		t.Fatalf("GetInfo should mirror the package variables, got %+v", info)
	}
	if info.Version == "" {
		t.Fatalf("expected a non-empty default version")
	}
}

func TestGetShortCommit(t *testing.T) {
	orig := GitCommit
	defer func() { GitCommit = orig }()

	GitCommit = "abcdef123456"
	if got := GetShortCommit(); got != "abcdef1" {
		t.Fatalf("expected abcdef1, got %q", got)
	}

	GitCommit = "abc"
	if got := GetShortCommit(); got != "abc" {
		t.Fatalf("short hashes pass through, got %q", got)
	}
}
