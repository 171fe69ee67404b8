package version

import (
	"strings"
	"testing"
)

func TestLine(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})

	tests := []struct {
		name    string
		version string
		commit  string
		date    string
		want    string
	}{
		{"bare", "1.2.3", "", "", "dtorpass 1.2.3"},
		{"commit", "1.2.3-rc.1", "abc123", "", "dtorpass 1.2.3-rc.1 (abc123)"},
		{"commit and date", "0.1.0-dev", "abc123", "2026-01-15", "dtorpass 0.1.0-dev (abc123, 2026-01-15)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			Version, GitCommit, BuildDate = tc.version, tc.commit, tc.date
			if got := Line(false); got != tc.want {
				t.Fatalf("Line = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestColored(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "1.2.3-dev"
	got := Colored(true)
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-dev") {
		t.Fatalf("Colored(true) = %q", got)
	}
	if Colored(false) != Version {
		t.Fatalf("Colored(false) = %q", Colored(false))
	}

	Version = "nightly"
	if Colored(true) != "nightly" {
		t.Fatalf("non-semver version was colored: %q", Colored(true))
	}
}
