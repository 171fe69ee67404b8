package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dtorpass/internal/trace"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("Find = %q, %v, %v", got, ok, err)
	}
	if got != want {
		t.Fatalf("Find = %q, want %q", got, want)
	}
}

func TestDiscoverWithoutFileUsesDefaults(t *testing.T) {
	// a temp dir may still sit below a stray dtorpass.toml; only check when none is found
	dir := t.TempDir()
	if _, ok, _ := Find(dir); ok {
		t.Skip("a dtorpass.toml exists above the temp dir")
	}
	cfg, err := Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
[pass]
perf_hints = false
expand = ["main", "parse"]

[driver]
workers = 3

[trace]
level = "debug"
mode = "both"
output = "trace.ndjson"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.Path = path
	want.Pass.PerfHints = false
	want.Pass.Expand = []string{"main", "parse"}
	want.Driver.Workers = 3
	want.Trace.Level = "debug"
	want.Trace.Mode = "both"
	want.Trace.Output = "trace.ndjson"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	opts := cfg.PassOptions()
	if opts.PerfHints || !opts.CycleWarnings {
		t.Fatalf("pass options = %+v", opts)
	}
	tc := cfg.TraceOptions()
	if tc.Level != trace.LevelDebug || tc.Mode != trace.ModeBoth || tc.OutputPath != "trace.ndjson" || tc.RingSize != 4096 {
		t.Fatalf("trace config = %+v", tc)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[pass\n", "failed to parse TOML"},
		{"unknown key", "[pass]\ninline = true\n", "unknown keys: pass.inline"},
		{"negative workers", "[driver]\nworkers = -1\n", "[driver].workers"},
		{"zero max diagnostics", "[driver]\nmax_diagnostics = 0\n", "[driver].max_diagnostics"},
		{"bad level", "[trace]\nlevel = \"loud\"\n", "[trace].level"},
		{"bad mode", "[trace]\nmode = \"file\"\n", "[trace].mode"},
		{"empty expand", "[pass]\nexpand = [\"\"]\n", "[pass].expand"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tc.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}
