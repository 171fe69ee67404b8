package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dtorpass/internal/diag"
	"dtorpass/internal/source"
)

func sampleBag() (*diag.Bag, *source.FileSet) {
	fs := source.NewFileSet()
	file := fs.Add("/home/user/project/src/main.dt")
	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevError, diag.DtorOpUnavailable, source.Span{File: file, Line: 3, Col: 5},
		"'=copy' is not available for type <Handle>").
		WithNote(source.Span{File: file, Line: 7, Col: 2}, "another read is done here").
		WithNote(source.Span{}, "try to make p a 'sink' parameter"))
	bag.Add(diag.New(diag.SevHint, diag.DtorImplicitCopy, source.Span{File: file, Line: 9, Col: 1},
		"passing 'x' to a sink parameter introduces an implicit copy"))
	return bag, fs
}

func TestPretty(t *testing.T) {
	bag, fs := sampleBag()
	tests := []struct {
		name string
		opts PrettyOpts
		want string
	}{
		{
			name: "notes",
			opts: PrettyOpts{PathMode: PathModeBasename, ShowNotes: true},
			want: strings.Join([]string{
				"main.dt:3:5: ERROR DTR5001: '=copy' is not available for type <Handle>",
				"  = lifecycle operator is not available",
				"  main.dt:7:2: note: another read is done here",
				"  note: try to make p a 'sink' parameter",
				"main.dt:9:1: HINT DTR5100: passing 'x' to a sink parameter introduces an implicit copy",
				"  = implicit copy into sink parameter",
				"",
			}, "\n"),
		},
		{
			name: "short",
			opts: PrettyOpts{PathMode: PathModeRelative, BaseDir: "/home/user/project", Short: true, ShowNotes: true},
			want: strings.Join([]string{
				"src/main.dt:3:5: ERROR DTR5001: '=copy' is not available for type <Handle>",
				"src/main.dt:9:1: HINT DTR5100: passing 'x' to a sink parameter introduces an implicit copy",
				"",
			}, "\n"),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Pretty(&buf, bag, fs, tc.opts); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, buf.String()); diff != "" {
				t.Fatalf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrettyColor(t *testing.T) {
	bag, fs := sampleBag()
	var plain, colored bytes.Buffer
	if err := Pretty(&plain, bag, fs, PrettyOpts{}); err != nil {
		t.Fatal(err)
	}
	if err := Pretty(&colored, bag, fs, PrettyOpts{Color: true}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Errorf("plain output has escapes: %q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Errorf("colored output has no escapes: %q", colored.String())
	}
}

func TestSummary(t *testing.T) {
	bag, _ := sampleBag()
	var buf bytes.Buffer
	if err := Summary(&buf, bag, false); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "1 error, 0 warnings, 1 hint\n"; got != want {
		t.Fatalf("Summary = %q, want %q", got, want)
	}
	buf.Reset()
	if err := Summary(&buf, diag.NewBag(1), false); err != nil || buf.Len() != 0 {
		t.Fatalf("empty bag summary = %q, %v", buf.String(), err)
	}
}

func TestJSON(t *testing.T) {
	bag, fs := sampleBag()
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{PathMode: PathModeBasename, IncludeNotes: true, Max: 1}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	want := DiagnosticsOutput{
		Count: 1,
		Diagnostics: []DiagnosticJSON{{
			Severity: "ERROR",
			Code:     "DTR5001",
			Title:    "lifecycle operator is not available",
			Message:  "'=copy' is not available for type <Handle>",
			Location: LocationJSON{File: "main.dt", Line: 3, Col: 5},
			Notes: []NoteJSON{
				{Message: "another read is done here", Location: &LocationJSON{File: "main.dt", Line: 7, Col: 2}},
				{Message: "try to make p a 'sink' parameter"},
			},
		}},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("JSON mismatch (-want +got):\n%s", diff)
	}
}
