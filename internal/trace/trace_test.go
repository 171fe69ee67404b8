package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeRoutine, false},
		{LevelDetail, ScopeRoutine, true},
		{LevelDetail, ScopeNode, false},
		{LevelDebug, ScopeNode, true},
		{LevelError, ScopeNode, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestStreamSpanAndPoint(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatText)
	span := Begin(tr, ScopePass, "destructors", 0)
	Point(tr, ScopeNode, "sink", span.ID(), "x")
	span.WithExtra("routine", "main").End("ok")

	out := buf.String()
	for _, want := range []string{"→ destructors", "• sink (x)", "← destructors (ok) {routine=main}"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDisabledSpansAreInert(t *testing.T) {
	span := Begin(Nop, ScopeDriver, "unit", 0)
	if span.ID() != 0 || span.WithExtra("k", "v").End("") != 0 {
		t.Fatalf("nop span must be inert")
	}
}

func TestRingWrapsAndMulti(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	var buf bytes.Buffer
	multi := NewMultiTracer(LevelDebug, NewStreamTracer(&buf, LevelDebug, FormatNDJSON), ring)
	for _, name := range []string{"a", "b", "c"} {
		Point(multi, ScopeNode, name, 0, "")
	}
	snap := ring.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("ring snapshot = %+v", snap)
	}
	if got, ok := Ring(multi); !ok || got != ring {
		t.Fatalf("Ring did not find the ring tracer")
	}
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Fatalf("stream got %d lines, want 3", n)
	}
}

func TestContextPropagation(t *testing.T) {
	ctx := context.Background()
	if FromContext(ctx) != Nop {
		t.Fatalf("empty context must yield Nop")
	}
	ring := NewRingTracer(8, LevelDebug)
	ctx = WithTracer(ctx, ring)
	span := Begin(FromContext(ctx), ScopeDriver, "unit", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() {
		t.Fatalf("CurrentSpan = %d, want %d", CurrentSpan(ctx), span.ID())
	}
}

func TestParseHelpers(t *testing.T) {
	if l, err := ParseLevel("DEBUG"); err != nil || l != LevelDebug {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseMode("tape"); err == nil {
		t.Fatalf("expected error for bad mode")
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
}
