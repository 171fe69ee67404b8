package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestReportOrdersByStart(t *testing.T) {
	tm := NewTimer()
	base := time.Now()
	tm.Record("rewrite b", base.Add(2*time.Millisecond), 3*time.Millisecond, "")
	tm.Record("rewrite a", base, 4*time.Millisecond, "failed")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "rewrite a" || r.Phases[1].Name != "rewrite b" {
		t.Fatalf("phases = %+v", r.Phases)
	}
	if r.TotalMS != 7 {
		t.Fatalf("total = %v, want 7", r.TotalMS)
	}
	if r.WallMS != 5 {
		t.Fatalf("wall = %v, want 5", r.WallMS)
	}
	if got := tm.Slowest(1); len(got) != 1 || got[0].Name != "rewrite a" {
		t.Fatalf("slowest = %+v", got)
	}
	if s := tm.Summary(); !strings.Contains(s, "// failed") || !strings.Contains(s, "wall") {
		t.Fatalf("summary:\n%s", s)
	}
}

func TestBeginEndConcurrent(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.End(tm.Begin("routine"), "")
		}()
	}
	wg.Wait()
	if n := len(tm.Report().Phases); n != 16 {
		t.Fatalf("recorded %d phases, want 16", n)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	tm.Record("y", time.Now(), time.Second, "")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("nil timer reported %+v", r)
	}
}
