// Package observ collects phase timings of a driver run.
package observ

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// Phase records the duration and metadata of one step: loading a unit,
// rewriting a routine, writing results.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks phase durations. Routines are rewritten in parallel, so the
// timer is safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	if t == nil {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Record adds a phase measured elsewhere, e.g. by a worker goroutine.
func (t *Timer) Record(name string, start time.Time, dur time.Duration, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: start, Dur: dur, Note: note})
}

// Summary returns a human-readable table of the tracked phases in start order.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-24s %8.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-24s %8.2f ms\n", "wall", report.WallMS)
	return sb.String()
}

// PhaseReport is the serializable form of one phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates the timer. TotalMS sums phase durations, which exceeds
// WallMS when routines overlap.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	WallMS  float64       `json:"wall_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report snapshots the phases ordered by start time.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	phases := slices.Clone(t.phases)
	t.mu.Unlock()
	if len(phases) == 0 {
		return Report{}
	}
	slices.SortStableFunc(phases, func(a, b Phase) int {
		return a.Start.Compare(b.Start)
	})
	report := Report{
		Phases: make([]PhaseReport, len(phases)),
	}
	var total time.Duration
	first, last := phases[0].Start, phases[0].Start
	for i, phase := range phases {
		total += phase.Dur
		last = maxTime(last, phase.Start.Add(phase.Dur))
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	report.WallMS = durationToMillis(last.Sub(first))
	return report
}

// Slowest returns the n longest phases, longest first.
func (t *Timer) Slowest(n int) []PhaseReport {
	phases := t.Report().Phases
	slices.SortStableFunc(phases, func(a, b PhaseReport) int {
		return cmp.Compare(b.DurationMS, a.DurationMS)
	})
	return phases[:min(n, len(phases))]
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
