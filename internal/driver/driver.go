// Package driver runs the destructor pass over every routine of a unit.
//
// Routines are independent: each gets its own pass instance, diagnostic bag
// and tracing span. The unit's operator table and id generator are shared
// and safe for concurrent use.
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"dtorpass/internal/destructors"
	"dtorpass/internal/diag"
	"dtorpass/internal/ir"
	"dtorpass/internal/observ"
	"dtorpass/internal/prof"
	"dtorpass/internal/trace"
	"dtorpass/internal/unit"
)

// Options configures a driver run.
type Options struct {
	// Workers bounds parallel routines; <= 0 means GOMAXPROCS.
	Workers int
	// MaxDiagnostics caps each routine's bag and the merged bag.
	MaxDiagnostics int
	Pass           destructors.Options
	// Expand lists routines whose before/cfg/after dump is captured.
	Expand []string
	// Timer receives one phase per routine; may be nil.
	Timer *observ.Timer
	// Progress receives routine events; may be nil.
	Progress ProgressSink
}

// RoutineResult is the outcome of one routine.
type RoutineResult struct {
	Routine *ir.Routine
	Result  destructors.Result
	Bag     *diag.Bag
	// Err is set for internal errors; the routine is then failed and its
	// siblings are unaffected.
	Err  error
	Dump []byte
	Dur  time.Duration
}

// Result is the outcome of a unit.
type Result struct {
	Unit     *unit.Unit
	Routines []RoutineResult
	// Bag holds all diagnostics in routine order.
	Bag *diag.Bag
	// GlobalDestroys run at program exit, in routine order.
	GlobalDestroys []*ir.Node
	// Expanded echoes Options.Expand.
	Expanded []string
}

// Failed counts routines that reported an error.
func (r *Result) Failed() int {
	n := 0
	for i := range r.Routines {
		if r.Routines[i].Result.Failed || r.Routines[i].Err != nil {
			n++
		}
	}
	return n
}

// Err joins the internal errors of all routines.
func (r *Result) Err() error {
	var errs []error
	for i := range r.Routines {
		if r.Routines[i].Err != nil {
			errs = append(errs, r.Routines[i].Err)
		}
	}
	return errors.Join(errs...)
}

// Rewritten returns a unit sharing the tables of the input whose routines
// carry the rewritten bodies. Failed routines keep their best-effort body,
// or the original one when none was produced.
func (r *Result) Rewritten() *unit.Unit {
	out := *r.Unit
	out.Routines = make([]*ir.Routine, len(r.Routines))
	for i, rr := range r.Routines {
		cp := *rr.Routine
		if rr.Result.Body != nil {
			cp.Body = rr.Result.Body
		}
		out.Routines[i] = &cp
	}
	return &out
}

// Run rewrites every routine of u. The returned error is non-nil only when
// ctx is cancelled; per-routine failures are recorded in the result.
func Run(ctx context.Context, u *unit.Unit, opts Options) (*Result, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "unit", trace.CurrentSpan(ctx))
	span.WithExtra("unit", u.Name).WithExtra("routines", strconv.Itoa(len(u.Routines)))
	ctx = trace.WithSpan(ctx, span)

	jobs := opts.Workers
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	maxDiag := opts.MaxDiagnostics
	if maxDiag <= 0 {
		maxDiag = 100
	}

	res := &Result{
		Unit:     u,
		Routines: make([]RoutineResult, len(u.Routines)),
		Bag:      diag.NewBag(maxDiag),
		Expanded: opts.Expand,
	}
	env := destructors.Env{
		Types:   u.Types,
		Ops:     u.Ops,
		IDs:     u.IDs,
		Options: opts.Pass,
	}

	for _, r := range u.Routines {
		emit(opts.Progress, Event{Routine: r.Name(), Stage: StageRewrite, Status: StatusQueued})
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(u.Routines))))
	for i, r := range u.Routines {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			prof.Do(gctx, u.Name, r.Name(), func(ctx context.Context) {
				res.Routines[i] = runRoutine(ctx, r, env, opts, maxDiag)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End("cancelled")
		emit(opts.Progress, Event{Stage: StageRewrite, Status: StatusError, Err: err})
		return res, fmt.Errorf("unit %s: %w", u.Name, err)
	}

	for i := range res.Routines {
		rr := &res.Routines[i]
		res.Bag.Merge(rr.Bag)
		res.GlobalDestroys = append(res.GlobalDestroys, rr.Result.GlobalDestroys...)
	}
	span.WithExtra("failed", strconv.Itoa(res.Failed())).End("")
	status := StatusDone
	if res.Failed() > 0 {
		status = StatusError
	}
	emit(opts.Progress, Event{Stage: StageRewrite, Status: status})
	return res, nil
}

func runRoutine(ctx context.Context, r *ir.Routine, env destructors.Env, opts Options, maxDiag int) RoutineResult {
	bag := diag.NewBag(maxDiag)
	env.Reporter = diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	emit(opts.Progress, Event{Routine: r.Name(), Stage: StageRewrite, Status: StatusWorking})

	start := time.Now()
	out, err := destructors.Run(ctx, r, env)
	dur := time.Since(start)

	rr := RoutineResult{Routine: r, Result: out, Bag: bag, Err: err, Dur: dur}
	note := ""
	if out.Failed || err != nil {
		note = "failed"
	}
	opts.Timer.Record("rewrite "+r.Name(), start, dur, note)

	if slices.ContainsFunc(opts.Expand, func(name string) bool { return unit.SameName(name, r.Name()) }) {
		emit(opts.Progress, Event{Routine: r.Name(), Stage: StageExpand, Status: StatusWorking})
		var buf bytes.Buffer
		if derr := destructors.Dump(&buf, r, out, env.Types); derr != nil {
			rr.Err = errors.Join(rr.Err, derr)
		}
		rr.Dump = buf.Bytes()
	}

	final := Event{Routine: r.Name(), Stage: StageRewrite, Status: StatusDone, Elapsed: dur}
	if note != "" || rr.Err != nil {
		final.Status = StatusError
		final.Err = rr.Err
	}
	emit(opts.Progress, final)
	return rr
}
