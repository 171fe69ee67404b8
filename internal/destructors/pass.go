// Package destructors injects lifecycle operator calls into a typed routine
// body: every owning value is sunk, copied or destroyed exactly once on each
// control path.
//
// The pass reads the routine, a control-flow graph built from it and the
// operator table, and returns a new tree; the input is never mutated.
// One pass instance handles one routine. Instances share only the operator
// table (internally locked) and the symbol id generator (atomic), so
// routines can be processed in parallel.
package destructors

import (
	"context"
	"fmt"
	"strconv"

	"dtorpass/internal/cfg"
	"dtorpass/internal/diag"
	"dtorpass/internal/ir"
	"dtorpass/internal/liveness"
	"dtorpass/internal/ops"
	"dtorpass/internal/trace"
	"dtorpass/internal/types"
)

// Options toggles advisory diagnostics.
type Options struct {
	// PerfHints reports implicit copies into sink parameters.
	PerfHints bool
	// CycleWarnings reports assignments that close a reference cycle.
	CycleWarnings bool
}

// DefaultOptions enables every advisory diagnostic.
func DefaultOptions() Options {
	return Options{PerfHints: true, CycleWarnings: true}
}

// Env is everything a pass instance needs besides the routine.
type Env struct {
	Types    *types.Table
	Ops      *ops.Table
	IDs      *ir.IDGen
	Reporter diag.Reporter
	Options  Options
}

// Result is the outcome of one routine.
type Result struct {
	Body *ir.Node
	// GlobalDestroys are destroy calls for globals declared at the top
	// scope of the routine; the unit runs them at program exit.
	GlobalDestroys []*ir.Node
	// Failed is set when an error was reported; Body is then best effort.
	Failed bool
	// Temps counts the temporaries the pass introduced.
	Temps int
	Graph *cfg.Graph
}

// InternalError is raised (as a panic) when the rewriter meets a node it has
// no rule for. Run recovers it at the routine boundary.
type InternalError struct {
	Node *ir.Node
	Msg  string
}

func (e *InternalError) Error() string {
	if e.Node == nil {
		return "destructors: " + e.Msg
	}
	return fmt.Sprintf("destructors: %s (node %s at %s)", e.Msg, e.Node.Kind, e.Node.Span)
}

func internalError(n *ir.Node, format string, args ...any) {
	panic(&InternalError{Node: n, Msg: fmt.Sprintf(format, args...)})
}

type mode uint8

const (
	normal mode = iota
	consumed
	sinkArg
)

func (m mode) String() string {
	switch m {
	case normal:
		return "normal"
	case consumed:
		return "consumed"
	case sinkArg:
		return "sinkArg"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// pass is the per-routine state.
type pass struct {
	env     Env
	types   *types.Table
	routine *ir.Routine
	owner   *ir.Symbol
	oracle  *liveness.Oracle
	printer ir.Printer

	scopes []scope

	inLoop     int
	inLoopCond int
	temps      int
	names      map[string]int
	declared   map[*ir.Symbol]scopeID
	otherRead  *ir.Node

	globals []*ir.Node
	failed  bool

	tracer trace.Tracer
	span   *trace.Span
}

// Run rewrites r. The error is non-nil only for internal errors; user
// errors are reported through env.Reporter and flagged in Result.Failed.
func Run(ctx context.Context, r *ir.Routine, env Env) (res Result, err error) {
	if r == nil || r.Body == nil {
		return Result{}, fmt.Errorf("destructors: routine without body")
	}
	if r.Sym.Has(ir.SymGenerated) {
		// synthesized operators are already in final form
		return Result{Body: r.Body}, nil
	}
	if env.Types == nil {
		env.Types = env.Ops.Types()
	}
	if env.Reporter == nil {
		env.Reporter = diag.NopReporter{}
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "destructors", trace.CurrentSpan(ctx))
	span.WithExtra("routine", r.Name())
	defer func() {
		span.WithExtra("temps", strconv.Itoa(res.Temps))
		if res.Failed {
			span.End("failed")
		} else {
			span.End("")
		}
	}()

	var g *cfg.Graph
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		ie, ok := rec.(*InternalError)
		if !ok {
			// runtime faults on a malformed tree stay inside this routine
			ie = &InternalError{Msg: fmt.Sprint(rec)}
		}
		pos := r.Sym.Span
		if ie.Node != nil {
			pos = ie.Node.Span.Or(pos)
		}
		diag.ReportError(env.Reporter, diag.DtorInternal, pos, ie.Msg+"; routine: "+r.Name()).Emit()
		res = Result{Failed: true, Graph: g}
		err = fmt.Errorf("routine %s: %w", r.Name(), ie)
	}()

	cfgSpan := trace.Begin(tracer, trace.ScopeRoutine, "cfg", span.ID())
	g = cfg.Build(r, env.Types)
	cfgSpan.WithExtra("instrs", strconv.Itoa(g.Len())).End("")

	c := &pass{
		env:      env,
		types:    env.Types,
		routine:  r,
		owner:    r.Sym,
		oracle:   liveness.New(g),
		printer:  ir.Printer{Types: env.Types},
		names:    make(map[string]int),
		declared: make(map[*ir.Symbol]scopeID),
		tracer:   tracer,
	}
	res.Graph = g

	rwSpan := trace.Begin(tracer, trace.ScopeRoutine, "rewrite", span.ID())
	c.span = rwSpan
	top := c.openScope(noScope)
	body := c.p(r.Body, top, normal)
	for _, prm := range r.Params {
		if prm.Has(ir.SymSink) && c.hasDestructor(prm.Type) {
			c.scope(top).final = append(c.scope(top).final, c.genDestroy(c.sym(prm, prm.Span)))
		}
	}
	res.Body = c.processScope(top, body)
	rwSpan.End("")

	res.GlobalDestroys = c.globals
	res.Failed = c.failed
	res.Temps = c.temps
	return res, nil
}
