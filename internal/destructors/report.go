package destructors

import (
	"dtorpass/internal/diag"
	"dtorpass/internal/ir"
	"dtorpass/internal/source"
	"dtorpass/internal/trace"
)

// errorAt reports a hard error; the routine is then marked failed.
func (c *pass) errorAt(code diag.Code, at source.Span, msg string, notes ...diag.Note) {
	c.failed = true
	b := diag.ReportError(c.env.Reporter, code, at.Or(c.owner.Span), msg)
	for _, n := range notes {
		b.WithNote(n.Span, n.Msg)
	}
	b.Emit()
	trace.Point(c.tracer, trace.ScopeRoutine, "error", c.spanID(), code.ID())
}

func (c *pass) warn(code diag.Code, at source.Span, msg string) {
	diag.ReportWarning(c.env.Reporter, code, at.Or(c.owner.Span), msg).Emit()
}

func (c *pass) hint(code diag.Code, at source.Span, msg string) {
	diag.ReportHint(c.env.Reporter, code, at.Or(c.owner.Span), msg).Emit()
}

func (c *pass) spanID() uint64 {
	if c.span == nil {
		return 0
	}
	return c.span.ID()
}

// point traces one move/copy decision on n.
func (c *pass) point(decision string, n *ir.Node) {
	if c.tracer == nil || !c.tracer.Enabled() || !c.tracer.Level().ShouldEmit(trace.ScopeNode) {
		return
	}
	trace.Point(c.tracer, trace.ScopeNode, decision, c.spanID(), c.printer.Expr(n))
}
