// Package trace records what the destructor pass is doing while it runs.
//
// Events form spans (begin/end pairs) and instant points. The driver opens a
// span per unit, the pass one per routine, and at debug level every
// move/copy/sink decision is emitted as a point under its routine span.
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: ring buffer only, dumped when a routine hits an internal error
//   - LevelPhase: driver and pass boundaries
//   - LevelDetail: one span per routine
//   - LevelDebug: node-level decisions
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "destructors", parent)
//	defer span.End("")
package trace
