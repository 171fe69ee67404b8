package ir

// Routine is one procedure body handed to the pass.
type Routine struct {
	Sym    *Symbol
	Params []*Symbol
	Result *Symbol // nil for routines without a result
	Body   *Node
}

// Name returns the routine name.
func (r *Routine) Name() string {
	if r == nil || r.Sym == nil {
		return ""
	}
	return r.Sym.Name
}
