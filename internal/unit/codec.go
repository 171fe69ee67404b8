package unit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"dtorpass/internal/ir"
	"dtorpass/internal/ops"
	"dtorpass/internal/source"
	"dtorpass/internal/types"
)

// SchemaVersion is bumped whenever the wire layout changes.
const SchemaVersion uint16 = 1

var (
	// ErrSchema reports a unit file written with another schema version.
	ErrSchema = errors.New("unit: schema version mismatch")
	// ErrCorrupt reports a payload whose references do not resolve.
	ErrCorrupt = errors.New("unit: corrupt payload")
)

// payload is the on-disk form. Symbols are stored once and referenced by id
// from nodes, routines and operator entries.
type payload struct {
	Schema   uint16
	Name     string
	Files    []string
	Types    types.Data
	Symbols  []symbolWire
	Ops      []opWire
	Routines []routineWire
}

type symbolWire struct {
	ID       uint32
	Name     string
	Kind     uint8
	Owner    uint32
	Type     uint32
	Flags    uint32
	Magic    uint8
	Position int32
	Span     source.Span
}

type nodeWire struct {
	Kind uint8
	Type uint32
	Span source.Span
	Sym  uint32
	Int  int64
	Str  string
	Kids []*nodeWire
}

type routineWire struct {
	Sym    uint32
	Params []uint32
	Result uint32
	Body   *nodeWire
}

type opWire struct {
	Type     uint32
	Kind     uint8
	Op       uint32
	Disabled bool
}

// Write encodes u to w.
func Write(w io.Writer, u *Unit) error {
	p, err := toPayload(u)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("unit: encode %s: %w", u.Name, err)
	}
	return nil
}

// Read decodes a unit from r.
func Read(r io.Reader) (*Unit, error) {
	var p payload
	if err := msgpack.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("unit: decode: %w", err)
	}
	if p.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: file has %d, want %d", ErrSchema, p.Schema, SchemaVersion)
	}
	return fromPayload(&p)
}

// Save writes u to path, replacing the file atomically.
func Save(path string, u *Unit) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".unit-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	bw := bufio.NewWriter(tmp)
	if err = Write(bw, u); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = bw.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a unit file.
func Load(path string) (*Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	u, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return u, nil
}

type encoder struct {
	syms map[ir.SymID]*ir.Symbol
	err  error
}

func toPayload(u *Unit) (*payload, error) {
	p := &payload{
		Schema: SchemaVersion,
		Name:   u.Name,
		Files:  slices.Clone(u.Files.Paths()),
		Types:  u.Types.Export(),
	}
	enc := &encoder{syms: make(map[ir.SymID]*ir.Symbol)}
	for _, e := range u.Ops.Entries() {
		ow := opWire{Type: uint32(e.Type), Kind: uint8(e.Kind), Disabled: e.Disabled}
		if e.Op != nil {
			ow.Op = enc.sym(e.Op)
		}
		p.Ops = append(p.Ops, ow)
	}
	for _, r := range u.Routines {
		rw := routineWire{Sym: enc.sym(r.Sym), Body: enc.node(r.Body)}
		for _, prm := range r.Params {
			rw.Params = append(rw.Params, enc.sym(prm))
		}
		if r.Result != nil {
			rw.Result = enc.sym(r.Result)
		}
		p.Routines = append(p.Routines, rw)
	}
	if enc.err != nil {
		return nil, enc.err
	}
	ids := make([]ir.SymID, 0, len(enc.syms))
	for id := range enc.syms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s := enc.syms[id]
		pos, err := safecast.Conv[int32](s.Position)
		if err != nil {
			return nil, fmt.Errorf("unit: symbol %s: position: %w", s.Name, err)
		}
		sw := symbolWire{
			ID:       uint32(s.ID),
			Name:     s.Name,
			Kind:     uint8(s.Kind),
			Type:     uint32(s.Type),
			Flags:    uint32(s.Flags),
			Magic:    uint8(s.Magic),
			Position: pos,
			Span:     s.Span,
		}
		if s.Owner != nil {
			sw.Owner = uint32(s.Owner.ID)
		}
		p.Symbols = append(p.Symbols, sw)
	}
	return p, nil
}

// sym records s and its owner chain, returning the wire reference.
func (e *encoder) sym(s *ir.Symbol) uint32 {
	if s == nil {
		return 0
	}
	if s.ID == ir.NoSymID {
		e.fail(fmt.Errorf("unit: symbol %q has no id", s.Name))
		return 0
	}
	if prev, ok := e.syms[s.ID]; ok {
		if prev != s {
			e.fail(fmt.Errorf("unit: symbols %q and %q share id %d", prev.Name, s.Name, s.ID))
		}
		return uint32(s.ID)
	}
	e.syms[s.ID] = s
	e.sym(s.Owner)
	return uint32(s.ID)
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *encoder) node(n *ir.Node) *nodeWire {
	if n == nil {
		return nil
	}
	w := &nodeWire{
		Kind: uint8(n.Kind),
		Type: uint32(n.Type),
		Span: n.Span,
		Int:  n.Int,
		Str:  n.Str,
		Sym:  e.sym(n.Sym),
	}
	if len(n.Kids) > 0 {
		w.Kids = make([]*nodeWire, len(n.Kids))
		for i, k := range n.Kids {
			w.Kids[i] = e.node(k)
		}
	}
	return w
}

type decoder struct {
	syms  map[uint32]*ir.Symbol
	types *types.Table
	files int
	errs  []error
}

func fromPayload(p *payload) (*Unit, error) {
	tt, err := types.FromData(p.Types)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	files := source.NewFileSet()
	for _, f := range p.Files {
		files.Add(f)
	}
	d := &decoder{syms: make(map[uint32]*ir.Symbol, len(p.Symbols)), types: tt, files: files.Len()}

	var maxID ir.SymID
	for _, sw := range p.Symbols {
		if sw.ID == 0 {
			d.errorf("symbol %q has no id", sw.Name)
			continue
		}
		if _, dup := d.syms[sw.ID]; dup {
			d.errorf("duplicate symbol id %d", sw.ID)
			continue
		}
		d.checkType(sw.Type)
		d.checkSpan(sw.Span)
		d.syms[sw.ID] = &ir.Symbol{
			ID:       ir.SymID(sw.ID),
			Name:     sw.Name,
			Kind:     ir.SymKind(sw.Kind),
			Type:     types.TypeID(sw.Type),
			Flags:    ir.SymFlags(sw.Flags),
			Magic:    ir.Magic(sw.Magic),
			Position: int(sw.Position),
			Span:     sw.Span,
		}
		maxID = max(maxID, ir.SymID(sw.ID))
	}
	for _, sw := range p.Symbols {
		if sw.Owner != 0 {
			if s := d.syms[sw.ID]; s != nil {
				s.Owner = d.sym(sw.Owner)
			}
		}
	}

	ids := ir.NewIDGen(maxID)
	u := &Unit{
		Name:  p.Name,
		Files: files,
		Types: tt,
		IDs:   ids,
		Ops:   ops.New(tt, ids),
	}
	for _, ow := range p.Ops {
		kind := ops.Kind(ow.Kind)
		if kind > ops.Sink {
			d.errorf("operator kind %d", ow.Kind)
			continue
		}
		d.checkType(ow.Type)
		if ow.Disabled {
			u.Ops.Disable(types.TypeID(ow.Type), kind)
			continue
		}
		if op := d.sym(ow.Op); op != nil {
			u.Ops.Register(types.TypeID(ow.Type), kind, op)
		}
	}
	for _, rw := range p.Routines {
		r := &ir.Routine{Sym: d.sym(rw.Sym), Body: d.node(rw.Body)}
		for _, id := range rw.Params {
			r.Params = append(r.Params, d.sym(id))
		}
		if rw.Result != 0 {
			r.Result = d.sym(rw.Result)
		}
		// the pass indexes kids by position, a malformed tree must not reach it
		if r.Body != nil {
			if err := ir.Validate(r.Body); err != nil {
				d.errorf("routine %d: %w", len(u.Routines), err)
			}
		}
		u.Routines = append(u.Routines, r)
	}
	if err := errors.Join(d.errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return u, nil
}

func (d *decoder) errorf(format string, args ...any) {
	d.errs = append(d.errs, fmt.Errorf(format, args...))
}

func (d *decoder) sym(id uint32) *ir.Symbol {
	s := d.syms[id]
	if s == nil {
		d.errorf("unknown symbol %d", id)
	}
	return s
}

func (d *decoder) checkType(id uint32) {
	if int(id) >= d.types.Len() {
		d.errorf("type %d out of range", id)
	}
}

func (d *decoder) checkSpan(sp source.Span) {
	if sp.Unknown() {
		return
	}
	n, err := safecast.Conv[source.FileID](d.files)
	if err != nil || sp.File >= n {
		d.errorf("span %s: unknown file", sp)
	}
}

func (d *decoder) node(w *nodeWire) *ir.Node {
	if w == nil {
		return nil
	}
	kind := ir.Kind(w.Kind)
	if kind.String() == "Unknown" {
		d.errorf("node kind %d", w.Kind)
	}
	d.checkType(w.Type)
	d.checkSpan(w.Span)
	n := &ir.Node{
		Kind: kind,
		Type: types.TypeID(w.Type),
		Span: w.Span,
		Int:  w.Int,
		Str:  w.Str,
	}
	if w.Sym != 0 {
		n.Sym = d.sym(w.Sym)
	}
	if len(w.Kids) > 0 {
		n.Kids = make([]*ir.Node, len(w.Kids))
		for i, k := range w.Kids {
			n.Kids[i] = d.node(k)
		}
	}
	return n
}
