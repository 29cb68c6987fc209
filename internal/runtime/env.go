package runtime

import (
	"sort"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/parser"
)

// whileGuardLimit bounds WHILE-loop iterations per spec.md §4.2, protecting
// the scan scheduler from a program that never terminates.
const whileGuardLimit = 100_000

// Clock supplies the wall-clock milliseconds the runtime uses for timers
// and NOW_MS. Tests inject a deterministic Clock; production wiring uses
// the scan engine's own tick clock.
type Clock func() float64

// Runtime is the narrow, inspectable API described in spec.md §9: Load,
// StepOnce (renamed Cycle to match the scan engine's vocabulary),
// WriteVariable, ReadVariable, and SnapshotVariables. It holds no hidden
// global state; every Runtime is private to its owning engine.
type Runtime struct {
	prog  *parser.Program
	cells map[string]*Cell
	clock Clock

	diagnostics []Diagnostic
}

// New constructs an empty Runtime using clock for timer and NOW_MS
// evaluation. A nil clock defaults to always returning 0.
func New(clock Clock) *Runtime {
	if clock == nil {
		clock = func() float64 { return 0 }
	}
	return &Runtime{cells: map[string]*Cell{}, clock: clock}
}

// Load allocates variable cells from prog's declarations, evaluating each
// initializer against an environment built up as declarations are
// processed (so a later declaration's initializer may reference an earlier
// one). The compiled program is retained for Reset.
func (r *Runtime) Load(prog *parser.Program) error {
	r.prog = prog
	r.cells = map[string]*Cell{}
	return r.allocate()
}

// Reset tears down all variable cells and FB instances and re-evaluates
// declarations' initializers. The compiled program is retained.
func (r *Runtime) Reset() error {
	if r.prog == nil {
		return nil
	}
	r.cells = map[string]*Cell{}
	r.diagnostics = nil
	return r.allocate()
}

func (r *Runtime) allocate() error {
	for _, decl := range r.prog.Decls {
		cell := defaultForType(decl.Type)
		r.cells[decl.Name] = cell
		if decl.Init != nil {
			v, err := r.eval(decl.Init)
			if err != nil {
				return err
			}
			cell.Value = coerce(cell.Type, v)
		}
	}
	return nil
}

// Diagnostics returns the accumulated diagnostics list and clears it.
func (r *Runtime) Diagnostics() []Diagnostic {
	d := r.diagnostics
	r.diagnostics = nil
	return d
}

func (r *Runtime) addDiagnostic(severity, message string) {
	r.diagnostics = append(r.diagnostics, Diagnostic{Severity: severity, Message: message})
}

// ReadVariable returns the current native value of a top-level or array
// cell. Member access (T1.Q) is resolved by callers via ReadField.
func (r *Runtime) ReadVariable(name string) (any, error) {
	cell, ok := r.cells[name]
	if !ok {
		return nil, errf("unknown variable %q", name)
	}
	return cell.Value, nil
}

// ReadField resolves fb.field for a function-block instance cell (Q, ET,
// or a pass-through field for unrecognised FB types).
func (r *Runtime) ReadField(name, field string) (any, error) {
	cell, ok := r.cells[name]
	if !ok {
		return nil, errf("unknown variable %q", name)
	}
	fb, ok := cell.Value.(*FBInstance)
	if !ok {
		return nil, errf("%q is not a function-block instance", name)
	}
	switch field {
	case "Q":
		return fb.Q, nil
	case "ET":
		return fb.ET, nil
	default:
		if v, ok := fb.Fields[field]; ok {
			return v, nil
		}
		return nil, errf("unknown field %q on %q", field, name)
	}
}

// WriteVariable stores value into the cell named name, applying the
// cell's typed coercion rules.
func (r *Runtime) WriteVariable(name string, value any) error {
	cell, ok := r.cells[name]
	if !ok {
		return errf("unknown variable %q", name)
	}
	cell.Value = coerce(cell.Type, value)
	return nil
}

// Cell exposes the underlying cell for the scan engine's I/O, overflow,
// and physics passes, which need direct access to typed storage.
func (r *Runtime) Cell(name string) (*Cell, bool) {
	c, ok := r.cells[name]
	return c, ok
}

// CellNames returns every allocated top-level cell name, sorted, for
// deterministic iteration by the scan engine's overflow and output scans.
func (r *Runtime) CellNames() []string {
	names := make([]string, 0, len(r.cells))
	for name := range r.cells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SnapshotVariables returns a shallow, point-in-time copy of every scalar
// cell's value, suitable for external read-only queries and the event
// stream. Function-block instances are expanded to their Q/ET outputs.
func (r *Runtime) SnapshotVariables() map[string]any {
	out := make(map[string]any, len(r.cells))
	for name, cell := range r.cells {
		if fb, ok := cell.Value.(*FBInstance); ok {
			out[name] = map[string]any{"Q": fb.Q, "ET": fb.ET}
			continue
		}
		out[name] = cell.Value
	}
	return out
}

// Cycle executes the top-level statement list once, per spec.md §4.3 step
// 4. Runtime errors are recorded as diagnostics rather than returned,
// matching the propagation policy in spec.md §7: a failing top-level
// statement is recorded and the next one still runs. Cycle returns the
// diagnostics accumulated since the last call and clears them.
func (r *Runtime) Cycle() []Diagnostic {
	for _, stmt := range r.prog.Body {
		if err := r.exec(stmt); err != nil {
			r.addDiagnostic(SeverityError, err.Error())
		}
	}
	return r.Diagnostics()
}
