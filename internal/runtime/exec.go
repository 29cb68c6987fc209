package runtime

import (
	"strings"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/parser"
)

// exec executes a single statement node.
func (r *Runtime) exec(node parser.Node) error {
	switch n := node.(type) {
	case *parser.Nop:
		return nil
	case *parser.Assign:
		return r.execAssign(n)
	case *parser.Call:
		return r.execCall(n)
	case *parser.If:
		return r.execIf(n)
	case *parser.While:
		return r.execWhile(n)
	case *parser.For:
		return r.execFor(n)
	}
	return errf("cannot execute node %T", node)
}

func (r *Runtime) execAssign(n *parser.Assign) error {
	value, err := r.eval(n.Value)
	if err != nil {
		return err
	}
	switch target := n.Target.(type) {
	case *parser.Var:
		return r.WriteVariable(target.Name, value)
	case *parser.ArrayRef:
		cell, idx, err := r.resolveArrayRef(target)
		if err != nil {
			return err
		}
		elems := cell.Value.([]*Cell)
		elems[idx].Value = coerce(elems[idx].Type, value)
		return nil
	}
	return errf("unsupported assignment target %T", n.Target)
}

func (r *Runtime) execIf(n *parser.If) error {
	cond, err := r.eval(n.Cond)
	if err != nil {
		return err
	}
	if toBool(cond) {
		return r.execBlock(n.Then)
	}
	for _, elif := range n.Elifs {
		cond, err := r.eval(elif.Cond)
		if err != nil {
			return err
		}
		if toBool(cond) {
			return r.execBlock(elif.Body)
		}
	}
	return r.execBlock(n.Else)
}

func (r *Runtime) execBlock(stmts []parser.Node) error {
	for _, stmt := range stmts {
		if err := r.exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) execWhile(n *parser.While) error {
	guard := 0
	for {
		cond, err := r.eval(n.Cond)
		if err != nil {
			return err
		}
		if !toBool(cond) {
			return nil
		}
		if err := r.execBlock(n.Body); err != nil {
			return err
		}
		guard++
		if guard >= whileGuardLimit {
			return errf("possible infinite loop")
		}
	}
}

func (r *Runtime) execFor(n *parser.For) error {
	startVal, err := r.eval(n.Start)
	if err != nil {
		return err
	}
	endVal, err := r.eval(n.End)
	if err != nil {
		return err
	}
	step := int64(1)
	if n.Step != nil {
		sv, err := r.eval(n.Step)
		if err != nil {
			return err
		}
		step = toInt(sv)
	}
	if step == 0 {
		return errf("FOR step must not be zero")
	}

	if _, ok := r.cells[n.Var]; !ok {
		r.cells[n.Var] = &Cell{Type: TypeInt, Value: int64(0)}
	}

	cur := toInt(startVal)
	end := toInt(endVal)
	for (step > 0 && cur <= end) || (step < 0 && cur >= end) {
		if err := r.WriteVariable(n.Var, cur); err != nil {
			return err
		}
		if err := r.execBlock(n.Body); err != nil {
			return err
		}
		cur += step
	}
	return nil
}

func (r *Runtime) execCall(n *parser.Call) error {
	cell, ok := r.cells[n.Callee]
	if !ok {
		return errf("unknown variable %q", n.Callee)
	}
	fb, ok := cell.Value.(*FBInstance)
	if !ok {
		return errf("%q is not callable", n.Callee)
	}

	args, err := r.evalArgs(n.Args)
	if err != nil {
		return err
	}
	return r.dispatchFB(fb, args)
}

// evalArgs evaluates a call's arguments into an upper-cased keyword
// record, per spec.md §4.2: "keyword args are converted upper-case and
// supplied as an input record."
func (r *Runtime) evalArgs(args []parser.Arg) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, a := range args {
		v, err := r.eval(a.Value)
		if err != nil {
			return nil, err
		}
		if a.Name != "" {
			out[strings.ToUpper(a.Name)] = v
		} else {
			out[a.Name] = v
		}
	}
	return out, nil
}
