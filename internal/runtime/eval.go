package runtime

import (
	"strings"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/parser"
)

// eval evaluates an expression node to its native Go representation: bool,
// int64, float64, or string. Literals from the lexer are always float64;
// arithmetic on two int64-backed cell reads stays integral.
func (r *Runtime) eval(node parser.Node) (any, error) {
	switch n := node.(type) {
	case *parser.Number:
		return n.Value, nil
	case *parser.String:
		return n.Value, nil
	case *parser.Bool:
		return n.Value, nil
	case *parser.Var:
		return r.evalVar(n.Name)
	case *parser.MemberAccess:
		return r.evalMember(n)
	case *parser.ArrayRef:
		cell, idx, err := r.resolveArrayRef(n)
		if err != nil {
			return nil, err
		}
		elems := cell.Value.([]*Cell)
		return elems[idx].Value, nil
	case *parser.Unary:
		return r.evalUnary(n)
	case *parser.Binary:
		return r.evalBinary(n)
	case *parser.CallExpr:
		return r.evalStdlibCall(n)
	}
	return nil, errf("cannot evaluate node %T", node)
}

func (r *Runtime) evalVar(name string) (any, error) {
	cell, ok := r.cells[name]
	if !ok {
		return nil, errf("unknown variable %q", name)
	}
	return cell.Value, nil
}

func (r *Runtime) evalMember(n *parser.MemberAccess) (any, error) {
	v, ok := n.Target.(*parser.Var)
	if !ok {
		return nil, errf("unsupported member access target")
	}
	return r.ReadField(v.Name, n.Field)
}

// resolveArrayRef resolves the target array cell and evaluated index for
// both read and write access.
func (r *Runtime) resolveArrayRef(n *parser.ArrayRef) (*Cell, int, error) {
	v, ok := n.Target.(*parser.Var)
	if !ok {
		return nil, 0, errf("unsupported array target")
	}
	cell, ok := r.cells[v.Name]
	if !ok {
		return nil, 0, errf("unknown variable %q", v.Name)
	}
	if cell.Type != TypeArray {
		return nil, 0, errf("%q is not an array", v.Name)
	}
	idxVal, err := r.eval(n.Index)
	if err != nil {
		return nil, 0, err
	}
	idx := int(toInt(idxVal)) - cell.Low
	elems := cell.Value.([]*Cell)
	if idx < 0 || idx >= len(elems) {
		return nil, 0, errf("array index out of range on %q", v.Name)
	}
	return cell, idx, nil
}

func (r *Runtime) evalUnary(n *parser.Unary) (any, error) {
	v, err := r.eval(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "NOT":
		return !toBool(v), nil
	case "-":
		if iv, ok := v.(int64); ok {
			return -iv, nil
		}
		return -toFloat(v), nil
	}
	return nil, errf("unknown unary operator %q", n.Op)
}

func (r *Runtime) evalBinary(n *parser.Binary) (any, error) {
	left, err := r.eval(n.Left)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "AND":
		if !toBool(left) {
			return false, nil
		}
		right, err := r.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return toBool(right), nil
	case "OR":
		if toBool(left) {
			return true, nil
		}
		right, err := r.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return toBool(right), nil
	}

	right, err := r.eval(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "=":
		return valuesEqual(left, right), nil
	case "<>", "!=":
		return !valuesEqual(left, right), nil
	case "<", ">", "<=", ">=":
		return compareNumeric(n.Op, toFloat(left), toFloat(right)), nil
	case "+", "-", "*":
		return arith(n.Op, left, right)
	case "/":
		rf := toFloat(right)
		if rf == 0 {
			return nil, errf("division by zero")
		}
		return toFloat(left) / rf, nil
	case "DIV":
		ri := toInt(right)
		if ri == 0 {
			return nil, errf("division by zero")
		}
		return toInt(left) / ri, nil
	case "MOD", "%":
		ri := toInt(right)
		if ri == 0 {
			return nil, errf("division by zero")
		}
		return toInt(left) % ri, nil
	}
	return nil, errf("unknown binary operator %q", n.Op)
}

func bothInt(a, b any) bool {
	_, ai := a.(int64)
	_, bi := b.(int64)
	return ai && bi
}

func arith(op string, left, right any) (any, error) {
	if bothInt(left, right) {
		a, b := left.(int64), right.(int64)
		switch op {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		}
	}
	a, b := toFloat(left), toFloat(right)
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	}
	return nil, errf("unknown arithmetic operator %q", op)
}

func compareNumeric(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	}
	return false
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case bool:
		return av == toBool(b)
	case string:
		bs, ok := b.(string)
		return ok && av == bs
	default:
		return toFloat(a) == toFloat(b)
	}
}

// evalStdlibCall dispatches TO_BOOL/TO_INT/TO_REAL/NOW_MS used inside
// expressions, per spec.md §4.2's standard library.
func (r *Runtime) evalStdlibCall(n *parser.CallExpr) (any, error) {
	name := strings.ToUpper(n.Callee)
	switch name {
	case "NOW_MS":
		return r.clock(), nil
	case "TO_BOOL", "TO_INT", "TO_REAL":
		if len(n.Args) != 1 {
			return nil, errf("%s expects exactly one argument", name)
		}
		v, err := r.eval(n.Args[0].Value)
		if err != nil {
			return nil, err
		}
		switch name {
		case "TO_BOOL":
			return toBool(v), nil
		case "TO_INT":
			return toInt(v), nil
		default:
			return toFloat(v), nil
		}
	}
	return nil, errf("unknown function %q", n.Callee)
}
