// Package parser builds a typed AST from a Structured Text token stream.
package parser

import "github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/lexer"

// Node is implemented by every AST node. Pos reports the node's source
// position for diagnostics.
type Node interface {
	Pos() lexer.Pos
}

type base struct {
	P lexer.Pos
}

func (b base) Pos() lexer.Pos { return b.P }

// Program is the root node: an optional name plus the top-level statement
// list (which may interleave VarDecl blocks and executable statements).
type Program struct {
	base
	Name  string
	Decls []*VarDecl
	Body  []Node
}

// TypeRef describes a declared type: a primitive/UDT name, or an array of
// a base type over an inclusive [Low, High] range.
type TypeRef struct {
	Name    string
	IsArray bool
	Low     int
	High    int
	Base    string
}

// VarDecl declares one variable with an optional initializer expression.
type VarDecl struct {
	base
	Name string
	Type TypeRef
	Init Node
}

// Assign stores the value of Value into the location named by Target
// (a *Var or *ArrayRef).
type Assign struct {
	base
	Target Node
	Value  Node
}

// Arg is one positional-or-keyword call argument.
type Arg struct {
	Name  string // empty for positional arguments
	Value Node
}

// Call is a statement-level invocation, typically a function-block
// instance call such as T1(IN := Start, PT := T#100ms).
type Call struct {
	base
	Callee string
	Args   []Arg
}

// CallExpr is an expression-level invocation (e.g. a stdlib conversion
// function used inside an expression).
type CallExpr struct {
	base
	Callee string
	Args   []Arg
}

// If models IF ... THEN ... [ELSIF ... THEN ...]* [ELSE ...] END_IF.
type If struct {
	base
	Cond   Node
	Then   []Node
	Elifs  []ElseIf
	Else   []Node
}

// ElseIf is one ELSIF clause of an If.
type ElseIf struct {
	Cond Node
	Body []Node
}

// While models WHILE cond DO ... END_WHILE.
type While struct {
	base
	Cond Node
	Body []Node
}

// For models FOR var := start TO end [BY step] DO ... END_FOR.
type For struct {
	base
	Var   string
	Start Node
	End   Node
	Step  Node
	Body  []Node
}

// Number is a numeric literal.
type Number struct {
	base
	Value float64
}

// String is a string literal.
type String struct {
	base
	Value string
}

// Bool is a boolean literal.
type Bool struct {
	base
	Value bool
}

// Var references a declared identifier.
type Var struct {
	base
	Name string
}

// MemberAccess references Target.Field (function-block instance outputs
// such as T1.Q or T1.ET).
type MemberAccess struct {
	base
	Target Node
	Field  string
}

// ArrayRef references Target[Index].
type ArrayRef struct {
	base
	Target Node
	Index  Node
}

// Binary is a binary operator expression.
type Binary struct {
	base
	Op    string
	Left  Node
	Right Node
}

// Unary is a unary operator expression (NOT, unary -).
type Unary struct {
	base
	Op      string
	Operand Node
}

// Nop is an empty statement (e.g. a bare semicolon).
type Nop struct {
	base
}
