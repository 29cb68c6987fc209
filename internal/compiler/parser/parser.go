package parser

import (
	"strconv"
	"strings"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/lexer"
)

// Parser consumes a pre-tokenised Structured Text source and produces a
// *Program. It does not perform type checking; type errors surface at
// evaluation.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse tokenises and parses a complete Structured Text source string.
func Parse(src string) (*Program, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	return p.parseProgram()
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool {
	return p.cur().Kind == lexer.EOF
}

func (p *Parser) isKeyword(word string) bool {
	t := p.cur()
	return t.Kind == lexer.Keyword && t.Text == word
}

func (p *Parser) isOperator(op string) bool {
	t := p.cur()
	return t.Kind == lexer.Operator && t.Text == op
}

func (p *Parser) isPunct(sym string) bool {
	t := p.cur()
	return t.Kind == lexer.Punct && t.Text == sym
}

func (p *Parser) expectKeyword(word string) (lexer.Token, error) {
	if !p.isKeyword(word) {
		return lexer.Token{}, &Error{Pos: p.cur().Pos, Got: describe(p.cur()), Expected: word}
	}
	return p.advance(), nil
}

func (p *Parser) expectPunct(sym string) (lexer.Token, error) {
	if !p.isPunct(sym) {
		return lexer.Token{}, &Error{Pos: p.cur().Pos, Got: describe(p.cur()), Expected: sym}
	}
	return p.advance(), nil
}

func (p *Parser) expectOperator(op string) (lexer.Token, error) {
	if !p.isOperator(op) {
		return lexer.Token{}, &Error{Pos: p.cur().Pos, Got: describe(p.cur()), Expected: op}
	}
	return p.advance(), nil
}

func (p *Parser) expectIdentifier() (lexer.Token, error) {
	if p.cur().Kind != lexer.Identifier {
		return lexer.Token{}, &Error{Pos: p.cur().Pos, Got: describe(p.cur()), Expected: "identifier"}
	}
	return p.advance(), nil
}

func describe(t lexer.Token) string {
	if t.Kind == lexer.EOF {
		return "EOF"
	}
	return t.Text
}

// parseProgram parses an optional PROGRAM wrapper followed by interleaved
// VAR blocks and statements.
func (p *Parser) parseProgram() (*Program, error) {
	start := p.cur().Pos
	prog := &Program{base: base{start}}

	if p.isKeyword("PROGRAM") {
		p.advance()
		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		prog.Name = name.Text
	}

	for !p.atEOF() {
		if p.isKeyword("END_PROGRAM") {
			p.advance()
			break
		}
		if p.isKeyword("VAR") {
			decls, err := p.parseVarBlock()
			if err != nil {
				return nil, err
			}
			prog.Decls = append(prog.Decls, decls...)
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
	}
	return prog, nil
}

func (p *Parser) parseVarBlock() ([]*VarDecl, error) {
	if _, err := p.expectKeyword("VAR"); err != nil {
		return nil, err
	}
	var decls []*VarDecl
	for !p.isKeyword("END_VAR") {
		if p.atEOF() {
			return nil, &Error{Pos: p.cur().Pos, Got: "EOF", Expected: "END_VAR"}
		}
		decl, err := p.parseVarDecl()
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	p.advance() // END_VAR
	return decls, nil
}

func (p *Parser) parseVarDecl() (*VarDecl, error) {
	start := p.cur().Pos
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	typeRef, err := p.parseTypeRef()
	if err != nil {
		return nil, err
	}
	decl := &VarDecl{base: base{start}, Name: name.Text, Type: typeRef}
	if p.isOperator(":=") {
		p.advance()
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseTypeRef() (TypeRef, error) {
	if p.isKeyword("ARRAY") {
		p.advance()
		if _, err := p.expectPunct("["); err != nil {
			return TypeRef{}, err
		}
		low, err := p.expectIntLiteral()
		if err != nil {
			return TypeRef{}, err
		}
		if _, err := p.expectPunct("."); err != nil {
			return TypeRef{}, err
		}
		if _, err := p.expectPunct("."); err != nil {
			return TypeRef{}, err
		}
		high, err := p.expectIntLiteral()
		if err != nil {
			return TypeRef{}, err
		}
		if _, err := p.expectPunct("]"); err != nil {
			return TypeRef{}, err
		}
		if _, err := p.expectKeyword("OF"); err != nil {
			return TypeRef{}, err
		}
		base, err := p.parseBaseTypeName()
		if err != nil {
			return TypeRef{}, err
		}
		return TypeRef{Name: "ARRAY", IsArray: true, Low: low, High: high, Base: base}, nil
	}
	name, err := p.parseBaseTypeName()
	if err != nil {
		return TypeRef{}, err
	}
	return TypeRef{Name: name}, nil
}

func (p *Parser) parseBaseTypeName() (string, error) {
	t := p.cur()
	if t.Kind == lexer.Keyword || t.Kind == lexer.Identifier {
		p.advance()
		return t.Text, nil
	}
	return "", &Error{Pos: t.Pos, Got: describe(t), Expected: "type name"}
}

func (p *Parser) expectIntLiteral() (int, error) {
	t := p.cur()
	if t.Kind != lexer.Number {
		return 0, &Error{Pos: t.Pos, Got: describe(t), Expected: "integer"}
	}
	p.advance()
	v, _ := strconv.Atoi(strings.TrimSuffix(t.Text, ".0"))
	return v, nil
}

// parseStatement dispatches to the statement form starting at the current
// token.
func (p *Parser) parseStatement() (Node, error) {
	start := p.cur().Pos
	switch {
	case p.isPunct(";"):
		p.advance()
		return &Nop{base{start}}, nil
	case p.isKeyword("IF"):
		return p.parseIf()
	case p.isKeyword("WHILE"):
		return p.parseWhile()
	case p.isKeyword("FOR"):
		return p.parseFor()
	case p.cur().Kind == lexer.Identifier:
		return p.parseAssignOrCall()
	}
	return nil, &Error{Pos: start, Got: describe(p.cur()), Expected: "statement"}
}

func (p *Parser) parseBlockUntil(terminators ...string) ([]Node, error) {
	var body []Node
	for {
		if p.atEOF() {
			return nil, &Error{Pos: p.cur().Pos, Got: "EOF", Expected: strings.Join(terminators, " or ")}
		}
		for _, term := range terminators {
			if p.isKeyword(term) {
				return body, nil
			}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
}

func (p *Parser) parseIf() (Node, error) {
	start := p.cur().Pos
	p.advance() // IF
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("THEN"); err != nil {
		return nil, err
	}
	thenBody, err := p.parseBlockUntil("ELSIF", "ELSE", "END_IF")
	if err != nil {
		return nil, err
	}
	node := &If{base: base{start}, Cond: cond, Then: thenBody}
	for p.isKeyword("ELSIF") {
		p.advance()
		elifCond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		body, err := p.parseBlockUntil("ELSIF", "ELSE", "END_IF")
		if err != nil {
			return nil, err
		}
		node.Elifs = append(node.Elifs, ElseIf{Cond: elifCond, Body: body})
	}
	if p.isKeyword("ELSE") {
		p.advance()
		body, err := p.parseBlockUntil("END_IF")
		if err != nil {
			return nil, err
		}
		node.Else = body
	}
	if _, err := p.expectKeyword("END_IF"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseWhile() (Node, error) {
	start := p.cur().Pos
	p.advance() // WHILE
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("DO"); err != nil {
		return nil, err
	}
	body, err := p.parseBlockUntil("END_WHILE")
	if err != nil {
		return nil, err
	}
	p.advance() // END_WHILE
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &While{base: base{start}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (Node, error) {
	start := p.cur().Pos
	p.advance() // FOR
	varName, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOperator(":="); err != nil {
		return nil, err
	}
	from, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	to, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	node := &For{base: base{start}, Var: varName.Text, Start: from, End: to}
	if p.isKeyword("BY") {
		p.advance()
		step, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node.Step = step
	}
	if _, err := p.expectKeyword("DO"); err != nil {
		return nil, err
	}
	body, err := p.parseBlockUntil("END_FOR")
	if err != nil {
		return nil, err
	}
	p.advance() // END_FOR
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	node.Body = body
	return node, nil
}

// parseAssignOrCall disambiguates `name := expr;`, `name[idx] := expr;`,
// and `name(args...);` starting from a leading identifier.
func (p *Parser) parseAssignOrCall() (Node, error) {
	start := p.cur().Pos
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	if p.isPunct("[") {
		target, err := p.parseArrayRefTail(&Var{base: base{start}, Name: name.Text})
		if err != nil {
			return nil, err
		}
		if _, err := p.expectOperator(":="); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return &Assign{base: base{start}, Target: target, Value: value}, nil
	}

	if p.isPunct("(") {
		call, err := p.parseCallTail(start, name.Text)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return call, nil
	}

	if _, err := p.expectOperator(":="); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &Assign{base: base{start}, Target: &Var{base: base{start}, Name: name.Text}, Value: value}, nil
}

func (p *Parser) parseArrayRefTail(target Node) (Node, error) {
	if _, err := p.expectPunct("["); err != nil {
		return nil, err
	}
	index, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return &ArrayRef{base: base{target.Pos()}, Target: target, Index: index}, nil
}

func (p *Parser) parseCallTail(start lexer.Pos, callee string) (*Call, error) {
	p.advance() // (
	call := &Call{base: base{start}, Callee: callee}
	if p.isPunct(")") {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseArg() (Arg, error) {
	if p.cur().Kind == lexer.Identifier {
		save := p.pos
		name := p.advance()
		if p.isOperator(":=") {
			p.advance()
			value, err := p.parseExpr()
			if err != nil {
				return Arg{}, err
			}
			return Arg{Name: name.Text, Value: value}, nil
		}
		p.pos = save
	}
	value, err := p.parseExpr()
	if err != nil {
		return Arg{}, err
	}
	return Arg{Value: value}, nil
}

// Expression grammar, low to high precedence:
//
//	OR > AND > NOT > comparison > additive > multiplicative > unary > primary
func (p *Parser) parseExpr() (Node, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		start := p.cur().Pos
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{base: base{start}, Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		start := p.cur().Pos
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Binary{base: base{start}, Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Node, error) {
	if p.isKeyword("NOT") {
		start := p.cur().Pos
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{base: base{start}, Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{"=": true, "<>": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true}

func (p *Parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Operator && comparisonOps[p.cur().Text] {
		op := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &Binary{base: base{op.Pos}, Op: op.Text, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == lexer.Operator && (p.cur().Text == "+" || p.cur().Text == "-") {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{base: base{op.Pos}, Op: op.Text, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if p.cur().Kind == lexer.Operator && (p.cur().Text == "*" || p.cur().Text == "/" || p.cur().Text == "%") {
			op := p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &Binary{base: base{op.Pos}, Op: op.Text, Left: left, Right: right}
			continue
		}
		if p.isKeyword("MOD") || p.isKeyword("DIV") {
			op := p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &Binary{base: base{op.Pos}, Op: op.Text, Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseUnary() (Node, error) {
	if p.cur().Kind == lexer.Operator && p.cur().Text == "-" {
		start := p.cur().Pos
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{base: base{start}, Op: "-", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, error) {
	t := p.cur()
	switch {
	case t.Kind == lexer.Number:
		p.advance()
		return &Number{base: base{t.Pos}, Value: t.Value.(float64)}, nil
	case t.Kind == lexer.TimeLiteral:
		p.advance()
		return &Number{base: base{t.Pos}, Value: t.Value.(float64)}, nil
	case t.Kind == lexer.String:
		p.advance()
		return &String{base: base{t.Pos}, Value: t.Value.(string)}, nil
	case t.Kind == lexer.Keyword && t.Text == "TRUE":
		p.advance()
		return &Bool{base: base{t.Pos}, Value: true}, nil
	case t.Kind == lexer.Keyword && t.Text == "FALSE":
		p.advance()
		return &Bool{base: base{t.Pos}, Value: false}, nil
	case t.Kind == lexer.Punct && t.Text == "(":
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil
	case t.Kind == lexer.Identifier:
		p.advance()
		return p.parsePostfix(&Var{base: base{t.Pos}, Name: t.Text})
	}
	return nil, &Error{Pos: t.Pos, Got: describe(t), Expected: "expression"}
}

// parsePostfix consumes trailing `[index]` and `.field` suffixes, and
// converts a bare identifier followed by `(` into an expression-level call.
func (p *Parser) parsePostfix(node Node) (Node, error) {
	if v, ok := node.(*Var); ok && p.isPunct("(") {
		return p.parseExprCallTail(v.Pos(), v.Name)
	}
	for {
		switch {
		case p.isPunct("["):
			ref, err := p.parseArrayRefTail(node)
			if err != nil {
				return nil, err
			}
			node = ref
		case p.isPunct("."):
			p.advance()
			field, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}
			node = &MemberAccess{base: base{node.Pos()}, Target: node, Field: field.Text}
		default:
			return node, nil
		}
	}
}

func (p *Parser) parseExprCallTail(start lexer.Pos, callee string) (Node, error) {
	p.advance() // (
	call := &CallExpr{base: base{start}, Callee: callee}
	if p.isPunct(")") {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseArg()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return call, nil
}
