package lexer

import "fmt"

// Error reports a lexical failure at a specific source position.
type Error struct {
	Pos Pos
	Got rune
}

func (e *Error) Error() string {
	return fmt.Sprintf("lex error at %d:%d: unrecognised character %q", e.Pos.Line, e.Pos.Column, e.Got)
}
