package parser

import (
	"fmt"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/compiler/lexer"
)

// Error reports a syntactic failure at a specific source position.
type Error struct {
	Pos      lexer.Pos
	Got      string
	Expected string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at %d:%d: got %q, expected %s", e.Pos.Line, e.Pos.Column, e.Got, e.Expected)
}
