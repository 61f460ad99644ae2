package parser

import (
	"fmt"

	"github.com/kustoforge/sql-to-kql/lib/sql/token"
)

// MalformedQueryError describes a structural failure: unbalanced
// parentheses, a missing mandatory clause, or stray text where a clause
// keyword was expected.
type MalformedQueryError struct {
	Pos token.Position
	Msg string
}

func (e *MalformedQueryError) Error() string {
	if e == nil {
		return ""
	}
	if e.Pos.Line > 0 && e.Pos.Column > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
	}
	return e.Msg
}

// ParseError describes an expression or predicate fragment that matches no
// supported grammar form. Clause names the clause being parsed and Fragment
// quotes the offending text.
type ParseError struct {
	Pos      token.Position
	Clause   string
	Fragment string
	Msg      string
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if e.Fragment != "" {
		msg = fmt.Sprintf("%s (near %q)", msg, e.Fragment)
	}
	if e.Clause != "" {
		msg = fmt.Sprintf("%s clause: %s", e.Clause, msg)
	}
	if e.Pos.Line > 0 && e.Pos.Column > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, msg)
	}
	return msg
}

// UnsupportedConstructError flags SQL features the grammar recognizes but
// the translator does not implement. Raising it beats mistranslating.
type UnsupportedConstructError struct {
	Pos       token.Position
	Construct string
}

func (e *UnsupportedConstructError) Error() string {
	if e == nil {
		return ""
	}
	if e.Pos.Line > 0 && e.Pos.Column > 0 {
		return fmt.Sprintf("line %d, column %d: %s is not supported", e.Pos.Line, e.Pos.Column, e.Construct)
	}
	return fmt.Sprintf("%s is not supported", e.Construct)
}
