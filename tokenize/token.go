// Package tokenize splits Python source into string-literal tokens and
// everything else. It understands exactly as much of the Python lexical
// grammar as is needed to find where each string literal starts and ends:
// prefixes, single and triple quotes, backslash escapes, line
// continuations and comments.
package tokenize

import (
	"errors"

	"modernc.org/token"
)

// Kind classifies a token.
type Kind uint8

const (
	// Other covers names, numbers, operators and comments.
	Other Kind = iota
	// String is a complete string literal, prefix and quotes included.
	String
)

func (k Kind) String() string {
	switch k {
	case String:
		return "STRING"
	default:
		return "OTHER"
	}
}

// Pos is a position in the source. Line is 1-based, Column is a 0-based
// byte offset into the physical line.
type Pos struct {
	Line   int
	Column int
}

// Token is one lexeme of the source.
type Token struct {
	Kind Kind
	// Text is the raw source text of the token.
	Text string
	// Start is the position of the first byte; End is just past the last.
	Start Pos
	End   Pos
	// Line is the physical source text of every line the token spans,
	// terminators included. For single-line tokens that is the line
	// holding Start.
	Line string
}

// ErrSyntax is wrapped by every tokenization error.
var ErrSyntax = errors.New("syntax error")

// Error is a tokenization failure at a source position.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return ErrSyntax }
