// Package fixer turns the string literals of a Python source file that
// contain invalid escape sequences into raw literals, producing the
// original and corrected line buffers for diffing.
package fixer

import (
	"slices"
	"strings"

	"github.com/rubiojr/escfix/escape"
	"github.com/rubiojr/escfix/tokenize"
)

// Span identifies the physical lines a token occupies (1-based, inclusive).
type Span struct {
	StartLine int
	EndLine   int
}

// Fix records one inserted raw marker, in original source coordinates.
type Fix struct {
	Span   Span
	Column int
	// Text is the original literal.
	Text string
}

// Result holds the outcome of processing one file.
type Result struct {
	// Original is the untouched source split into lines, terminators kept.
	Original []string
	// Corrected has the same length as Original and differs only at
	// lines holding a fixed literal.
	Corrected []string
	Fixes     []Fix
}

// Changed reports whether any literal was fixed.
func (r *Result) Changed() bool {
	return len(r.Fixes) > 0
}

// Build tokenizes src and proposes a raw marker for every string literal
// with an invalid escape sequence. name is used in error positions.
// Tokenization errors are returned as-is; there is no partial result.
func Build(name string, src []byte) (*Result, error) {
	toks, err := tokenize.Tokenize(name, src)
	if err != nil {
		return nil, err
	}
	return BuildTokens(string(src), toks), nil
}

// BuildTokens is Build for callers that already have a token stream for src.
func BuildTokens(src string, toks []tokenize.Token) *Result {
	res := &Result{
		Original:  SplitLines(src),
		Corrected: SplitLines(src),
	}
	var st state
	for _, tok := range toks {
		if tok.Kind != tokenize.String || !escape.IsInvalid(tok.Text) {
			continue
		}
		span := Span{StartLine: tok.Start.Line, EndLine: tok.End.Line}
		offset := st.offset(span, tok.Start.Column)

		working := strings.Join(res.Corrected[span.StartLine-1:span.EndLine], "")
		working = insertMarker(working, offset)
		res.Corrected = slices.Replace(res.Corrected, span.StartLine-1, span.EndLine, SplitLines(working)...)

		res.Fixes = append(res.Fixes, Fix{Span: span, Column: tok.Start.Column, Text: tok.Text})
	}
	return res
}

// state carries what the previous fix did to its line across tokens.
// Literals concatenated on one physical line each get a marker; every
// marker already inserted on that line shifts later columns right by one.
type state struct {
	previousSpan   Span
	insertionCount int
}

// offset returns where the marker for a literal at column col of span goes
// in the current corrected text, and records span as the latest fix.
func (s *state) offset(span Span, col int) int {
	// A multi-line literal can only follow other literals on its first
	// line, so sharing the start line is enough to share the shift.
	if s.previousSpan.StartLine != 0 && span.StartLine == s.previousSpan.StartLine {
		s.insertionCount++
	} else {
		s.insertionCount = 0
	}
	s.previousSpan = span
	return col + s.insertionCount
}

// insertMarker splices the raw marker into text at offset.
func insertMarker(text string, offset int) string {
	return text[:offset] + string(escape.RawMarker) + text[offset:]
}

// SplitLines splits s into lines, keeping each terminator ("\n", "\r\n" or
// "\r"). The last line has no terminator when s does not end with one.
func SplitLines(s string) []string {
	starts := tokenize.LineStarts(s)
	lines := make([]string, len(starts))
	for i, start := range starts {
		end := len(s)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		lines[i] = s[start:end]
	}
	return lines
}
