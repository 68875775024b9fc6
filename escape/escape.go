// Package escape classifies backslash escape sequences inside Python string
// literal tokens. It works on the raw token text, prefix letters and quote
// delimiters included, and never needs a tokenizer or interpreter.
package escape

import (
	"strings"
	"unicode/utf8"
)

// RawMarker is the prefix letter that turns off escape processing.
const RawMarker = 'r'

// valid lists the characters that may follow a backslash in a non-raw
// literal. N, u and U are only meaningful in text literals; they are
// accepted for bytes literals too.
var valid = map[byte]bool{
	'\n': true,
	'\r': true, // line continuation in CRLF and CR sources
	'\\': true,
	'\'': true,
	'"':  true,
	'a':  true,
	'b':  true,
	'f':  true,
	'n':  true,
	'r':  true,
	't':  true,
	'v':  true,
	'0':  true,
	'1':  true,
	'2':  true,
	'3':  true,
	'4':  true,
	'5':  true,
	'6':  true,
	'7':  true,
	'x':  true,
	'N':  true,
	'u':  true,
	'U':  true,
}

// Sequence is one invalid escape found in a literal.
type Sequence struct {
	// Offset is the byte offset of the backslash within the token text.
	Offset int
	// Char is the character following the backslash.
	Char rune
}

// String renders the sequence the way it appears in source, e.g. `\d`.
func (s Sequence) String() string {
	return `\` + string(s.Char)
}

// IsInvalid reports whether the literal contains at least one backslash
// sequence outside the recognized escape set. Raw literals are never
// invalid. A backslash with nothing after it inside the body is not
// flagged.
func IsInvalid(text string) bool {
	_, body, bodyStart, ok := split(text)
	if !ok {
		return false
	}
	_, found := scan(body, bodyStart, true)
	return found
}

// Find returns every invalid escape sequence in the literal, in order.
// It returns nil for raw literals and literals with only valid escapes.
func Find(text string) []Sequence {
	_, body, bodyStart, ok := split(text)
	if !ok {
		return nil
	}
	seqs, _ := scan(body, bodyStart, false)
	return seqs
}

// IsRaw reports whether the literal's prefix carries the raw marker.
func IsRaw(text string) bool {
	return strings.ContainsRune(Prefix(text), RawMarker)
}

// Prefix returns the lower-cased prefix letters of a literal ("" when the
// literal starts with its quote).
func Prefix(text string) string {
	quote := quoteStyle(text)
	if quote == "" {
		return ""
	}
	i := strings.Index(text, quote)
	if i < 0 {
		return ""
	}
	return strings.ToLower(text[:i])
}

// split breaks text into its prefix and body. ok is false when the text is
// not a quoted literal or is raw, in which case no escape can be invalid.
func split(text string) (prefix, body string, bodyStart int, ok bool) {
	quote := quoteStyle(text)
	if quote == "" {
		return "", "", 0, false
	}
	open := strings.Index(text, quote)
	bodyStart = open + len(quote)
	bodyEnd := len(text) - len(quote)
	if open < 0 || bodyEnd < bodyStart {
		return "", "", 0, false
	}
	prefix = strings.ToLower(text[:open])
	if strings.ContainsRune(prefix, RawMarker) {
		return prefix, "", 0, false
	}
	return prefix, text[bodyStart:bodyEnd], bodyStart, true
}

// quoteStyle returns the closing delimiter of text: a triple quote when the
// last three characters are one, otherwise the final character.
func quoteStyle(text string) string {
	n := len(text)
	if n == 0 {
		return ""
	}
	if n >= 6 {
		tail := text[n-3:]
		if tail == `'''` || tail == `"""` {
			return tail
		}
	}
	last := text[n-1:]
	if last != `'` && last != `"` {
		return ""
	}
	return last
}

// scan walks body looking for backslashes. The escaped character is always
// consumed with its backslash, so `\\d` is a valid `\\` followed by `d`.
// With first set it stops at the first hit.
func scan(body string, base int, first bool) ([]Sequence, bool) {
	var seqs []Sequence
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' {
			continue
		}
		if i+1 >= len(body) {
			// dangling backslash: nothing to classify
			break
		}
		next := body[i+1]
		if !valid[next] {
			r, _ := utf8.DecodeRuneInString(body[i+1:])
			seqs = append(seqs, Sequence{Offset: base + i, Char: r})
			if first {
				return seqs, true
			}
		}
		i++
	}
	return seqs, len(seqs) > 0
}
