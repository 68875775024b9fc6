package tokenize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"modernc.org/token"
)

const bom = "\xef\xbb\xbf"

// stringPrefixes are the lower-cased prefixes Python accepts in front of a
// quote.
var stringPrefixes = map[string]bool{
	"r": true, "u": true, "b": true, "f": true, "t": true,
	"br": true, "rb": true, "fr": true, "rf": true, "tr": true, "rt": true,
}

// Tokenize scans src and returns its tokens in source order. name is only
// used in error positions.
func Tokenize(name string, src []byte) ([]Token, error) {
	sc := newScanner(name, string(src))
	if off := invalidUTF8(sc.src); off >= 0 {
		return nil, sc.errorf(off, "invalid UTF-8 byte 0x%02x", sc.src[off])
	}
	var toks []Token
	for {
		tok, ok, err := sc.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return toks, nil
		}
		toks = append(toks, tok)
	}
}

// LineStarts returns the byte offset of the first byte of every physical
// line in src. Lines end at "\n", "\r\n" or a lone "\r". An empty source
// has no lines.
func LineStarts(src string) []int {
	if src == "" {
		return nil
	}
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
		case '\n':
		default:
			continue
		}
		if i+1 < len(src) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// scanner walks the source byte by byte and records token boundaries.
type scanner struct {
	src  string
	pos  int
	file *token.File
}

func newScanner(name, src string) *scanner {
	f := token.NewFile(name, len(src))
	for _, off := range LineStarts(src) {
		f.AddLine(off)
	}
	sc := &scanner{src: src, file: f}
	if strings.HasPrefix(src, bom) {
		sc.pos = len(bom)
	}
	return sc
}

// position converts a byte offset to a token.Position (1-based column).
func (s *scanner) position(off int) token.Position {
	return s.file.Position(s.file.Pos(off))
}

// at converts a byte offset to a Pos with a 0-based column.
func (s *scanner) at(off int) Pos {
	p := s.position(off)
	return Pos{Line: p.Line, Column: p.Column - 1}
}

// lines returns the physical lines from first through last, inclusive.
func (s *scanner) lines(first, last int) string {
	start := s.file.Offset(s.file.LineStart(first))
	end := len(s.src)
	if last < s.file.LineCount() {
		end = s.file.Offset(s.file.LineStart(last + 1))
	}
	return s.src[start:end]
}

func (s *scanner) errorf(off int, format string, args ...any) *Error {
	return &Error{Pos: s.position(off), Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) emit(kind Kind, start, end int) Token {
	sp, ep := s.at(start), s.at(end)
	return Token{
		Kind:  kind,
		Text:  s.src[start:end],
		Start: sp,
		End:   ep,
		Line:  s.lines(sp.Line, ep.Line),
	}
}

// peek returns the byte n positions ahead, or 0 past the end.
func (s *scanner) peek(n int) byte {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

func (s *scanner) lookingAt(prefix string) bool {
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

// next returns the next token; ok is false at end of input.
func (s *scanner) next() (Token, bool, error) {
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\f' || ch == '\n' || ch == '\r':
			s.pos++
		case ch == '\\' && (s.peek(1) == '\n' || s.peek(1) == '\r'):
			// explicit line joining
			s.pos++
			s.skipNewline()
		case ch == '#':
			start := s.pos
			for s.pos < len(s.src) && s.src[s.pos] != '\n' && s.src[s.pos] != '\r' {
				s.pos++
			}
			return s.emit(Other, start, s.pos), true, nil
		case ch == '\'' || ch == '"':
			start := s.pos
			if err := s.scanString(start); err != nil {
				return Token{}, false, err
			}
			return s.emit(String, start, s.pos), true, nil
		case isDigit(ch) || (ch == '.' && isDigit(s.peek(1))):
			start := s.pos
			s.scanNumber()
			return s.emit(Other, start, s.pos), true, nil
		default:
			r, size := utf8.DecodeRuneInString(s.src[s.pos:])
			if !isIdentStart(r) {
				start := s.pos
				s.pos += size
				return s.emit(Other, start, s.pos), true, nil
			}
			start := s.pos
			s.scanIdent()
			word := s.src[start:s.pos]
			if q := s.peek(0); (q == '\'' || q == '"') && stringPrefixes[strings.ToLower(word)] {
				if err := s.scanString(start); err != nil {
					return Token{}, false, err
				}
				return s.emit(String, start, s.pos), true, nil
			}
			return s.emit(Other, start, s.pos), true, nil
		}
	}
	return Token{}, false, nil
}

// scanString consumes a literal whose opening quote is at s.pos. start is
// the offset of the prefix, used for error reporting.
func (s *scanner) scanString(start int) error {
	quote := s.src[s.pos]
	triple := strings.Repeat(string(quote), 3)
	if s.lookingAt(triple) {
		s.pos += 3
		for s.pos < len(s.src) {
			switch {
			case s.src[s.pos] == '\\':
				s.pos++
				if s.pos < len(s.src) {
					s.pos++
				}
			case s.lookingAt(triple):
				s.pos += 3
				return nil
			default:
				s.pos++
			}
		}
		return s.errorf(start, "unterminated triple-quoted string literal")
	}

	s.pos++
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		switch {
		case ch == '\\':
			s.pos++
			if s.pos < len(s.src) && (s.src[s.pos] == '\n' || s.src[s.pos] == '\r') {
				s.skipNewline()
			} else if s.pos < len(s.src) {
				s.pos++
			}
		case ch == '\n' || ch == '\r':
			return s.errorf(start, "unterminated string literal (detected at line %d)", s.position(s.pos).Line)
		case ch == quote:
			s.pos++
			return nil
		default:
			s.pos++
		}
	}
	return s.errorf(start, "unterminated string literal (detected at line %d)", s.position(len(s.src)).Line)
}

// skipNewline consumes one line terminator at s.pos.
func (s *scanner) skipNewline() {
	if s.lookingAt("\r\n") {
		s.pos += 2
		return
	}
	s.pos++
}

func (s *scanner) scanIdent() {
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if !isIdentStart(r) && !unicode.IsDigit(r) {
			return
		}
		s.pos += size
	}
}

// scanNumber consumes a numeric literal loosely: digits, letters,
// underscores and dots, plus a signed exponent.
func (s *scanner) scanNumber() {
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		switch {
		case isDigit(ch) || ch == '_' || ch == '.' || (ch|0x20 >= 'a' && ch|0x20 <= 'z'):
			s.pos++
			if (ch == 'e' || ch == 'E') && (s.peek(0) == '+' || s.peek(0) == '-') && isDigit(s.peek(1)) {
				s.pos++
			}
		default:
			return
		}
	}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// invalidUTF8 returns the offset of the first byte that is not valid
// UTF-8, or -1.
func invalidUTF8(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
