// Package source loads Python source files, honouring PEP 263 coding
// declarations so files in legacy encodings can be scanned as UTF-8 and
// their patches written back in the original encoding.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used when a file has no coding declaration.
const DefaultEncoding = "utf-8"

// ErrUnknownEncoding is returned for coding declarations naming an
// encoding that cannot be decoded.
var ErrUnknownEncoding = errors.New("unknown source encoding")

var (
	utf8BOM   = []byte("\xef\xbb\xbf")
	cookieRe  = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)
	blankOrRe = regexp.MustCompile(`^[ \t\f]*(?:[#\r\n]|$)`)
)

// File is a loaded source file. Text is always UTF-8.
type File struct {
	Name string
	Text string
	// Encoding is the normalized name of the declared encoding.
	Encoding string
	enc      encoding.Encoding // nil for UTF-8
}

// ReadFile reads and loads the file at path.
func ReadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Load(path, raw)
}

// Read loads a source from r under the given display name.
func Read(name string, r io.Reader) (*File, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return Load(name, raw)
}

// Load decodes raw according to its coding declaration. UTF-8 sources are
// passed through untouched, BOM included; validating them is left to the
// tokenizer, which can report the exact position of a bad byte.
func Load(name string, raw []byte) (*File, error) {
	f := &File{Name: name, Encoding: DefaultEncoding}
	declared, ok := Cookie(raw)
	if !ok {
		f.Text = string(raw)
		return f, nil
	}

	norm := normalizeName(declared)
	enc, err := lookup(norm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w %q", name, ErrUnknownEncoding, declared)
	}
	if enc == unicode.UTF8 {
		f.Text = string(raw)
		return f, nil
	}
	if bytes.HasPrefix(raw, utf8BOM) {
		return nil, fmt.Errorf("%s: encoding problem: %s with BOM", name, declared)
	}

	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: decoding %s: %w", name, norm, err)
	}
	f.Text = string(text)
	f.Encoding = norm
	f.enc = enc
	return f, nil
}

// Encode converts UTF-8 text, typically a rendered patch, back into the
// file's encoding.
func (f *File) Encode(s string) ([]byte, error) {
	if f.enc == nil {
		return []byte(s), nil
	}
	out, err := f.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%s: encoding patch as %s: %w", f.Name, f.Encoding, err)
	}
	return out, nil
}

// Cookie returns the encoding named by a coding declaration on the first
// or second line. The second line is only considered when the first is
// blank or a comment.
func Cookie(raw []byte) (string, bool) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	first, rest, _ := cutLine(raw)
	if m := cookieRe.FindSubmatch(first); m != nil {
		return string(m[1]), true
	}
	if !blankOrRe.Match(first) {
		return "", false
	}
	second, _, _ := cutLine(rest)
	if m := cookieRe.FindSubmatch(second); m != nil {
		return string(m[1]), true
	}
	return "", false
}

func cutLine(b []byte) (line, rest []byte, found bool) {
	i := bytes.IndexAny(b, "\r\n")
	if i < 0 {
		return b, nil, false
	}
	j := i + 1
	if b[i] == '\r' && j < len(b) && b[j] == '\n' {
		j++
	}
	return b[:j], b[j:], true
}

// normalizeName maps the spellings Python accepts onto canonical names:
// underscores become dashes and the utf-8/latin-1 families collapse.
func normalizeName(name string) string {
	n := strings.ReplaceAll(strings.ToLower(name), "_", "-")
	switch {
	case n == "utf-8" || strings.HasPrefix(n, "utf-8-"):
		return "utf-8"
	case n == "latin-1" || n == "iso-8859-1" || n == "iso-latin-1",
		strings.HasPrefix(n, "latin-1-"), strings.HasPrefix(n, "iso-8859-1-"), strings.HasPrefix(n, "iso-latin-1-"):
		return "iso-8859-1"
	}
	return n
}

// lookup resolves an encoding name through the IANA registry first and
// the WHATWG labels second, which adds names like cp1252.
func lookup(name string) (encoding.Encoding, error) {
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, err
	}
	return enc, nil
}
