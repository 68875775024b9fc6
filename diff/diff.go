// Package diff renders line buffers as unified diffs.
package diff

import (
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of unchanged lines shown around each hunk.
const DefaultContext = 3

const noNewline = "\n\\ No newline at end of file\n"

// Options tunes the rendered diff.
type Options struct {
	// Context is the number of context lines; negative means DefaultContext.
	Context int
}

// Render returns the unified diff turning original into corrected, with
// label as both the "from" and "to" file name. It returns "" when the
// buffers are equal.
func Render(original, corrected []string, label string) (string, error) {
	return RenderWith(original, corrected, label, Options{Context: DefaultContext})
}

// RenderWith is Render with explicit options.
func RenderWith(original, corrected []string, label string, opts Options) (string, error) {
	ctx := opts.Context
	if ctx < 0 {
		ctx = DefaultContext
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        markLastLine(original),
		B:        markLastLine(corrected),
		FromFile: label,
		ToFile:   label,
		Context:  ctx,
	})
}

// markLastLine appends the "no newline" marker to an unterminated final
// line so the hunk stays well formed.
func markLastLine(lines []string) []string {
	n := len(lines)
	if n == 0 || strings.HasSuffix(lines[n-1], "\n") || strings.HasSuffix(lines[n-1], "\r") {
		return lines
	}
	out := make([]string, n)
	copy(out, lines)
	out[n-1] += noNewline
	return out
}

var (
	headerColor  = color.New(color.Bold)
	hunkColor    = color.New(color.FgCyan)
	removedColor = color.New(color.FgRed)
	addedColor   = color.New(color.FgGreen)
)

// Colorize adds ANSI colors to a rendered patch. It honours color.NoColor.
func Colorize(patch string) string {
	if patch == "" {
		return ""
	}
	var sb strings.Builder
	for _, line := range strings.SplitAfter(patch, "\n") {
		if line == "" {
			continue
		}
		body, nl := strings.CutSuffix(line, "\n")
		var c *color.Color
		switch {
		case strings.HasPrefix(body, "--- ") || strings.HasPrefix(body, "+++ "):
			c = headerColor
		case strings.HasPrefix(body, "@@"):
			c = hunkColor
		case strings.HasPrefix(body, "-"):
			c = removedColor
		case strings.HasPrefix(body, "+"):
			c = addedColor
		}
		if c != nil {
			body = c.Sprint(body)
		}
		sb.WriteString(body)
		if nl {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
