// Package ui writes status messages for the command line to stderr.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

var (
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed, color.Bold)
	PathColor    = color.New(color.Bold)
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

// SetOutput redirects all messages; tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetColor forces colors on or off for every message and patch.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

func write(c *color.Color, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	c.Fprintf(out, format, a...)
	fmt.Fprintln(out)
}

func Info(format string, a ...any) {
	write(InfoColor, format, a...)
}

func Success(format string, a ...any) {
	write(SuccessColor, format, a...)
}

func Warning(format string, a ...any) {
	write(WarningColor, format, a...)
}

func Error(format string, a ...any) {
	write(ErrorColor, format, a...)
}

// Fix reports one proposed fix as file:line:col followed by the message.
func Fix(file string, line, col int, format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	loc := PathColor.Sprintf("%s:%d:%d:", file, line, col)
	fmt.Fprintf(out, "%s %s\n", loc, fmt.Sprintf(format, a...))
}
