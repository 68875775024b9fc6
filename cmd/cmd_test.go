package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rubiojr/escfix/tokenize"
	"github.com/rubiojr/escfix/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	cmd := New("test", strings.NewReader(stdin), &stdout)
	err := cmd.Run(context.Background(), append([]string{"escfix"}, args...))
	return stdout.String(), err
}

func expectedPatch(label, before, after string) string {
	return "--- " + label + "\n" +
		"+++ " + label + "\n" +
		"@@ -1 +1 @@\n" +
		"-" + before + "\n" +
		"+" + after + "\n"
}

func TestFixSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "a = '\\d'\n")

	out, err := runCLI(t, "", path)
	require.NoError(t, err)
	assert.Equal(t, expectedPatch(path, `a = '\d'`, `a = r'\d'`)+"\n", out)
}

func TestFixInputFlag(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.py", "a = u'\\d'\n")
	b := writeFile(t, dir, "b.py", "b = r'\\d'\n")

	out, err := runCLI(t, "", "--input", a, "-i", b)
	require.NoError(t, err)
	// b.py needs no fix: its block is just the separator.
	assert.Equal(t, expectedPatch(a, `a = u'\d'`, `a = ru'\d'`)+"\n"+"\n", out)
}

func TestFixStdin(t *testing.T) {
	out, err := runCLI(t, "x = '\\w'\n")
	require.NoError(t, err)
	assert.Equal(t, expectedPatch("<stdin>", `x = '\w'`, `x = r'\w'`)+"\n", out)

	out, err = runCLI(t, "x = '\\w'\n", "-")
	require.NoError(t, err)
	assert.Equal(t, expectedPatch("<stdin>", `x = '\w'`, `x = r'\w'`)+"\n", out)
}

func TestFixOutputFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "a = '\\d'\n")
	patchPath := filepath.Join(dir, "fix.patch")

	out, err := runCLI(t, "", "-o", patchPath, path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(patchPath)
	require.NoError(t, err)
	assert.Equal(t, expectedPatch(path, `a = '\d'`, `a = r'\d'`)+"\n", string(data))
}

func TestFixParallelKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	var want strings.Builder
	for i := 0; i < 12; i++ {
		name := string(rune('a'+i)) + ".py"
		path := writeFile(t, dir, name, "s = '\\d'\n")
		paths = append(paths, path)
		want.WriteString(expectedPatch(path, `s = '\d'`, `s = r'\d'`) + "\n")
	}

	out, err := runCLI(t, "", append([]string{"--jobs", "4"}, paths...)...)
	require.NoError(t, err)
	assert.Equal(t, want.String(), out)
}

func TestFixAbortsAtFirstFailure(t *testing.T) {
	for _, jobs := range []string{"1", "3"} {
		t.Run("jobs="+jobs, func(t *testing.T) {
			dir := t.TempDir()
			good := writeFile(t, dir, "good.py", "a = '\\d'\n")
			bad := writeFile(t, dir, "bad.py", "b = 'unterminated\n")
			later := writeFile(t, dir, "later.py", "c = '\\d'\n")

			out, err := runCLI(t, "", "-j", jobs, good, bad, later)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tokenize.ErrSyntax))
			assert.Contains(t, err.Error(), bad+":1:5: unterminated string literal")
			assert.Equal(t, expectedPatch(good, `a = '\d'`, `a = r'\d'`)+"\n", out)
		})
	}
}

func TestFixMissingFile(t *testing.T) {
	_, err := runCLI(t, "", filepath.Join(t.TempDir(), "nope.py"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading ")
}

func TestFixCheck(t *testing.T) {
	dir := t.TempDir()
	dirty := writeFile(t, dir, "dirty.py", "a = '\\d'\n")
	clean := writeFile(t, dir, "clean.py", "a = '\\n'\n")

	_, err := runCLI(t, "", "--check", dirty)
	assert.True(t, errors.Is(err, ErrFixesFound))

	out, err := runCLI(t, "", "--check", clean)
	require.NoError(t, err)
	assert.Equal(t, "\n", out)
}

func TestFixContextFlag(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ctx.py", "x = 1\ny = 2\na = '\\d'\nz = 3\n")

	out, err := runCLI(t, "", "-U", "0", path)
	require.NoError(t, err)
	assert.Contains(t, out, "@@ -3 +3 @@\n")
	assert.NotContains(t, out, " y = 2\n")

	out, err = runCLI(t, "", path)
	require.NoError(t, err)
	assert.Contains(t, out, "@@ -1,4 +1,4 @@\n")

	_, err = runCLI(t, "", "--context=-1", path)
	assert.Error(t, err)
}

func TestFixColorFlag(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "a = '\\d'\n")

	out, err := runCLI(t, "", "--color", "always", path)
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[32m+a = r'\\d'\x1b[0m")

	out, err = runCLI(t, "", "--color", "never", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "\x1b[")

	// auto on a non-terminal writer stays plain
	out, err = runCLI(t, "", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "\x1b[")

	_, err = runCLI(t, "", "--color", "sometimes", path)
	assert.Error(t, err)
}

func TestFixVerbose(t *testing.T) {
	var log bytes.Buffer
	ui.SetOutput(&log)
	defer ui.SetOutput(os.Stderr)

	dir := t.TempDir()
	path := writeFile(t, dir, "v.py", "x = 1\ny = ('\\d' '\\w\\q')\n")

	_, err := runCLI(t, "", "--verbose", "--color", "never", path)
	require.NoError(t, err)
	assert.Contains(t, log.String(), path+":2:6: invalid escape sequence '\\d'\n")
	assert.Contains(t, log.String(), path+":2:11: invalid escape sequence '\\w', '\\q'\n")
	assert.Contains(t, log.String(), "2 fix(es) proposed in 1 of 1 file(s)\n")
}

func TestFixLegacyEncoding(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "latin.py", "# coding: latin-1\ns = 'caf\xe9 \\d'\n")

	out, err := runCLI(t, "", path)
	require.NoError(t, err)
	assert.Contains(t, out, "-s = 'caf\xe9 \\d'\n+s = r'caf\xe9 \\d'\n")
}

func TestFixAppliedPatchIsClean(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fixed.py", "a = r'\\d'\nb = ('x' r'\\w')\n")

	out, err := runCLI(t, "", path)
	require.NoError(t, err)
	assert.Equal(t, "\n", out)
}
