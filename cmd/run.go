package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rubiojr/escfix/diff"
	"github.com/rubiojr/escfix/escape"
	"github.com/rubiojr/escfix/fixer"
	"github.com/rubiojr/escfix/source"
	"github.com/rubiojr/escfix/ui"
	"golang.org/x/sync/errgroup"
)

const stdinName = "<stdin>"

// input is one file to process. An empty path means stdin.
type input struct {
	path string
}

func (in input) name() string {
	if in.path == "" {
		return stdinName
	}
	return in.path
}

func inputsFor(paths []string) []input {
	inputs := make([]input, len(paths))
	for i, p := range paths {
		if p != "-" {
			inputs[i].path = p
		}
	}
	return inputs
}

// fileResult is the buffered outcome for one input, written in input order.
type fileResult struct {
	name  string
	patch []byte
	fixes []fixer.Fix
	err   error
}

type summary struct {
	files        int
	changedFiles int
	fixes        int
}

type runner struct {
	stdin    io.Reader
	jobs     int
	opts     diff.Options
	colorize bool
	verbose  bool
}

// run processes every input and writes one patch block per file to out,
// each followed by a blank line. Files are independent, so up to r.jobs
// run at once; output is still written in input order. The first failing
// file in that order aborts the run after the patches before it are out.
func (r *runner) run(ctx context.Context, inputs []input, out io.Writer) (summary, error) {
	results := r.processAll(ctx, inputs)

	var sum summary
	for _, res := range results {
		if res.err != nil {
			return sum, res.err
		}
		if _, err := out.Write(res.patch); err != nil {
			return sum, fmt.Errorf("writing patch for %s: %w", res.name, err)
		}
		if _, err := io.WriteString(out, "\n"); err != nil {
			return sum, fmt.Errorf("writing patch for %s: %w", res.name, err)
		}
		sum.files++
		sum.fixes += len(res.fixes)
		if len(res.fixes) > 0 {
			sum.changedFiles++
		}
		if r.verbose {
			reportFixes(res)
		}
	}
	return sum, nil
}

func (r *runner) processAll(ctx context.Context, inputs []input) []fileResult {
	results := make([]fileResult, len(inputs))
	jobs := r.jobs
	if jobs < 1 {
		jobs = 1
	}

	// Per-file failures go into results; only cancellation stops the group.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(inputs), 1)))
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = fileResult{name: in.name(), err: err}
				return err
			}
			results[i] = r.process(in)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// process loads, fixes and renders a single input.
func (r *runner) process(in input) fileResult {
	res := fileResult{name: in.name()}

	f, err := r.load(in)
	if err != nil {
		res.err = err
		return res
	}
	built, err := fixer.Build(f.Name, []byte(f.Text))
	if err != nil {
		res.err = err
		return res
	}
	patch, err := diff.RenderWith(built.Original, built.Corrected, f.Name, r.opts)
	if err != nil {
		res.err = fmt.Errorf("rendering patch for %s: %w", f.Name, err)
		return res
	}
	encoded, err := f.Encode(patch)
	if err != nil {
		res.err = err
		return res
	}
	if r.colorize {
		encoded = []byte(diff.Colorize(string(encoded)))
	}
	res.patch = encoded
	res.fixes = built.Fixes
	return res
}

func (r *runner) load(in input) (*source.File, error) {
	if in.path == "" {
		return source.Read(stdinName, r.stdin)
	}
	return source.ReadFile(in.path)
}

func reportFixes(res fileResult) {
	for _, fix := range res.fixes {
		var seqs []string
		for _, s := range escape.Find(fix.Text) {
			seqs = append(seqs, "'"+s.String()+"'")
		}
		ui.Fix(res.name, fix.Span.StartLine, fix.Column+1, "invalid escape sequence %s", strings.Join(seqs, ", "))
	}
}
