package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/rubiojr/escfix/diff"
	"github.com/rubiojr/escfix/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// ErrFixesFound is returned in --check mode when at least one fix was
// proposed. Execute exits with status 1 without printing it.
var ErrFixesFound = errors.New("invalid escape sequences found")

// Execute runs the escfix CLI with the given version string.
func Execute(version string) {
	cmd := New(version, os.Stdin, os.Stdout)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, ErrFixesFound) {
			ui.Error("error: %v", err)
		}
		os.Exit(1)
	}
}

// New builds the root command. stdin and stdout are the default input and
// output streams.
func New(version string, stdin io.Reader, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:                      "escfix",
		Usage:                     "Propose raw-string fixes for invalid escape sequences in Python sources",
		Version:                   version,
		ArgsUsage:                 "[file.py ...]",
		UseShortOptionHandling:    true,
		DisableSliceFlagSeparator: true,
		Writer:                    stdout,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:      "input",
				Aliases:   []string{"i"},
				Usage:     "Source file to scan (repeatable, - for stdin)",
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:      "output",
				Aliases:   []string{"o"},
				Usage:     "Write patches to this file instead of stdout",
				TakesFile: true,
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "Files processed in parallel",
				Value:   1,
			},
			&cli.IntFlag{
				Name:    "context",
				Aliases: []string{"U"},
				Usage:   "Lines of context around each change",
				Value:   diff.DefaultContext,
			},
			&cli.StringFlag{
				Name:      "color",
				Usage:     "Colorize patches: auto, always or never",
				Value:     "auto",
				Validator: validateColorMode,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Report every proposed fix on stderr",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Exit with status 1 when any fix is proposed",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return fixAction(ctx, cmd, stdin, stdout)
		},
	}
}

func fixAction(ctx context.Context, cmd *cli.Command, stdin io.Reader, stdout io.Writer) error {
	paths := slices.Concat(cmd.StringSlice("input"), cmd.Args().Slice())
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	if cmd.Int("context") < 0 {
		return fmt.Errorf("--context must not be negative")
	}

	out := stdout
	toStdout := true
	if path := cmd.String("output"); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		out = f
		toStdout = false
	}

	colorize := useColor(cmd.String("color"), toStdout, stdout)
	ui.SetColor(colorize)

	r := &runner{
		stdin:    stdin,
		jobs:     cmd.Int("jobs"),
		opts:     diff.Options{Context: cmd.Int("context")},
		colorize: colorize,
		verbose:  cmd.Bool("verbose"),
	}
	summary, err := r.run(ctx, inputsFor(paths), out)
	if err != nil {
		return err
	}
	if r.verbose {
		ui.Info("%d fix(es) proposed in %d of %d file(s)", summary.fixes, summary.changedFiles, summary.files)
	}
	if cmd.Bool("check") && summary.fixes > 0 {
		return ErrFixesFound
	}
	return nil
}

func validateColorMode(mode string) error {
	switch mode {
	case "auto", "always", "never":
		return nil
	}
	return fmt.Errorf("invalid color mode %q (want auto, always or never)", mode)
}

// useColor decides whether patches and messages are colored. In auto mode
// color needs a terminal on stdout and no NO_COLOR in the environment.
func useColor(mode string, toStdout bool, stdout io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if !toStdout || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
