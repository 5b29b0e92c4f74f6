// Package main provides the wrangle command line.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/razeghi71/wrangle/ast"
	"github.com/razeghi71/wrangle/config"
	"github.com/razeghi71/wrangle/dataset"
	"github.com/razeghi71/wrangle/engine"
	"github.com/razeghi71/wrangle/loader"
	"github.com/razeghi71/wrangle/logger"
	"github.com/razeghi71/wrangle/parser"
	"github.com/razeghi71/wrangle/writer"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitUsageError   = 1
	ExitParseError   = 2
	ExitRuntimeError = 3
)

// Build information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
)

// exitError carries the exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

type options struct {
	format  string
	verbose bool
	quiet   bool
	dryRun  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	logger.SetOutput(stderr)

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(stderr, "error: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra's own failures: unknown command or flag, wrong arg count
	return ExitUsageError
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "wrangle '<query>'",
		Short: "wrangle - chained table transformations",
		Long: `wrangle runs a pipeline of table stages over a file or a bundled dataset.

A query names a source, then stages separated by "|":

  wrangle 'murders | derive rate = total / population * 100000 | filter { rate <= 0.71 } | project state rate'

Sources: .csv, .json, .jsonl, .avro and .parquet files, or a bundled dataset
(see "wrangle datasets").

Exit codes:
  0 - Success
  1 - Usage or configuration errors
  2 - Query parse errors
  3 - Load or evaluation errors`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			switch {
			case opts.verbose:
				logger.SetLevel(slog.LevelDebug)
			case opts.quiet:
				logger.SetLevel(slog.LevelError)
			default:
				logger.SetLevel(slog.LevelWarn)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fail(ExitUsageError, "missing query (try: wrangle 'murders | head 5')")
			}
			format, err := writer.ParseFormat(opts.format)
			if err != nil {
				return &exitError{code: ExitUsageError, err: err}
			}
			q, err := parser.Parse(args[0])
			if err != nil {
				return fail(ExitParseError, "parse error: %w", err)
			}
			return execute(stdout, q, q.Source, format, opts.dryRun)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "", "Output format: text, csv, json or msgpack")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log every stage at debug level")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only log errors")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Parse and list the stages without loading data")

	root.AddCommand(newRunCmd(stdout, opts), newDatasetsCmd(stdout), newVersionCmd(stdout))
	return root
}

func newRunCmd(stdout io.Writer, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Run a pipeline file",
		Long: `Run a pipeline described in a YAML file:

  name: low-rate
  source: murders
  stages:
    - derive rate = total / population * 100000
    - filter { rate <= 0.71 }
    - project state rate
  output:
    format: csv

A relative source path is resolved against the file's directory.
--format overrides output.format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(args[0])
			if err != nil {
				return &exitError{code: ExitUsageError, err: err}
			}
			format := f.Format()
			if cmd.Flags().Changed("format") {
				if format, err = writer.ParseFormat(opts.format); err != nil {
					return &exitError{code: ExitUsageError, err: err}
				}
			}
			q, err := f.Query()
			if err != nil {
				return fail(ExitParseError, "parse error: %w", err)
			}
			return execute(stdout, q, f.PipelineName(), format, opts.dryRun)
		},
	}
}

func newDatasetsCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List bundled datasets",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, name := range dataset.Names() {
				t, _, err := dataset.Lookup(name)
				if err != nil {
					return &exitError{code: ExitRuntimeError, err: err}
				}
				fmt.Fprintf(stdout, "%s\t%d rows\t%v\n", name, t.NumRows(), t.Columns())
			}
			return nil
		},
	}
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "wrangle %s (commit %s)\n", version, commit)
		},
	}
}

// execute compiles q, loads its source, evaluates it and writes the result.
func execute(stdout io.Writer, q *ast.Query, name string, format writer.Format, dryRun bool) error {
	p, err := engine.Compile(q)
	if err != nil {
		return fail(ExitParseError, "compile error: %w", err)
	}
	p = p.Named(name)

	if dryRun {
		fmt.Fprintf(stdout, "source: %s\n", q.Source)
		for i, s := range p.Stages() {
			fmt.Fprintf(stdout, "%d: %s\n", i+1, s.Name())
		}
		return nil
	}

	input, err := loader.Load(q.Source)
	if err != nil {
		logger.Error("load failed", "source", q.Source, "error", err.Error())
		return fail(ExitRuntimeError, "load error: %w", err)
	}
	result, err := p.Evaluate(input)
	if err != nil {
		return fail(ExitRuntimeError, "%w", err)
	}
	logger.Info("pipeline completed", "pipeline", name, "stages", p.Len(), "rows", result.NumRows())

	if err := writer.Write(stdout, result, format); err != nil {
		return fail(ExitRuntimeError, "write error: %w", err)
	}
	return nil
}
