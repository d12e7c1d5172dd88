package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"debundle/pkg/batch"
	"debundle/pkg/config"
	"debundle/pkg/driver"
	derrors "debundle/pkg/errors"
	"debundle/pkg/source"
	"debundle/pkg/ux"
)

const (
	exitOK      = 0
	exitUsage   = 64 // command line usage error
	exitFailure = 70 // internal software error
)

// exitError carries the process exit code out of a command. A nil err means
// the command already reported the problem.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func failure(err error) error {
	return &exitError{code: exitFailure, err: err}
}

// execute runs the command line and maps its outcome to an exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if !errors.As(err, &ee) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", root.CommandPath())
		return exitUsage
	}
	if ee.err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", ee.err)
	}
	return ee.code
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "debundle",
		Short: "Reconstruct JSX, classes and ES modules from bundled React scripts",
		Long: `debundle reverses the lowering a bundler applies to React code:
createElement calls become JSX, transpiled classes become class
declarations, and require/exports plumbing becomes import/export.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%w", err)
	})
	root.AddCommand(newRunCmd(), newFileCmd())
	return root
}

type runFlags struct {
	configPath  string
	input       string
	output      string
	include     string
	extension   string
	workers     int
	watch       bool
	metricsFile string
	logLevel    string
	logFormat   string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transform every .js file under the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, &f)
			if err != nil {
				return err
			}
			return runBatch(cmd, cfg, f.watch)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	fl.StringVarP(&f.input, "input", "i", config.DefaultInputDir, "input directory")
	fl.StringVarP(&f.output, "output", "o", config.DefaultOutputDir, "output directory")
	fl.StringVar(&f.include, "include", "", "only process files whose relative path matches this regular expression")
	fl.StringVar(&f.extension, "ext", config.DefaultOutputExtension, "extension of written files")
	fl.IntVarP(&f.workers, "workers", "w", config.DefaultWorkers, "files transformed in parallel")
	fl.BoolVar(&f.watch, "watch", false, "keep running and reprocess files when they change")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after each run")
	fl.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fl.StringVar(&f.logFormat, "log-format", "text", "log format (text or json)")
	return cmd
}

// resolveConfig loads the config file, if any, and applies the flags the
// user set explicitly on top of it.
func resolveConfig(cmd *cobra.Command, f *runFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, usageError("%w", err)
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.InputDir = f.input
	}
	if changed("output") {
		cfg.OutputDir = f.output
	}
	if changed("include") {
		cfg.Include = f.include
	}
	if changed("ext") {
		cfg.OutputExtension = f.extension
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, usageError("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runBatch(cmd *cobra.Command, cfg *config.Config, watch bool) error {
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return usageError("%w", err)
	}
	include, err := cfg.IncludeFilter()
	if err != nil {
		return usageError("%w", err)
	}

	opts := batch.Options{
		InputDir:        cfg.InputDir,
		OutputDir:       cfg.OutputDir,
		OutputExtension: cfg.OutputExtension,
		Include:         include,
		Workers:         cfg.Workers,
		Logger:          logger,
		Driver:          driver.Options{Reconstruct: cfg.ReconstructOptions(logger)},
		MetricsFile:     cfg.MetricsFile,
	}
	if cfg.MetricsFile != "" {
		opts.Metrics = batch.NewMetrics()
	}
	runner, err := batch.New(opts)
	if err != nil {
		return usageError("%w", err)
	}

	printer := ux.NewPrinter(cmd.OutOrStdout())
	ctx := cmd.Context()

	if watch {
		if err := runner.Watch(ctx, batch.DefaultDebounce, printer.Tally); err != nil {
			return failure(err)
		}
		return nil
	}

	tally, err := runner.Run(ctx)
	if tally != nil {
		printer.Tally(tally)
	}
	if err != nil {
		return failure(err)
	}
	if len(tally.Failed) > 0 {
		return &exitError{code: exitFailure}
	}
	return nil
}

func newFileCmd() *cobra.Command {
	var output string
	var stats bool
	cmd := &cobra.Command{
		Use:   "file <input.js>",
		Short: "Transform one file and print the result, or write it with -o",
		Long: `Transform one file. The result goes to standard output unless -o
names an output file. Use "-" to read the input from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transformOne(cmd, args[0], output, stats)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: standard output)")
	cmd.Flags().BoolVar(&stats, "stats", false, "print the reconstruction counts to standard error")
	return cmd
}

func transformOne(cmd *cobra.Command, input, output string, stats bool) error {
	src, err := readSource(cmd, input)
	if err != nil {
		return failure(err)
	}

	res, err := driver.Transform(cmd.Context(), src, driver.Options{})
	if err != nil {
		if positioned := driver.Positioned(err); len(positioned) > 0 {
			derrors.DisplayErrors(cmd.ErrOrStderr(), positioned)
			return &exitError{code: exitFailure}
		}
		return failure(err)
	}

	if output == "" {
		fmt.Fprint(cmd.OutOrStdout(), res.Output)
	} else if err := os.WriteFile(output, []byte(res.Output), 0o644); err != nil {
		return failure(fmt.Errorf("write %s: %w", output, err))
	}

	if stats {
		p := ux.NewPrinter(cmd.ErrOrStderr())
		fmt.Fprintln(cmd.ErrOrStderr(), p.Report(res.Report))
	}
	return nil
}

func readSource(cmd *cobra.Command, input string) (*source.SourceFile, error) {
	if input == "-" {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read standard input: %w", err)
		}
		return source.NewStdinSource(string(content)), nil
	}
	content, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input, err)
	}
	return source.FromFile(input, string(content)), nil
}

// newLogger builds the process logger from a level name and a format.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
