// Package batch transforms every eligible file under an input directory
// into an output directory, one file per worker at a time.
package batch

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"debundle/pkg/driver"
	"debundle/pkg/reconstruct"
	"debundle/pkg/source"
)

// Options configures a Runner.
type Options struct {
	InputDir        string
	OutputDir       string
	OutputExtension string

	// Include, when set, must match a file's slash-separated path relative
	// to InputDir for the file to be processed.
	Include *regexp2.Regexp

	Workers int
	Logger  *slog.Logger
	Driver  driver.Options

	// Metrics, when set, observes every file. MetricsFile, when also set,
	// receives the registry after each run.
	Metrics     *Metrics
	MetricsFile string
}

// Tally is the outcome of one run.
type Tally struct {
	RunID     string
	Succeeded []*FileResult
	Failed    []*FileResult
	Duration  time.Duration
	Pool      PoolStats
}

// Totals sums the reconstruction reports of every successful file.
func (t *Tally) Totals() *reconstruct.Report {
	total := &reconstruct.Report{Classes: make(map[reconstruct.ClassEncoding]int)}
	for _, r := range t.Succeeded {
		if r.Report == nil {
			continue
		}
		total.Elements += r.Report.Elements
		total.Imports += r.Report.Imports
		total.Exports += r.Report.Exports
		total.Booleans += r.Report.Booleans
		total.IndirectCalls += r.Report.IndirectCalls
		total.Diagnostics += r.Report.Diagnostics
		for enc, n := range r.Report.Classes {
			total.Classes[enc] += n
		}
	}
	return total
}

// Runner processes a directory tree.
type Runner struct {
	opts      Options
	transform TransformFunc
}

// New validates opts and creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.InputDir == "" || opts.OutputDir == "" {
		return nil, fmt.Errorf("input and output directories are required")
	}
	if opts.OutputExtension == "" {
		opts.OutputExtension = ".jsx"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{opts: opts, transform: transformJob(opts.Driver)}, nil
}

// Run processes every eligible file once. Per-file failures are recorded
// in the tally; the returned error is reserved for problems with the run
// itself, such as cancellation or an unreadable input directory.
func (r *Runner) Run(ctx context.Context) (*Tally, error) {
	if err := r.prepare(); err != nil {
		return nil, err
	}
	files, err := r.scan()
	if err != nil {
		return nil, err
	}
	return r.process(ctx, files)
}

// prepare creates the input and output directories when missing.
func (r *Runner) prepare() error {
	for _, dir := range []string{r.opts.InputDir, r.opts.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare %s: %w", dir, err)
		}
	}
	return nil
}

// scan lists eligible files as slash-separated paths relative to the input
// directory, in lexical order.
func (r *Runner) scan() ([]string, error) {
	outAbs, _ := filepath.Abs(r.opts.OutputDir)
	var files []string
	err := filepath.WalkDir(r.opts.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); abs == outAbs {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(r.opts.InputDir, path)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); r.eligible(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", r.opts.InputDir, err)
	}
	return files, nil
}

// eligible reports whether the relative path rel should be processed.
func (r *Runner) eligible(rel string) bool {
	if !strings.EqualFold(filepath.Ext(rel), ".js") {
		return false
	}
	if r.opts.Include == nil {
		return true
	}
	ok, err := r.opts.Include.MatchString(rel)
	return err == nil && ok
}

func (r *Runner) outPath(rel string) string {
	return filepath.Join(r.opts.OutputDir, filepath.FromSlash(source.OutputName(rel, r.opts.OutputExtension)))
}

// process runs files through a worker pool and collects the tally.
func (r *Runner) process(ctx context.Context, files []string) (*Tally, error) {
	start := time.Now()
	tally := &Tally{RunID: uuid.NewString()}
	logger := r.opts.Logger.With(slog.String("run_id", tally.RunID))
	logger.Info("batch started",
		slog.String("input", r.opts.InputDir),
		slog.String("output", r.opts.OutputDir),
		slog.Int("files", len(files)),
	)

	g, gctx := errgroup.WithContext(ctx)
	pool := newWorkerPool(r.opts.Workers, r.transform)
	if err := pool.Start(gctx); err != nil {
		return nil, err
	}

	g.Go(func() error {
		defer pool.Close()
		for _, rel := range files {
			job := &Job{Root: r.opts.InputDir, RelPath: rel, OutPath: r.outPath(rel)}
			if err := pool.Submit(job); err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		for res := range pool.Results() {
			r.record(logger, tally, res)
		}
		return nil
	})

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	byPath := func(a, b *FileResult) int { return cmp.Compare(a.RelPath, b.RelPath) }
	slices.SortFunc(tally.Succeeded, byPath)
	slices.SortFunc(tally.Failed, byPath)
	tally.Duration = time.Since(start)
	tally.Pool = pool.Stats()

	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveTally(tally)
		if r.opts.MetricsFile != "" {
			if werr := r.opts.Metrics.WriteTextfile(r.opts.MetricsFile); werr != nil {
				logger.Warn("metrics file not written", slog.String("path", r.opts.MetricsFile), slog.Any("error", werr))
			}
		}
	}

	logger.Info("batch finished",
		slog.Int("succeeded", len(tally.Succeeded)),
		slog.Int("failed", len(tally.Failed)),
		slog.Duration("duration", tally.Duration),
	)
	if err != nil {
		return tally, fmt.Errorf("batch %s interrupted: %w", tally.RunID, err)
	}
	return tally, nil
}

func (r *Runner) record(logger *slog.Logger, tally *Tally, res *FileResult) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.Observe(res)
	}
	if res.Err != nil {
		tally.Failed = append(tally.Failed, res)
		logger.Warn("file failed",
			slog.String("file", res.RelPath),
			slog.String("error", driver.Describe(nil, res.Err)),
		)
		return
	}
	tally.Succeeded = append(tally.Succeeded, res)
	logger.Debug("file transformed",
		slog.String("file", res.RelPath),
		slog.Int("rewrites", res.Report.Total()),
		slog.Duration("duration", res.Duration),
		slog.Int("worker", res.WorkerID),
	)
}
