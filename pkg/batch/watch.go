package batch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for a burst of events to settle
// before reprocessing.
const DefaultDebounce = 200 * time.Millisecond

// Watch runs once, then reprocesses files as they are created or written
// until ctx is done. onTally is called after every run.
func (r *Runner) Watch(ctx context.Context, debounce time.Duration, onTally func(*Tally)) error {
	tally, err := r.Run(ctx)
	if err != nil {
		return err
	}
	onTally(tally)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := r.watchTree(watcher, r.opts.InputDir); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger := r.opts.Logger
	logger.Info("watching for changes", slog.String("input", r.opts.InputDir))

	pending := map[string]bool{}
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := r.watchTree(watcher, event.Name); err != nil {
						logger.Warn("directory not watched", slog.String("path", event.Name), slog.Any("error", err))
					}
					continue
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			rel, ok := r.relative(event.Name)
			if !ok || !r.eligible(rel) {
				continue
			}
			pending[rel] = true
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			files := make([]string, 0, len(pending))
			for rel := range pending {
				files = append(files, rel)
			}
			slices.Sort(files)
			clear(pending)

			tally, err := r.process(ctx, files)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			onTally(tally)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

// watchTree adds root and every directory below it, except the output
// directory.
func (r *Runner) watchTree(watcher *fsnotify.Watcher, root string) error {
	outAbs, _ := filepath.Abs(r.opts.OutputDir)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == outAbs {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// relative maps an event path to a slash-separated path under InputDir.
func (r *Runner) relative(path string) (string, bool) {
	rel, err := filepath.Rel(r.opts.InputDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
