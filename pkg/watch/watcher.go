// Package watch re-runs work when watched input files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write before a
// change is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors files for changes and calls OnChange once per burst of
// writes. Calls for the same file never overlap.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	files  map[string]*fileState
	timers map[string]*time.Timer

	// OnChange is called with the absolute path of a changed file.
	OnChange func(ctx context.Context, path string) error
}

type fileState struct {
	lastModified time.Time
	size         int64
	processing   bool
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// NewWatcher creates a new file watcher.
func NewWatcher(opts Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Watcher{
		fs:       fsWatcher,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		files:    make(map[string]*fileState),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch starts watching a file for changes. The containing directory is
// watched so that files replaced by rename are still seen.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	w.mu.Lock()
	w.files[absPath] = &fileState{
		lastModified: stat.ModTime(),
		size:         stat.Size(),
	}
	w.mu.Unlock()

	if err := w.fs.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	return nil
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			w.fs.Close()
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			w.mu.Lock()
			state, watched := w.files[absPath]
			if watched {
				if timer, ok := w.timers[absPath]; ok {
					timer.Stop()
				}
				w.timers[absPath] = time.AfterFunc(w.debounce, func() {
					w.handleChange(ctx, absPath, state)
				})
			}
			w.mu.Unlock()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch: fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) handleChange(ctx context.Context, path string, state *fileState) {
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	if state.processing {
		w.mu.Unlock()
		return
	}
	state.processing = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		state.processing = false
		w.mu.Unlock()
	}()

	stat, err := os.Stat(path)
	if err != nil {
		w.logger.Warn("watch: stat failed", "path", path, "error", err)
		return
	}

	w.mu.Lock()
	unchanged := stat.ModTime().Equal(state.lastModified) && stat.Size() == state.size
	state.lastModified = stat.ModTime()
	state.size = stat.Size()
	w.mu.Unlock()
	if unchanged {
		return
	}

	w.logger.Debug("watch: file changed", "path", path, "size", stat.Size())
	if w.OnChange != nil {
		if err := w.OnChange(ctx, path); err != nil {
			w.logger.Error("watch: change handler failed", "path", path, "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.stopTimers()
	return w.fs.Close()
}
