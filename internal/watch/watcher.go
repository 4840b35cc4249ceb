// Package watch imports vendor archives as they land in a downloads directory.
//
// The directory is watched non-recursively. File names are filtered with
// doublestar patterns and bursts of events are coalesced by a debounce
// window. Matching files are handed to the callback one at a time, in name
// order, so imports never overlap.
package watch

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 750 * time.Millisecond

// defaultIgnores are partial downloads and editor noise that never trigger a callback.
var defaultIgnores = []string{
	"*.crdownload",
	"*.part",
	"*.download",
	"*.tmp",
	".*",
}

// Config holds the parameters for a Watcher.
type Config struct {
	// Dir is the directory to watch. Subdirectories are not watched.
	Dir string

	// Patterns select which file names trigger the callback. Empty matches every
	// non-ignored file.
	Patterns []string

	// Debounce is the quiet period after the last event before the pending
	// files are processed. Zero or negative falls back to defaultDebounce.
	Debounce time.Duration

	// OnArchive is called once per settled file with its absolute path.
	// Calls are sequential. An error is logged and does not stop the watcher.
	OnArchive func(ctx context.Context, path string) error

	Logger zerolog.Logger
}

// Watcher monitors one directory and feeds settled files to OnArchive.
// Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	dir      string
	debounce time.Duration
	logger   zerolog.Logger
	started  atomic.Bool
}

// New validates cfg and registers Dir with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch: directory is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", dir)
	}
	if err := validatePatterns(cfg.Patterns); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("watch: add directory %q: %w", dir, err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		dir:      dir,
		debounce: debounce,
		logger:   cfg.Logger,
	}, nil
}

// Dir returns the absolute path of the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run blocks until ctx is cancelled. It returns nil on cancellation and an
// error when the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		stopped bool
	)

	// batches carries settled file sets to the single worker below.
	batches := make(chan []string, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for batch := range batches {
			w.process(ctx, batch)
		}
	}()

	// flush holds mu across the send so it can never race the close below.
	flush := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped || len(pending) == 0 {
			return
		}
		names := slices.Sorted(maps.Keys(pending))
		clear(pending)

		select {
		case batches <- names:
		case <-ctx.Done():
		}
	}

	defer func() {
		mu.Lock()
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		close(batches)
		wg.Wait()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("close fsnotify watcher")
		}
	}()

	w.logger.Info().Str("dir", w.dir).Strs("patterns", w.cfg.Patterns).Msg("watching for archives")

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}
			if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(evt.Name)
			if filepath.Dir(evt.Name) != w.dir || !w.Matches(name) {
				continue
			}

			mu.Lock()
			pending[name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, flush)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			w.logger.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// process hands each still-present regular file to the callback in order.
func (w *Watcher) process(ctx context.Context, names []string) {
	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(w.dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			// renamed away (partial download finished under another name) or removed
			continue
		}
		if w.cfg.OnArchive == nil {
			continue
		}
		if err := w.cfg.OnArchive(ctx, path); err != nil {
			w.logger.Error().Err(err).Str("path", path).Msg("archive callback failed")
		}
	}
}

// Matches reports whether a file name passes the ignore list and the configured patterns.
func (w *Watcher) Matches(name string) bool {
	for _, pat := range defaultIgnores {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return false
		}
	}
	if len(w.cfg.Patterns) == 0 {
		return true
	}
	for _, pat := range w.cfg.Patterns {
		if ok, err := doublestar.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

// validatePatterns rejects malformed globs up front so they don't silently never match.
func validatePatterns(patterns []string) error {
	for _, pat := range patterns {
		if _, err := doublestar.Match(pat, ""); err != nil {
			return fmt.Errorf("watch: invalid pattern %q: %w", pat, err)
		}
	}
	return nil
}
