// Package watch re-runs an analysis when issue reports change on disk.
package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/toxicity/pkg/config"
	"github.com/panbanda/toxicity/pkg/report"
)

// DefaultDebounce is how long a report must stay unchanged before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors report files and calls back with each settled batch of
// changes. Callbacks run one at a time, never concurrently.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	debounce  time.Duration
	roots     []string
	matcher   gitignore.Matcher
	callback  func(changed []string)
	out       io.Writer
	mu        sync.Mutex
	pending   map[string]time.Time
}

// NewWatcher creates a watcher over paths. Directories are watched
// recursively; for a file its directory is watched.
func NewWatcher(paths []string, cfg *config.Config, debounce time.Duration) (*Watcher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var patterns []gitignore.Pattern
	for _, p := range cfg.Analysis.Exclude {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  debounce,
		roots:     paths,
		matcher:   gitignore.NewMatcher(patterns),
		out:       os.Stdout,
		pending:   make(map[string]time.Time),
	}, nil
}

// SetCallback sets the function called with the changed report paths.
func (w *Watcher) SetCallback(cb func(changed []string)) {
	w.callback = cb
}

// SetOutput redirects status messages.
func (w *Watcher) SetOutput(out io.Writer) {
	w.out = out
}

// Start begins watching and blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.roots {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			if err := w.fsWatcher.Add(filepath.Dir(root)); err != nil {
				return err
			}
			continue
		}
		if err := w.addTree(root); err != nil {
			return err
		}
	}

	color.New(color.FgCyan).Fprintf(w.out, "Watching for report changes in %s...\n", strings.Join(w.roots, ", "))
	color.New(color.FgCyan).Fprintln(w.out, "Press Ctrl+C to stop")

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			color.New(color.FgRed).Fprintf(w.out, "Watch error: %v\n", err)
		}
	}
}

// addTree watches root and every directory below it that is not excluded.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && w.excluded(path, true) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// excluded matches path against the configured patterns, relative to the
// watched root that contains it.
func (w *Watcher) excluded(path string, isDir bool) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return w.matcher.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
	}
	return false
}

// handleEvent records report writes, creates, removals and renames. New
// directories are added to the watch.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.excluded(path, true) {
				_ = w.addTree(path)
			}
			return
		}
	}

	if !report.Supported(path) || w.excluded(path, false) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processDebounced flushes settled changes until ctx is cancelled.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ready := w.processPending(); len(ready) > 0 && w.callback != nil {
				w.runCallback(ready)
			}
		}
	}
}

// processPending removes and returns, sorted, the paths that have been
// stable for the debounce period.
func (w *Watcher) processPending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var ready []string
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	sort.Strings(ready)
	return ready
}

func (w *Watcher) runCallback(changed []string) {
	color.New(color.FgYellow).Fprintf(w.out, "\nReports changed: %s\n", strings.Join(changed, ", "))
	w.callback(changed)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedFiles returns the list of watched directories.
func (w *Watcher) WatchedFiles() []string {
	return w.fsWatcher.WatchList()
}
