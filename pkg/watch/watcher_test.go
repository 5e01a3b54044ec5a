package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/toxicity/pkg/config"
)

func newTestWatcher(t *testing.T, paths []string, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(paths, config.DefaultConfig(), debounce)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.SetOutput(io.Discard)
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{"default debounce", 0, DefaultDebounce},
		{"negative debounce", -time.Second, DefaultDebounce},
		{"custom debounce", 200 * time.Millisecond, 200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWatcher(t, []string{tmpDir}, tt.debounce)
			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
		})
	}
}

func TestWatcher_handleEvent(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, []string{tmpDir}, time.Second)

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"json write", filepath.Join(tmpDir, "core.json"), fsnotify.Write, true},
		{"yaml create", filepath.Join(tmpDir, "web.yaml"), fsnotify.Create, true},
		{"report removed", filepath.Join(tmpDir, "old.yml"), fsnotify.Remove, true},
		{"chmod ignored", filepath.Join(tmpDir, "mode.json"), fsnotify.Chmod, false},
		{"not a report", filepath.Join(tmpDir, "notes.txt"), fsnotify.Write, false},
		{"excluded dir", filepath.Join(tmpDir, ".toxicity", "cache", "x.json"), fsnotify.Write, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.handleEvent(fsnotify.Event{Name: tt.path, Op: tt.op})

			w.mu.Lock()
			_, got := w.pending[tt.path]
			w.mu.Unlock()
			if got != tt.want {
				t.Errorf("pending[%s] = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWatcher_processPending(t *testing.T) {
	w := newTestWatcher(t, []string{t.TempDir()}, 50*time.Millisecond)

	w.mu.Lock()
	w.pending["b.json"] = time.Now().Add(-time.Second)
	w.pending["a.json"] = time.Now().Add(-time.Second)
	w.pending["fresh.json"] = time.Now()
	w.mu.Unlock()

	ready := w.processPending()
	if len(ready) != 2 || ready[0] != "a.json" || ready[1] != "b.json" {
		t.Errorf("processPending() = %v, want [a.json b.json]", ready)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending["fresh.json"]; !ok {
		t.Error("unsettled path should stay pending")
	}
	if len(w.pending) != 1 {
		t.Errorf("pending = %v, want only fresh.json", w.pending)
	}
}

func TestWatcher_Start_Context(t *testing.T) {
	w := newTestWatcher(t, []string{t.TempDir()}, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Error("Start() did not return after context cancellation")
	}
}

func TestWatcher_Start_MissingPath(t *testing.T) {
	w := newTestWatcher(t, []string{filepath.Join(t.TempDir(), "missing")}, 0)
	if err := w.Start(context.Background()); err == nil {
		t.Error("Start() should fail for a missing path")
	}
}

func TestWatcher_Start_ReportChange(t *testing.T) {
	tmpDir := t.TempDir()
	excluded := filepath.Join(tmpDir, ".toxicity")
	if err := os.MkdirAll(excluded, 0755); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t, []string{tmpDir}, 50*time.Millisecond)

	var calls atomic.Int32
	var mu sync.Mutex
	var last []string
	w.SetCallback(func(changed []string) {
		calls.Add(1)
		mu.Lock()
		last = changed
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	for _, name := range []string{"core.json", "ignored.txt"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(excluded, "cached.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Fatal("callback should be called when a report is written")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(last) != 1 || last[0] != filepath.Join(tmpDir, "core.json") {
		t.Errorf("changed = %v, want only core.json", last)
	}
}

func TestWatcher_WatchedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	for _, dir := range []string{"reports", "reports/nested", "node_modules/x"} {
		if err := os.MkdirAll(filepath.Join(tmpDir, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}

	w := newTestWatcher(t, []string{tmpDir}, 0)
	if err := w.addTree(tmpDir); err != nil {
		t.Fatalf("addTree() error = %v", err)
	}

	watched := make(map[string]bool)
	for _, p := range w.WatchedFiles() {
		watched[p] = true
	}
	for _, want := range []string{tmpDir, filepath.Join(tmpDir, "reports"), filepath.Join(tmpDir, "reports", "nested")} {
		if !watched[want] {
			t.Errorf("%s should be watched", want)
		}
	}
	if watched[filepath.Join(tmpDir, "node_modules")] {
		t.Error("excluded directories should not be watched")
	}
}
