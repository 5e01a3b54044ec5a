// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the underlying errors to errors.Is and errors.As.
func (e *ProcessingErrors) Unwrap() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe.Err
	}
	return errs
}

// sortByPath orders the collected errors so reports are deterministic.
func (e *ProcessingErrors) sortByPath() {
	e.mu.Lock()
	sort.SliceStable(e.Errors, func(i, j int) bool {
		return e.Errors[i].Path < e.Errors[j].Path
	})
	e.mu.Unlock()
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Workers returns n, or 2x NumCPU when n <= 0.
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU() * DefaultWorkerMultiplier
	}
	return n
}

// ForEachFile processes files in parallel with the default worker count.
// See ForEachFileN.
func ForEachFile[T any](ctx context.Context, files []string, fn func(context.Context, string) (T, error)) ([]T, *ProcessingErrors) {
	return ForEachFileN(ctx, files, 0, fn, nil)
}

// ForEachFileN processes files with a bounded pool of maxWorkers goroutines.
// Results keep the order of files; failed files are left out and reported in
// the returned errors, which is nil when every file succeeded. Files not yet
// started when ctx is cancelled fail with the context error.
func ForEachFileN[T any](ctx context.Context, files []string, maxWorkers int, fn func(context.Context, string) (T, error), onProgress ProgressFunc) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	slots := make([]T, len(files))
	ok := make([]bool, len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(Workers(maxWorkers)).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			if onProgress != nil {
				defer onProgress()
			}

			if err := ctx.Err(); err != nil {
				errs.Add(path, err)
				return nil
			}

			result, err := fn(ctx, path)
			if err != nil {
				errs.Add(path, err)
				return nil // one bad file does not stop the pool
			}
			slots[i] = result
			ok[i] = true
			return nil
		})
	}
	_ = p.Wait() // per-file errors are already captured in errs

	results := make([]T, 0, len(files))
	for i := range slots {
		if ok[i] {
			results = append(results, slots[i])
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	errs.sortByPath()
	return results, errs
}
