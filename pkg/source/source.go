// Package source reads issue reports from the filesystem or a git revision.
package source

import (
	"os"
	"sync"

	"github.com/panbanda/toxicity/internal/vcs"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TreeSource reads files from a git tree. Paths are repository-relative.
// It is safe for concurrent use by multiple goroutines.
type TreeSource struct {
	tree vcs.Tree
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree.
func NewTree(tree vcs.Tree) *TreeSource {
	return &TreeSource{tree: tree}
}

// Open resolves rev in the repository containing dir and returns a source
// over that revision's tree.
func Open(opener vcs.Opener, dir, rev string) (*TreeSource, error) {
	repo, err := opener.PlainOpenWithDetect(dir)
	if err != nil {
		return nil, err
	}
	tree, err := repo.TreeAt(rev)
	if err != nil {
		return nil, err
	}
	return NewTree(tree), nil
}

// Read implements ContentSource.
func (t *TreeSource) Read(path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.File(path)
}
