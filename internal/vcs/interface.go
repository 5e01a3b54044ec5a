// Package vcs provides version control system abstractions.
package vcs

// Repository provides access to the revisions of a git repository.
type Repository interface {
	// TreeAt returns the tree of the commit that rev resolves to.
	// rev accepts anything git rev-parse does for commits: HEAD, branch
	// and tag names, abbreviated hashes, HEAD~2.
	TreeAt(rev string) (Tree, error)
	// RepoPath returns the root path of the repository.
	RepoPath() string
}

// TreeEntry represents a file in a git tree.
type TreeEntry struct {
	Path string
	Size int64
}

// Tree represents a git tree object.
type Tree interface {
	// File returns the contents of the file at the repository-relative path.
	File(path string) ([]byte, error)
	// Entries returns all files in the tree (recursively).
	Entries() ([]TreeEntry, error)
}

// Opener opens git repositories.
type Opener interface {
	// PlainOpen opens an existing git repository.
	PlainOpen(path string) (Repository, error)
	// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
	PlainOpenWithDetect(path string) (Repository, error)
}

// DefaultOpener returns the go-git backed Opener.
func DefaultOpener() Opener {
	return NewGitOpener()
}
