package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/panbanda/toxicity/pkg/models"
)

// WriteFile writes content to a file in the real filesystem.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates multiple files from a map of path -> content.
func CreateFileTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, name), content)
	}
}

// WriteReport writes a JSON issue report for module and returns its path.
func WriteReport(t *testing.T, dir, name, module string, issues []models.Finding) string {
	t.Helper()
	data, err := json.MarshalIndent(map[string]any{
		"module": module,
		"issues": issues,
	}, "", "  ")
	if err != nil {
		t.Fatalf("Marshal report error: %v", err)
	}
	path := filepath.Join(dir, name)
	WriteFile(t, path, string(data))
	return path
}

// InitGitRepo creates a git repository in dir containing files and commits
// them. It returns the commit hash.
func InitGitRepo(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit(%s) error: %v", dir, err)
	}
	return CommitFiles(t, repo, dir, files, "initial")
}

// CommitFiles writes files into the worktree of repo and commits them.
func CommitFiles(t *testing.T, repo *git.Repository, dir string, files map[string]string, message string) string {
	t.Helper()
	CreateFileTree(t, dir, files)

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree error: %v", err)
	}
	for name := range files {
		if _, err := wt.Add(filepath.ToSlash(name)); err != nil {
			t.Fatalf("Add(%s) error: %v", name, err)
		}
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	return hash.String()
}
