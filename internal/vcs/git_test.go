package vcs

import (
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/panbanda/toxicity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeAt(t *testing.T) {
	dir := t.TempDir()
	first := testutil.InitGitRepo(t, dir, map[string]string{
		"reports/core.json": `{"issues": []}`,
	})

	gitRepo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	testutil.CommitFiles(t, gitRepo, dir, map[string]string{
		"reports/core.json": `{"module": "core", "issues": []}`,
		"reports/web.json":  `{"issues": []}`,
	}, "second")

	repo, err := NewGitOpener().PlainOpen(dir)
	require.NoError(t, err)

	head, err := repo.TreeAt("")
	require.NoError(t, err)
	content, err := head.File("reports/core.json")
	require.NoError(t, err)
	assert.Contains(t, string(content), `"module": "core"`)

	entries, err := head.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	old, err := repo.TreeAt(first)
	require.NoError(t, err)
	content, err = old.File("./reports/core.json")
	require.NoError(t, err)
	assert.Equal(t, `{"issues": []}`, string(content))

	_, err = old.File("reports/web.json")
	assert.Error(t, err)

	_, err = repo.TreeAt("no-such-branch")
	assert.Error(t, err)
}

func TestPlainOpenWithDetect(t *testing.T) {
	dir := t.TempDir()
	testutil.InitGitRepo(t, dir, map[string]string{"a/b.json": "{}"})

	repo, err := NewGitOpener().PlainOpenWithDetect(filepath.Join(dir, "a"))
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(repo.RepoPath())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPlainOpenNotARepository(t *testing.T) {
	_, err := NewGitOpener().PlainOpen(t.TempDir())
	assert.Error(t, err)
}
