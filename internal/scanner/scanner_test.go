package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/panbanda/toxicity/internal/testutil"
	"github.com/panbanda/toxicity/internal/vcs"
	"github.com/panbanda/toxicity/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relAll(t *testing.T, root string, files []string) []string {
	t.Helper()
	rel := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel[i] = filepath.ToSlash(r)
	}
	return rel
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s.config == nil {
		t.Fatal("NewScanner(nil) should fall back to the default config")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"core.json":               "{}",
		"web/report.yaml":         "issues: []",
		"web/notes.txt":           "ignored",
		"api/v1/report.yml":       "issues: []",
		".toxicity/cache/x.json":  "{}",
		"node_modules/dep/a.json": "{}",
	})

	files, err := NewScanner(config.DefaultConfig()).ScanDir(tmpDir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"core.json", "web/report.yaml", "api/v1/report.yml"}, relAll(t, tmpDir, files))
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".git"), 0755))
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		".gitignore":       "build\n",
		"build/old.json":   "{}",
		"reports/new.json": "{}",
	})

	cfg := config.DefaultConfig()
	files, err := NewScanner(cfg).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/new.json"}, relAll(t, tmpDir, files))

	cfg.Analysis.Gitignore = false
	files, err = NewScanner(cfg).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"build/old.json", "reports/new.json"}, relAll(t, tmpDir, files))
}

func TestScanDirExcludePatterns(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"a.json":        "{}",
		"a.draft.json":  "{}",
		"drafts/b.json": "{}",
	})

	cfg := config.DefaultConfig()
	cfg.Analysis.Exclude = []string{"*.draft.json", "drafts/"}

	files, err := NewScanner(cfg).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json"}, relAll(t, tmpDir, files))
}

func TestScan(t *testing.T) {
	tmpDir := t.TempDir()
	testutil.CreateFileTree(t, tmpDir, map[string]string{
		"reports/a.json": "{}",
		"reports/b.yaml": "issues: []",
		"extra.xml":      "<x/>",
	})

	files, err := NewScanner(nil).Scan([]string{
		filepath.Join(tmpDir, "reports"),
		filepath.Join(tmpDir, "reports", "a.json"),
		filepath.Join(tmpDir, "extra.xml"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"extra.xml", "reports/a.json", "reports/b.yaml"}, relAll(t, tmpDir, files),
		"explicit files are kept, duplicates removed, output sorted")

	_, err = NewScanner(nil).Scan([]string{filepath.Join(tmpDir, "missing")})
	assert.Error(t, err)
}

func TestScanDirWithSymlinkOutsideRoot(t *testing.T) {
	outside := t.TempDir()
	testutil.WriteFile(t, filepath.Join(outside, "secret.json"), "{}")

	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "a.json"), "{}")
	if err := os.Symlink(filepath.Join(outside, "secret.json"), filepath.Join(root, "link.json")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	files, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json"}, relAll(t, root, files))
}

func TestScanTree(t *testing.T) {
	dir := t.TempDir()
	testutil.InitGitRepo(t, dir, map[string]string{
		"reports/core.json":      "{}",
		"reports/web.yaml":       "issues: []",
		"reports/README.md":      "docs",
		"other/x.json":           "{}",
		".toxicity/cache/c.json": "{}",
	})

	repo, err := vcs.NewGitOpener().PlainOpen(dir)
	require.NoError(t, err)
	tree, err := repo.TreeAt("HEAD")
	require.NoError(t, err)

	s := NewScanner(config.DefaultConfig())

	all, err := s.ScanTree(tree, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"other/x.json", "reports/core.json", "reports/web.yaml"}, all)

	some, err := s.ScanTree(tree, []string{"./reports"})
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/core.json", "reports/web.yaml"}, some)

	explicit, err := s.ScanTree(tree, []string{"reports/README.md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/README.md"}, explicit)
}

func TestFindGitRoot(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, dir, findGitRoot(nested))
	assert.Equal(t, "", findGitRoot(t.TempDir()))
}

func TestIsWithinRoot(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/a/b/c", "/a/b", true},
		{"/a/b", "/a/b", true},
		{"/a/bc", "/a/b", false},
		{"/x", "/a/b", false},
	}
	for _, tt := range tests {
		if got := isWithinRoot(tt.path, tt.root); got != tt.want {
			t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
		}
	}
}
