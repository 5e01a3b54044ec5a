// Package scanner discovers issue reports on disk or in a git tree.
package scanner

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/toxicity/internal/vcs"
	"github.com/panbanda/toxicity/pkg/config"
	"github.com/panbanda/toxicity/pkg/report"
)

// Scanner finds report files below a set of paths.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
}

// NewScanner creates a new report scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns loads exclusion patterns from config and, when
// gitignore is set, from the .gitignore files of the repository enclosing root.
func (s *Scanner) loadExcludePatterns(root string, gitignoreFiles bool) {
	s.matchers = s.matchers[:0]
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Analysis.Exclude {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if gitignoreFiles {
		if abs, err := filepath.Abs(root); err == nil {
			if gitRoot := findGitRoot(abs); gitRoot != "" {
				if gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil {
					patterns = append(patterns, gitPatterns...)
				}
			}
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// isExcluded checks if a slash- or separator-delimited path matches any exclusion pattern.
func (s *Scanner) isExcluded(p string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}

	parts := strings.Split(filepath.ToSlash(p), "/")
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// Scan expands paths into report files. Files are kept as given, even with an
// unsupported extension, so the caller reports them; directories are walked
// for .json, .yaml and .yml files. The result is sorted and free of duplicates.
func (s *Scanner) Scan(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		found, err := s.ScanDir(p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ScanDir recursively scans a directory for report files.
// Symlinks that resolve outside root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(root, s.config.Analysis.Gitignore)

	var files []string
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, p)
		if relPath == "." {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(p)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.isExcluded(relPath, false) && report.Supported(p) {
			files = append(files, p)
		}
		return nil
	})

	return files, walkErr
}

// ScanTree selects report files from a git tree. Each of paths names a
// repository-relative file or directory; "" or "." selects the whole tree.
// Config exclusions apply, .gitignore does not since the tree holds only
// committed files.
func (s *Scanner) ScanTree(tree vcs.Tree, paths []string) ([]string, error) {
	entries, err := tree.Entries()
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns("", false)

	prefixes := make([]string, 0, len(paths))
	for _, p := range paths {
		p = path.Clean(filepath.ToSlash(p))
		if p == "." || p == "/" {
			p = ""
		}
		prefixes = append(prefixes, strings.TrimPrefix(p, "./"))
	}
	if len(prefixes) == 0 {
		prefixes = append(prefixes, "")
	}

	var files []string
	for _, e := range entries {
		if !selected(e.Path, prefixes) {
			continue
		}
		explicit := contains(prefixes, e.Path)
		if !explicit && (!report.Supported(e.Path) || s.isExcluded(e.Path, false) || s.excludedDir(e.Path)) {
			continue
		}
		files = append(files, e.Path)
	}
	sort.Strings(files)
	return files, nil
}

// excludedDir reports whether any parent directory of p is excluded.
func (s *Scanner) excludedDir(p string) bool {
	dir := path.Dir(p)
	for dir != "." && dir != "/" {
		if s.isExcluded(dir, true) {
			return true
		}
		dir = path.Dir(dir)
	}
	return false
}

func selected(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(p, root string) bool {
	absPath, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
