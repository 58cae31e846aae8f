package app

import (
	"os"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/ludo-technologies/restructor/internal/loader"
)

// FileHelper provides file operation utilities
type FileHelper struct {
	// RespectGitignore skips files matched by a .gitignore at the root of a
	// collected directory
	RespectGitignore bool
}

// NewFileHelper creates a new FileHelper
func NewFileHelper() *FileHelper {
	return &FileHelper{}
}

// matcher applies gitignore style patterns relative to one root
type matcher struct {
	root      string
	include   *ignore.GitIgnore
	exclude   *ignore.GitIgnore
	gitignore *ignore.GitIgnore
}

func (h *FileHelper) newMatcher(root string, includePatterns, excludePatterns []string) *matcher {
	m := &matcher{root: root}
	if len(includePatterns) > 0 {
		m.include = ignore.CompileIgnoreLines(includePatterns...)
	}
	if len(excludePatterns) > 0 {
		m.exclude = ignore.CompileIgnoreLines(excludePatterns...)
	}
	if h.RespectGitignore {
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			m.gitignore = gi
		}
	}
	return m
}

func (m *matcher) rel(path string) string {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// skipDir reports whether a directory below the root is excluded
func (m *matcher) skipDir(path string) bool {
	rel := m.rel(path) + "/"
	if m.exclude != nil && m.exclude.MatchesPath(rel) {
		return true
	}
	return m.gitignore != nil && m.gitignore.MatchesPath(rel)
}

func (m *matcher) accepts(path string) bool {
	rel := m.rel(path)
	if m.exclude != nil && m.exclude.MatchesPath(rel) {
		return false
	}
	if m.gitignore != nil && m.gitignore.MatchesPath(rel) {
		return false
	}
	return m.include == nil || m.include.MatchesPath(rel)
}

// CollectClassFiles collects class documents from paths. Files named
// directly are kept unless excluded; directory contents must also match an
// include pattern when any are given.
func (h *FileHelper) CollectClassFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			m := h.newMatcher(filepath.Dir(path), nil, excludePatterns)
			if loader.IsClassDocument(path) && m.accepts(path) {
				add(path)
			}
			continue
		}

		m := h.newMatcher(path, includePatterns, excludePatterns)
		var found []string
		if recursive {
			err = filepath.WalkDir(path, func(filePath string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if filePath != path && m.skipDir(filePath) {
						return filepath.SkipDir
					}
					return nil
				}
				if loader.IsClassDocument(filePath) && m.accepts(filePath) {
					found = append(found, filePath)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				filePath := filepath.Join(path, entry.Name())
				if loader.IsClassDocument(filePath) && m.accepts(filePath) {
					found = append(found, filePath)
				}
			}
		}

		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}

	return files, nil
}

// IsValidClassFile checks if a file has a class document extension
func (h *FileHelper) IsValidClassFile(path string) bool {
	return loader.IsClassDocument(path)
}

// FileExists checks if a file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// ReadFile reads file content
func (h *FileHelper) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ResolveFilePaths resolves file paths, returning existing files directly
// or collecting files from directories
func ResolveFilePaths(
	fileHelper *FileHelper,
	paths []string,
	recursive bool,
	includePatterns []string,
	excludePatterns []string,
) ([]string, error) {
	allFiles := true
	for _, path := range paths {
		exists, err := fileHelper.FileExists(path)
		if err != nil || !exists {
			allFiles = false
			break
		}
	}

	// Named documents are taken as given
	if allFiles {
		return paths, nil
	}

	return fileHelper.CollectClassFiles(paths, recursive, includePatterns, excludePatterns)
}
