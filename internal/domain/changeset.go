package domain

import (
	"path"
	"sort"
	"strings"
)

// ChangedFile is one file touched by the pull request.
type ChangedFile struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Language  string `json:"language,omitempty"`
}

// ChangeSet is the ordered set of files touched by a pull request.
// It is immutable once built; every diagnostic and coverage sample must
// belong to it or be discarded.
type ChangeSet struct {
	files []ChangedFile
	paths map[string]bool
}

// NewChangeSet builds a ChangeSet from changed files, preserving input order.
func NewChangeSet(files []ChangedFile) *ChangeSet {
	cs := &ChangeSet{
		files: make([]ChangedFile, 0, len(files)),
		paths: make(map[string]bool, len(files)),
	}
	for _, f := range files {
		p := normalizePath(f.Path)
		if p == "" || cs.paths[p] {
			continue
		}
		if f.Language == "" {
			f.Language = DetectLanguage(f.Path)
		}
		cs.paths[p] = true
		cs.files = append(cs.files, f)
	}
	return cs
}

// NewChangeSetFromPaths builds a ChangeSet from bare paths, with no diff stats.
func NewChangeSetFromPaths(paths []string) *ChangeSet {
	files := make([]ChangedFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, ChangedFile{Path: p})
	}
	return NewChangeSet(files)
}

// Files returns the changed files in their original order.
func (cs *ChangeSet) Files() []ChangedFile { return cs.files }

// Paths returns the changed file paths in their original order.
func (cs *ChangeSet) Paths() []string {
	out := make([]string, len(cs.files))
	for i, f := range cs.files {
		out[i] = f.Path
	}
	return out
}

// Len reports the number of changed files.
func (cs *ChangeSet) Len() int { return len(cs.files) }

// Contains reports whether the given path belongs to the change set.
// Tool output often carries absolute paths while the pull-request API reports
// repo-relative ones, so membership is decided by suffix matching on
// normalized paths in either direction.
func (cs *ChangeSet) Contains(filePath string) bool {
	p := normalizePath(filePath)
	if p == "" {
		return false
	}
	if cs.paths[p] {
		return true
	}
	for changed := range cs.paths {
		if suffixMatch(p, changed) || suffixMatch(changed, p) {
			return true
		}
	}
	return false
}

// Languages returns the distinct languages detected in the change set, sorted.
func (cs *ChangeSet) Languages() []string {
	seen := make(map[string]bool)
	for _, f := range cs.files {
		if f.Language != "" {
			seen[f.Language] = true
		}
	}
	out := make([]string, 0, len(seen))
	for lang := range seen {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// TotalAdditions sums lines added across all changed files.
func (cs *ChangeSet) TotalAdditions() int {
	n := 0
	for _, f := range cs.files {
		n += f.Additions
	}
	return n
}

// TotalDeletions sums lines removed across all changed files.
func (cs *ChangeSet) TotalDeletions() int {
	n := 0
	for _, f := range cs.files {
		n += f.Deletions
	}
	return n
}

// DetectLanguage infers a language name from the file extension.
func DetectLanguage(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".py":
		return "python"
	case ".js", ".jsx", ".mjs", ".cjs":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".swift":
		return "swift"
	case ".kt", ".kts":
		return "kotlin"
	case ".java":
		return "java"
	case ".go":
		return "go"
	default:
		return ""
	}
}

// normalizePath cleans a path and strips leading "./" segments so that
// tool output and API output compare equal.
func normalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean(p), "./")
}

// suffixMatch reports whether long ends with short on a path-segment boundary.
func suffixMatch(long, short string) bool {
	if !strings.HasSuffix(long, short) {
		return false
	}
	return len(long) == len(short) || long[len(long)-len(short)-1] == '/'
}
