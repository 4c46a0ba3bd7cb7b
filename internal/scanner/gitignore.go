package scanner

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFiles are read from the scan root, in order.
var IgnoreFiles = []string{".gitignore", ".docbotignore"}

// IgnoreMatcher wraps a gitignore pattern matcher.
type IgnoreMatcher struct {
	gi *gitignore.GitIgnore
}

// NewIgnoreMatcher compiles .gitignore and .docbotignore from root plus any
// extra patterns. With no patterns at all the matcher accepts everything.
func NewIgnoreMatcher(root string, extra ...string) *IgnoreMatcher {
	var lines []string
	for _, name := range IgnoreFiles {
		lines = append(lines, readLines(filepath.Join(root, name))...)
	}
	lines = append(lines, extra...)
	if len(lines) == 0 {
		return &IgnoreMatcher{}
	}
	return &IgnoreMatcher{gi: gitignore.CompileIgnoreLines(lines...)}
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Match returns true if the given relative path should be ignored.
func (m *IgnoreMatcher) Match(relPath string) bool {
	if m == nil || m.gi == nil {
		return false
	}
	return m.gi.MatchesPath(filepath.ToSlash(relPath))
}

// hardIgnored contains directories that are always skipped.
var hardIgnored = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	".git":         true,
	".docbot":      true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".cache":       true,
	".Trash":       true,
}

// HardIgnore returns true if the directory name is always excluded.
func HardIgnore(name string) bool {
	return hardIgnored[name]
}

// SkipFile returns true for files that are never imported: dotfiles,
// editor swap files and partial uploads.
func SkipFile(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return true
	}
	switch {
	case strings.HasSuffix(name, "~"),
		strings.HasSuffix(name, ".swp"),
		strings.HasSuffix(name, ".tmp"),
		strings.HasSuffix(name, ".part"),
		strings.HasSuffix(name, ".crdownload"):
		return true
	}
	return false
}
