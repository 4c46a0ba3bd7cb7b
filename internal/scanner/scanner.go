// Package scanner finds importable documents under a directory tree.
package scanner

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/memvra/docbot/internal/extract"
)

// DefaultMaxFileSize skips files larger than this unless overridden.
const DefaultMaxFileSize = 64 << 20

// Candidate is one file the scan found worth ingesting.
type Candidate struct {
	Path     string // absolute
	Rel      string // relative to the scan root
	Size     int64
	ModTime  time.Time
	Category extract.Category
}

// ScanResult holds the output of a directory scan.
type ScanResult struct {
	Files   []Candidate
	Skipped int
	Errors  []error
}

// ScanOptions controls scanner behaviour.
type ScanOptions struct {
	Root         string
	MaxFileSize  int64
	ExcludeGlobs []string
	// NoRecurse limits the scan to the root directory itself.
	NoRecurse bool
}

// Scan walks the tree under opts.Root and returns every ingestible file,
// sorted by relative path. It does not read file contents.
func Scan(opts ScanOptions) ScanResult {
	root := opts.Root
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	ignore := NewIgnoreMatcher(root, opts.ExcludeGlobs...)

	var result ScanResult
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, err)
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if opts.NoRecurse || HardIgnore(d.Name()) || ignore.Match(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !Check(rel, ignore) {
			result.Skipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("stat %s: %w", rel, err))
			return nil
		}
		if !info.Mode().IsRegular() || info.Size() == 0 || info.Size() > maxSize {
			result.Skipped++
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		result.Files = append(result.Files, Candidate{
			Path:     abs,
			Rel:      rel,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Category: CategoryForFile(rel),
		})
		return nil
	})
	if err != nil {
		result.Errors = append(result.Errors, err)
	}

	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Rel < result.Files[j].Rel })
	return result
}

// Check reports whether the file at relPath passes every filter: hard
// ignored directories, skipped names, ignore patterns and the supported
// extension list.
func Check(relPath string, ignore *IgnoreMatcher) bool {
	dir := filepath.Dir(relPath)
	if dir != "." {
		for _, part := range strings.Split(dir, string(filepath.Separator)) {
			if HardIgnore(part) {
				return false
			}
		}
	}
	name := filepath.Base(relPath)
	if SkipFile(name) || !Ingestible(name) {
		return false
	}
	return !ignore.Match(relPath)
}

// HashFile returns the hex SHA-256 of the file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
