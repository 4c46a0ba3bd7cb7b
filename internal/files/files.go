// Package files manages the directory that holds uploaded and generated
// documents. A zero-byte file is treated as corrupt: it is hidden from
// listings and deleted the first time it is opened.
package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when no artifact exists under the given name.
	ErrNotFound = errors.New("files: not found")
	// ErrCorrupt is returned when the artifact was zero bytes. The file has
	// already been removed when this is returned.
	ErrCorrupt = errors.New("files: zero-byte file")
	// ErrInvalidName is returned for names that are not a plain base name.
	ErrInvalidName = errors.New("files: invalid name")
	// ErrExists is returned by CreateText when the name is already taken.
	ErrExists = errors.New("files: already exists")
)

// MaxStemLength caps the length of a sanitized file stem.
const MaxStemLength = 48

// textExtensions are returned inline by ReadText callers instead of being
// sent as attachments.
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".log":  true,
}

// Dir is the managed directory. All operations serialize on one mutex so a
// rename never interleaves with a read or delete of the same name.
type Dir struct {
	root string
	mu   sync.Mutex
}

// New returns a Dir rooted at root. The directory is created on first write.
func New(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory path.
func (d *Dir) Root() string { return d.root }

// ValidateName rejects anything but a plain, visible file name.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidName, name)
	}
	return nil
}

// IsText reports whether name has a plain-text-like extension.
func IsText(name string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}

// List returns the names of all non-corrupt artifacts, sorted. Zero-byte
// files are skipped but left in place.
func (d *Dir) List() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("files: list: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the absolute path of a non-empty artifact. A zero-byte
// artifact is deleted and ErrCorrupt returned.
func (d *Dir) Path(name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checked(name)
}

func (d *Dir) checked(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(d.root, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("files: stat %s: %w", name, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if info.Size() == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("files: remove corrupt %s: %w", name, err)
		}
		return "", fmt.Errorf("%w: %s", ErrCorrupt, name)
	}
	return path, nil
}

// ReadText returns the artifact's content as a string.
func (d *Dir) ReadText(name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	path, err := d.checked(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("files: read %s: %w", name, err)
	}
	return string(data), nil
}

// Resolve returns the stored name that matches name case-insensitively, or
// name itself when there is no exact or folded match.
func (d *Dir) Resolve(name string) string {
	if ValidateName(name) != nil {
		return name
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := os.Stat(filepath.Join(d.root, name)); err == nil {
		return name
	}
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return name
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			return e.Name()
		}
	}
	return name
}

// Exists reports whether a file with this name is present, regardless of size.
func (d *Dir) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := os.Stat(filepath.Join(d.root, name))
	return err == nil
}

// Remove deletes the artifact. It returns false, nil when nothing was there.
func (d *Dir) Remove(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.Remove(filepath.Join(d.root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("files: remove %s: %w", name, err)
	}
	return true, nil
}

// Save writes r to name, replacing any existing artifact, and returns the
// absolute path. The content is staged in a hidden temp file first.
func (d *Dir) Save(name string, r io.Reader) (string, error) {
	return d.save(name, r, true)
}

// WriteText saves text under name.
func (d *Dir) WriteText(name, text string) (string, error) {
	return d.Save(name, strings.NewReader(text))
}

// CreateText saves text under name only when no artifact of that name
// exists. It returns ErrExists otherwise.
func (d *Dir) CreateText(name, text string) (string, error) {
	return d.save(name, strings.NewReader(text), false)
}

func (d *Dir) save(name string, r io.Reader, replace bool) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	path := filepath.Join(d.root, name)
	if !replace {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s", ErrExists, name)
		}
	}

	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", fmt.Errorf("files: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(d.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("files: save %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("files: save %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("files: save %s: %w", name, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("files: save %s: %w", name, err)
	}
	return path, nil
}

// Rename moves the artifact old to stem plus old's extension. When that
// name is taken, -1, -2, ... is appended to the stem until a free name is
// found. The final name is returned.
func (d *Dir) Rename(old, stem string) (string, error) {
	if err := ValidateName(old); err != nil {
		return "", err
	}
	stem = SanitizeStem(stem)
	if stem == "" {
		return "", fmt.Errorf("%w: empty stem", ErrInvalidName)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	src := filepath.Join(d.root, old)
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, old)
	}

	ext := strings.ToLower(filepath.Ext(old))
	name := stem + ext
	for i := 1; ; i++ {
		if name == old {
			return old, nil
		}
		if _, err := os.Stat(filepath.Join(d.root, name)); errors.Is(err, fs.ErrNotExist) {
			break
		}
		name = stem + "-" + strconv.Itoa(i) + ext
	}

	if err := os.Rename(src, filepath.Join(d.root, name)); err != nil {
		return "", fmt.Errorf("files: rename %s: %w", old, err)
	}
	return name, nil
}

// RemoveAll deletes every regular file in the directory. Failures are
// collected and do not stop the remaining deletions.
func (d *Dir) RemoveAll() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("files: list: %w", err)
	}

	var (
		removed int
		errs    []error
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(d.root, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// SanitizeStem lowercases s and restricts it to [a-z0-9_-]. Runs of other
// characters collapse to a single '-', and the result is capped at
// MaxStemLength.
func SanitizeStem(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(s); len(ext) <= 5 && !strings.Contains(ext, " ") {
		s = strings.TrimSuffix(s, ext)
	}

	var b strings.Builder
	sep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
		default:
			sep = true
		}
	}

	out := b.String()
	if utf8.RuneCountInString(out) > MaxStemLength {
		out = out[:MaxStemLength]
	}
	return strings.Trim(out, "-_")
}
