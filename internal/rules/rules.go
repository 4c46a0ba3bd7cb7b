// Package rules persists user feedback as behavioral rules, one per line,
// that are injected into every generation prompt.
package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultMaxRules is the retention cap used when none is configured.
const DefaultMaxRules = 100

// Store is a file-backed, ordered list of rules. Once the cap is reached the
// oldest rules are dropped on append.
type Store struct {
	path string
	max  int
	mu   sync.Mutex
}

// NewStore returns a Store persisting to path. max <= 0 uses DefaultMaxRules.
func NewStore(path string, max int) *Store {
	if max <= 0 {
		max = DefaultMaxRules
	}
	return &Store{path: path, max: max}
}

// Path returns the rules file location.
func (s *Store) Path() string { return s.path }

// Append adds a rule. Newlines inside the rule are flattened to spaces and
// blank rules are ignored.
func (s *Store) Append(rule string) error {
	rule = strings.Join(strings.Fields(rule), " ")
	if rule == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read()
	if err != nil {
		return err
	}
	all := append(existing, rule)
	if len(all) > s.max {
		all = all[len(all)-s.max:]
	}
	return s.write(all)
}

// All returns every rule, oldest first. A missing file yields no rules.
func (s *Store) All() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Text returns all rules joined by newlines, as injected into prompts.
func (s *Store) Text() (string, error) {
	all, err := s.All()
	if err != nil {
		return "", err
	}
	return strings.Join(all, "\n"), nil
}

// Remove deletes the rules file and reports whether it existed.
func (s *Store) Remove() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rules: remove: %w", err)
	}
	return true, nil
}

func (s *Store) read() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rules: read: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

func (s *Store) write(all []string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("rules: create dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strings.Join(all, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("rules: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rules: write: %w", err)
	}
	return nil
}
