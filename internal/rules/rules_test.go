package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_AppendAndAll(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "rules.txt"), 0)

	if err := s.Append("Always answer in French."); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append("Keep replies\nshort."); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append("   "); err != nil {
		t.Fatalf("Append blank: %v", err)
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rules, got %d: %v", len(all), all)
	}
	if all[1] != "Keep replies short." {
		t.Errorf("newline not flattened: %q", all[1])
	}

	text, _ := s.Text()
	if text != "Always answer in French.\nKeep replies short." {
		t.Errorf("Text = %q", text)
	}
}

func TestStore_MissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "rules.txt"), 0)
	all, err := s.All()
	if err != nil || len(all) != 0 {
		t.Errorf("All = %v, %v", all, err)
	}
	if err := s.Append("first"); err != nil {
		t.Fatalf("Append into missing dir: %v", err)
	}
}

func TestStore_RetentionCap(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "rules.txt"), 3)
	for i := 1; i <= 5; i++ {
		if err := s.Append(fmt.Sprintf("rule %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	all, _ := s.All()
	if len(all) != 3 || all[0] != "rule 3" || all[2] != "rule 5" {
		t.Errorf("All = %v", all)
	}
}

func TestStore_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.txt")
	s := NewStore(path, 0)

	existed, err := s.Remove()
	if err != nil || existed {
		t.Errorf("Remove on missing = %v, %v", existed, err)
	}

	_ = s.Append("x")
	existed, err = s.Remove()
	if err != nil || !existed {
		t.Errorf("Remove = %v, %v", existed, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("rules file still present")
	}
}
