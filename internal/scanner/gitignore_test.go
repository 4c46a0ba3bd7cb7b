package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/memvra/docbot/internal/extract"
)

func TestHardIgnore(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"node_modules", true},
		{".git", true},
		{".docbot", true},
		{"__pycache__", true},
		{"invoices", false},
		{"docs", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HardIgnore(tt.name)
			if got != tt.want {
				t.Errorf("HardIgnore(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestSkipFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".DS_Store", true},
		{".upload-1234", true},
		{"notes.txt~", true},
		{"report.pdf.part", true},
		{"draft.swp", true},
		{"notes.txt", false},
		{"scan.png", false},
		{"report.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SkipFile(tt.name)
			if got != tt.want {
				t.Errorf("SkipFile(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestIgnoreMatcher_NoIgnoreFiles(t *testing.T) {
	m := NewIgnoreMatcher(t.TempDir())
	if m.Match("anything.txt") {
		t.Error("expected no-op matcher to accept all files")
	}
}

func TestIgnoreMatcher_WithGitignore(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\nbuild/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".docbotignore"), []byte("private/\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewIgnoreMatcher(dir, "*.csv")
	if !m.Match("debug.log") {
		t.Error("expected .log files to be ignored")
	}
	if !m.Match("build/output.txt") {
		t.Error("expected build/ dir to be ignored")
	}
	if !m.Match("private/diary.md") {
		t.Error("expected .docbotignore patterns to apply")
	}
	if !m.Match("export.csv") {
		t.Error("expected extra patterns to apply")
	}
	if m.Match("notes.txt") {
		t.Error("expected notes.txt to NOT be ignored")
	}
}

func TestCategoryForFile(t *testing.T) {
	tests := []struct {
		name string
		want extract.Category
	}{
		{"notes.txt", extract.TextCategory},
		{"README.MD", extract.TextCategory},
		{"report.pdf", extract.PDFCategory},
		{"scan.JPG", extract.ImageCategory},
		{"archive.zip", extract.Unsupported},
		{"Makefile", extract.Unsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryForFile(tt.name); got != tt.want {
				t.Errorf("CategoryForFile(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
