package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func rels(res ScanResult) []string {
	var out []string
	for _, c := range res.Files {
		out = append(out, filepath.ToSlash(c.Rel))
	}
	return out
}

func TestScan_FindsIngestibleFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.txt", "hello")
	writeFile(t, root, "docs/report.pdf", "%PDF-1.4")
	writeFile(t, root, "docs/scans/receipt.jpg", "\xff\xd8\xff")
	writeFile(t, root, "archive.zip", "PK")
	writeFile(t, root, ".hidden.txt", "secret")
	writeFile(t, root, "empty.txt", "")
	writeFile(t, root, "node_modules/pkg/readme.md", "ignored")
	writeFile(t, root, ".docbot/downloads/copy.txt", "ignored")

	res := Scan(ScanOptions{Root: root})
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	got := rels(res)
	want := []string{"docs/report.pdf", "docs/scans/receipt.jpg", "notes.txt"}
	if len(got) != len(want) {
		t.Fatalf("files: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("files[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
	if res.Skipped != 3 {
		t.Errorf("skipped: got %d, want 3", res.Skipped)
	}
	for _, c := range res.Files {
		if !filepath.IsAbs(c.Path) {
			t.Errorf("%s: path %q is not absolute", c.Rel, c.Path)
		}
		if c.Size == 0 {
			t.Errorf("%s: size should be set", c.Rel)
		}
	}
}

func TestScan_RespectsIgnoreFilesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "private/\n")
	writeFile(t, root, "private/diary.md", "dear diary")
	writeFile(t, root, "data.csv", "a,b")
	writeFile(t, root, "keep.md", "keep")

	res := Scan(ScanOptions{Root: root, ExcludeGlobs: []string{"*.csv"}})
	got := rels(res)
	if len(got) != 1 || got[0] != "keep.md" {
		t.Errorf("files: got %v, want [keep.md]", got)
	}
}

func TestScan_NoRecurseAndMaxSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.txt", "top")
	writeFile(t, root, "big.txt", "0123456789")
	writeFile(t, root, "sub/nested.txt", "nested")

	res := Scan(ScanOptions{Root: root, NoRecurse: true, MaxFileSize: 5})
	got := rels(res)
	if len(got) != 1 || got[0] != "top.txt" {
		t.Errorf("files: got %v, want [top.txt]", got)
	}
}

func TestCheck(t *testing.T) {
	ignore := NewIgnoreMatcher(t.TempDir(), "*.log")
	tests := []struct {
		rel  string
		want bool
	}{
		{"notes.txt", true},
		{filepath.Join("a", "b", "scan.png"), true},
		{filepath.Join("vendor", "x.txt"), false},
		{"server.log", false},
		{"binary.exe", false},
		{".env", false},
	}
	for _, tt := range tests {
		if got := Check(tt.rel, ignore); got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestHashFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "same")
	writeFile(t, root, "b.txt", "same")
	writeFile(t, root, "c.txt", "different")

	a, err := HashFile(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := HashFile(filepath.Join(root, "b.txt"))
	c, _ := HashFile(filepath.Join(root, "c.txt"))
	if a != b {
		t.Error("identical content should hash equal")
	}
	if a == c {
		t.Error("different content should hash differently")
	}
	if _, err := HashFile(filepath.Join(root, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
