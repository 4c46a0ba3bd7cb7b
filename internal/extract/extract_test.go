package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestText_Extract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello \xffworld"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Text{}.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "hello �world" {
		t.Errorf("Extract = %q", got)
	}
}

func TestText_ExtractMissing(t *testing.T) {
	if _, err := (Text{}).Extract(context.Background(), filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPDF_ExtractInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (PDF{}).Extract(context.Background(), path); err == nil {
		t.Fatal("expected error for an invalid PDF")
	}
}

func TestTesseract_MissingBinary(t *testing.T) {
	ocr := Tesseract{Binary: filepath.Join(t.TempDir(), "no-such-tesseract")}
	_, err := ocr.OCR(context.Background(), "image.png")
	if !errors.Is(err, ErrOCRUnavailable) {
		t.Errorf("expected ErrOCRUnavailable, got %v", err)
	}
}

func TestDetectMIME(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"notes.txt":  []byte("hello world\n"),
		"readme.md":  []byte("# Title\n\nSome text.\n"),
		"doc.pdf":    []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"),
		"pixel.png":  {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'},
		"photo.jpeg": {0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0},
	}
	want := map[string]string{
		"notes.txt":  "text/plain",
		"readme.md":  "text/plain",
		"doc.pdf":    "application/pdf",
		"pixel.png":  "image/png",
		"photo.jpeg": "image/jpeg",
	}
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := DetectMIME(path)
		if err != nil {
			t.Fatalf("DetectMIME(%s): %v", name, err)
		}
		if got != want[name] {
			t.Errorf("DetectMIME(%s) = %q, want %q", name, got, want[name])
		}
	}
}

func TestCategorize(t *testing.T) {
	tests := map[string]Category{
		"text/plain":                TextCategory,
		"text/plain; charset=utf-8": TextCategory,
		"text/csv":                  TextCategory,
		"application/json":          TextCategory,
		"application/pdf":           PDFCategory,
		"image/jpeg":                ImageCategory,
		"IMAGE/PNG":                 ImageCategory,
		"application/zip":           Unsupported,
		"":                          Unsupported,
	}
	for mime, want := range tests {
		if got := Categorize(mime); got != want {
			t.Errorf("Categorize(%q) = %d, want %d", mime, got, want)
		}
	}
}
