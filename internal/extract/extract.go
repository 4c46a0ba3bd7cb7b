// Package extract turns uploaded files into plain text: direct reads for
// text, per-page extraction for PDF, and the tesseract binary for OCR.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// ErrOCRUnavailable is returned when the OCR binary cannot be found.
var ErrOCRUnavailable = errors.New("extract: tesseract not found")

// Extractor reads the text content of a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// OCR transcribes the text visible in an image.
type OCR interface {
	OCR(ctx context.Context, path string) (string, error)
}

// Text reads a file as UTF-8. Invalid byte sequences are replaced.
type Text struct{}

// Extract implements Extractor.
func (Text) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract: read text: %w", err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// PDF concatenates the plain text of every page, one page per line block.
type PDF struct{}

// Extract implements Extractor.
func (PDF) Extract(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract: pdf page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Tesseract runs the tesseract CLI. Binary defaults to "tesseract" on PATH
// and Lang to tesseract's own default.
type Tesseract struct {
	Binary string
	Lang   string
}

// OCR implements OCR.
func (t Tesseract) OCR(ctx context.Context, path string) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
	}

	args := []string{path, "stdout"}
	if t.Lang != "" {
		args = append(args, "-l", t.Lang)
	}
	cmd := exec.CommandContext(ctx, resolved, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("extract: tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("extract: tesseract: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// DetectMIME sniffs the file's content type. Parameters such as charset are
// dropped, and text files with a known text extension report text/plain.
func DetectMIME(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("extract: detect mime: %w", err)
	}
	mime := m.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if m.Is("text/plain") {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md", ".csv", ".log":
			return "text/plain", nil
		}
	}
	return mime, nil
}

// Category groups MIME types by how they are ingested.
type Category int

const (
	Unsupported Category = iota
	TextCategory
	PDFCategory
	ImageCategory
)

// Categorize maps a MIME type to its ingestion category.
func Categorize(mime string) Category {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case mime == "application/pdf":
		return PDFCategory
	case strings.HasPrefix(mime, "image/"):
		return ImageCategory
	case strings.HasPrefix(mime, "text/"), mime == "application/json":
		return TextCategory
	}
	return Unsupported
}
