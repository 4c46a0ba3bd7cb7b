package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/memvra/docbot/internal/adapter"
	"github.com/memvra/docbot/internal/chunker"
	"github.com/memvra/docbot/internal/extract"
	"github.com/memvra/docbot/internal/files"
	"github.com/memvra/docbot/internal/memory"
)

// VisionPrompt is sent with every image to the captioning model.
const VisionPrompt = "Describe the image, extracting meaningful details and transcribing any visible large text."

// IngestResult summarizes one ingestion. Name is the final artifact name,
// which differs from the uploaded name when an image was renamed.
type IngestResult struct {
	Name      string
	MimeType  string
	Stored    int
	Attempted int
	Replaced  int
	Message   string
	Err       error
}

// Import copies src into the managed directory and ingests the copy. An
// artifact of the same name is replaced along with its records.
func (a *Agent) Import(ctx context.Context, src string) IngestResult {
	name := filepath.Base(src)
	f, err := os.Open(src)
	if err != nil {
		return IngestResult{Name: name, Message: fmt.Sprintf("Error during orchestrator file handling: %v", err), Err: err}
	}
	defer f.Close()

	path, err := a.deps.Files.Save(name, f)
	if err != nil {
		return IngestResult{Name: name, Message: fmt.Sprintf("Error during orchestrator file handling: %v", err), Err: err}
	}
	return a.Ingest(ctx, path, name, "")
}

// Ingest turns one file into stored memory records. An empty mimeType is
// sniffed from the content. Failures are reported in the result's Message;
// Err carries the underlying error for logging.
func (a *Agent) Ingest(ctx context.Context, path, name, mimeType string) IngestResult {
	res := a.ingest(ctx, path, name, mimeType)

	category := categoryName(extract.Categorize(res.MimeType))
	a.recorder.Ingested(category, res.Stored, res.Err)

	entry := memory.Ingestion{Source: res.Name, MimeType: res.MimeType, Chunks: res.Attempted, Stored: res.Stored}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if err := a.deps.Memory.LogIngestion(context.WithoutCancel(ctx), entry); err != nil {
		a.logger.Warn("log ingestion", zap.String("name", res.Name), zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("name", res.Name),
		zap.String("mime", res.MimeType),
		zap.Int("stored", res.Stored),
		zap.Int("attempted", res.Attempted),
	}
	if res.Replaced > 0 {
		fields = append(fields, zap.Int("replaced", res.Replaced))
	}
	if res.Err != nil {
		a.logger.Warn("ingest failed", append(fields, zap.Error(res.Err))...)
	} else {
		a.logger.Info("ingested", fields...)
	}
	return res
}

func (a *Agent) ingest(ctx context.Context, path, name, mimeType string) IngestResult {
	res := IngestResult{Name: name, MimeType: mimeType}
	fail := func(err error) IngestResult {
		res.Err = err
		res.Message = fmt.Sprintf("Error during orchestrator file handling: %v", err)
		return res
	}

	// The artifact under name now holds new content; earlier records for it
	// are stale whatever the outcome below.
	replaced, err := timedDeleter{a}.DeleteBySource(ctx, name)
	if err != nil {
		return fail(fmt.Errorf("clear previous records: %w", err))
	}
	res.Replaced = replaced

	if res.MimeType == "" {
		detected, err := extract.DetectMIME(path)
		if err != nil {
			return fail(err)
		}
		res.MimeType = detected
	}

	var text string
	switch extract.Categorize(res.MimeType) {
	case extract.TextCategory:
		text, err = a.extractWith(ctx, "extract.text", a.deps.Text, path)
	case extract.PDFCategory:
		text, err = a.extractWith(ctx, "extract.pdf", a.deps.PDF, path)
	case extract.ImageCategory:
		text, res.Name, err = a.describeImage(ctx, path, name, res.MimeType)
	default:
		res.Message = fmt.Sprintf("Unsupported file type: %s for %s.", res.MimeType, name)
		return res
	}
	if err != nil {
		return fail(err)
	}

	if strings.TrimSpace(text) == "" {
		res.Message = fmt.Sprintf("Could not extract meaningful content from '%s'.", res.Name)
		return res
	}

	md := memory.Metadata{Source: res.Name, Type: res.MimeType}
	for _, chunk := range chunker.Chunk(text, a.opts.ChunkSize, a.opts.ChunkOverlap) {
		res.Attempted++
		if a.storeChunk(ctx, chunk, md) {
			res.Stored++
		}
	}

	res.Message = fmt.Sprintf("Successfully processed '%s'. Indexed %d chunks into long-term memory.", res.Name, res.Stored)
	return res
}

func (a *Agent) extractWith(ctx context.Context, name string, ex extract.Extractor, path string) (string, error) {
	var text string
	err := a.call(ctx, name, func(ctx context.Context) error {
		var err error
		text, err = ex.Extract(ctx, path)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// storeChunk embeds and stores one chunk. Failures are logged and skipped.
func (a *Agent) storeChunk(ctx context.Context, chunk string, md memory.Metadata) bool {
	vec, err := a.embed(ctx, chunk)
	if err != nil || len(vec) == 0 {
		a.logger.Debug("skip chunk: embed", zap.String("source", md.Source), zap.Error(err))
		return false
	}
	err = a.call(ctx, "memory.store", func(ctx context.Context) error {
		_, err := a.deps.Memory.Store(ctx, chunk, vec, md)
		return err
	})
	if err != nil {
		a.logger.Debug("skip chunk: store", zap.String("source", md.Source), zap.Error(err))
		return false
	}
	return true
}

func (a *Agent) embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := a.call(ctx, "embed", func(ctx context.Context) error {
		var err error
		vec, err = a.deps.Memory.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// describeImage runs OCR and captioning concurrently and renders the
// structured image block. When renaming is enabled the artifact is renamed
// before the block is built, so every record carries the final name.
func (a *Agent) describeImage(ctx context.Context, path, name, mimeType string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", name, fmt.Errorf("read image: %w", err)
	}

	var ocrText, caption string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if a.deps.OCR == nil {
			return nil
		}
		var out string
		err := a.call(gctx, "ocr", func(ctx context.Context) error {
			var err error
			out, err = a.deps.OCR.OCR(ctx, path)
			return err
		})
		if errors.Is(err, extract.ErrOCRUnavailable) {
			a.logger.Warn("ocr unavailable, continuing with caption only", zap.Error(err))
			return nil
		}
		if err != nil {
			return fmt.Errorf("ocr: %w", err)
		}
		ocrText = out
		return nil
	})
	g.Go(func() error {
		if a.deps.Captioner == nil {
			return nil
		}
		var out string
		err := a.call(gctx, "vision", func(ctx context.Context) error {
			var err error
			out, err = a.deps.Captioner.Caption(ctx, data, mimeType, VisionPrompt)
			return err
		})
		if errors.Is(err, adapter.ErrUnsupported) {
			a.logger.Warn("vision unsupported, continuing with OCR only", zap.Error(err))
			return nil
		}
		if err != nil {
			return fmt.Errorf("vision: %w", err)
		}
		caption = strings.TrimSpace(out)
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", name, err
	}

	final := name
	if a.opts.RenameImages && a.deps.Files.Exists(name) {
		final = a.renameImage(ctx, name, ocrText, caption)
	}
	return imageBlock(final, ocrText, caption), final, nil
}

func imageBlock(name, ocrText, caption string) string {
	return fmt.Sprintf("Image Name: %s\n---\nOCR Transcription:\n%s\n---\nAI Vision Description:\n%s\n", name, ocrText, caption)
}

func (a *Agent) renameImage(ctx context.Context, name, ocrText, caption string) string {
	desc := strings.TrimSpace(caption + "\n" + ocrText)
	if desc == "" {
		return name
	}
	stem, err := a.SuggestName(ctx, desc)
	if err != nil || stem == "" {
		a.logger.Debug("keep image name", zap.String("name", name), zap.Error(err))
		return name
	}
	final, err := a.deps.Files.Rename(name, stem)
	if err != nil {
		a.logger.Warn("rename image", zap.String("name", name), zap.Error(err))
		return name
	}
	if final != name {
		a.logger.Info("renamed image", zap.String("from", name), zap.String("to", final))
	}
	return final
}

// SuggestName asks the language model for a short file stem describing an
// image and returns it sanitized. An empty stem means no usable name.
func (a *Agent) SuggestName(ctx context.Context, description string) (string, error) {
	req := adapter.CompletionRequest{
		SystemPrompt: "You name image files. Reply with a short descriptive file name of two to five words, lowercase, words separated by hyphens, no extension and nothing else.",
		UserMessage:  "Image description:\n" + description,
		MaxTokens:    20,
		Temperature:  0.2,
	}
	reply, err := a.complete(ctx, "llm.name", req)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(reply), "\n")
	return files.SanitizeStem(strings.Trim(line, "`\"' ")), nil
}

func categoryName(c extract.Category) string {
	switch c {
	case extract.TextCategory:
		return "text"
	case extract.PDFCategory:
		return "pdf"
	case extract.ImageCategory:
		return "image"
	default:
		return "unsupported"
	}
}
