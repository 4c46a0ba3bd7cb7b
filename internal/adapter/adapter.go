// Package adapter provides a unified interface for the generative, embedding
// and vision providers docbot talks to.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider name constants.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Message roles carried in CompletionRequest.History.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrUnsupported is returned when a provider lacks a capability (for
// example Claude has no embedding endpoint).
var ErrUnsupported = errors.New("adapter: not supported by provider")

// StreamChunk is a single token or error delivered during streaming.
type StreamChunk struct {
	Text  string
	Error error
}

// Message is one prior conversation turn.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest holds the parameters for a completion call. History is
// sent before UserMessage, oldest first.
type CompletionRequest struct {
	SystemPrompt string
	History      []Message
	UserMessage  string
	Model        string
	MaxTokens    int
	Temperature  float64
	Stream       bool
}

// ModelInfo describes the capabilities of a model.
type ModelInfo struct {
	Name               string
	Provider           string
	MaxContextWindow   int
	SupportsStreaming  bool
	SupportsVision     bool
	EmbeddingDimension int // 0 if the provider has no embedding model
}

// LLMAdapter is the common interface all provider adapters implement.
type LLMAdapter interface {
	// Complete sends a prompt and streams the response.
	Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// Embed generates embeddings for a batch of texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Info returns metadata about the adapter/model.
	Info() ModelInfo
}

// Captioner describes an image in natural language.
type Captioner interface {
	Caption(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// Settings selects and configures a provider.
type Settings struct {
	Provider    string
	APIKey      string
	BaseURL     string // Ollama host, or an API base URL override for hosted providers
	ChatModel   string
	EmbedModel  string
	VisionModel string
}

// Adapter is what New returns: every provider can complete, embed (or
// report ErrUnsupported) and caption.
type Adapter interface {
	LLMAdapter
	Captioner
}

// New constructs the adapter for the named provider.
func New(s Settings) (Adapter, error) {
	switch s.Provider {
	case ProviderClaude:
		return NewClaude(s.APIKey, s.ChatModel), nil
	case ProviderOpenAI:
		return NewOpenAI(s), nil
	case ProviderGemini:
		return NewGemini(context.Background(), s)
	case ProviderOllama:
		host := s.BaseURL
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllama(host, s.ChatModel, s.EmbedModel, s.VisionModel), nil
	default:
		return nil, fmt.Errorf("adapter: unknown provider %q; valid providers: claude, openai, gemini, ollama", s.Provider)
	}
}

// Collect drains a completion stream into a single string. The first
// streamed error aborts collection.
func Collect(ctx context.Context, ch <-chan StreamChunk) (string, error) {
	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return b.String(), ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return b.String(), nil
			}
			if chunk.Error != nil {
				return b.String(), chunk.Error
			}
			b.WriteString(chunk.Text)
		}
	}
}
