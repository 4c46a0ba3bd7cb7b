package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// claudeAdapter implements Adapter for Anthropic Claude. It can only
// complete; embedding and captioning report ErrUnsupported.
type claudeAdapter struct {
	client *anthropic.Client
	model  string
}

// NewClaude creates a Claude adapter. If apiKey is empty, ANTHROPIC_API_KEY is used.
func NewClaude(apiKey, model string) Adapter {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if model == "" {
		model = "claude-sonnet-4-6"
	}
	return &claudeAdapter{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

func (c *claudeAdapter) Info() ModelInfo {
	return ModelInfo{
		Name:               c.model,
		Provider:           ProviderClaude,
		MaxContextWindow:   200000,
		SupportsStreaming:  true,
		EmbeddingDimension: 0, // Claude does not provide embeddings
	}
}

func (c *claudeAdapter) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, fmt.Errorf("claude embed: %w; use openai, gemini or ollama as the embedder", ErrUnsupported)
}

func (c *claudeAdapter) Caption(_ context.Context, _ []byte, _, _ string) (string, error) {
	return "", fmt.Errorf("claude caption: %w; use openai, gemini or ollama as the vision provider", ErrUnsupported)
}

func (c *claudeAdapter) Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	mreq := c.messagesRequest(req)
	ch := make(chan StreamChunk, 64)

	if !req.Stream {
		go func() {
			defer close(ch)
			resp, err := c.client.CreateMessages(ctx, mreq)
			if err != nil {
				ch <- StreamChunk{Error: fmt.Errorf("claude complete: %w", err)}
				return
			}
			var sb strings.Builder
			for _, part := range resp.Content {
				if part.Type == anthropic.MessagesContentTypeText {
					sb.WriteString(part.GetText())
				}
			}
			if sb.Len() > 0 {
				ch <- StreamChunk{Text: sb.String()}
			}
		}()
		return ch, nil
	}

	// Streaming: the library uses a callback-based API.
	go func() {
		defer close(ch)
		_, err := c.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
			MessagesRequest: mreq,
			OnContentBlockDelta: func(delta anthropic.MessagesEventContentBlockDeltaData) {
				if delta.Delta.Type == anthropic.MessagesContentTypeTextDelta {
					ch <- StreamChunk{Text: delta.Delta.GetText()}
				}
			},
		})
		if err != nil && !errors.Is(err, io.EOF) {
			ch <- StreamChunk{Error: fmt.Errorf("claude stream: %w", err)}
		}
	}()
	return ch, nil
}

// messagesRequest maps the history and the current user message onto
// alternating Claude messages. The system prompt travels separately.
func (c *claudeAdapter) messagesRequest(req CompletionRequest) anthropic.MessagesRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	messages := make([]anthropic.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantTextMessage(m.Content))
			continue
		}
		messages = append(messages, anthropic.NewUserTextMessage(m.Content))
	}
	messages = append(messages, anthropic.NewUserTextMessage(req.UserMessage))

	out := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
	}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		out.Temperature = &t
	}
	return out
}
