package adapter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openaiAdapter implements Adapter for OpenAI and OpenAI-compatible servers.
type openaiAdapter struct {
	client      *openai.Client
	chatModel   string
	embedModel  string
	visionModel string
}

// NewOpenAI creates an OpenAI adapter. If s.APIKey is empty, OPENAI_API_KEY
// is used. s.BaseURL points the client at a compatible server.
func NewOpenAI(s Settings) Adapter {
	apiKey := s.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg := openai.DefaultConfig(apiKey)
	if s.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(s.BaseURL, "/")
	}

	a := &openaiAdapter{
		client:      openai.NewClientWithConfig(cfg),
		chatModel:   s.ChatModel,
		embedModel:  s.EmbedModel,
		visionModel: s.VisionModel,
	}
	if a.chatModel == "" {
		a.chatModel = openai.GPT4o
	}
	if a.embedModel == "" {
		a.embedModel = string(openai.SmallEmbedding3)
	}
	if a.visionModel == "" {
		a.visionModel = openai.GPT4oMini
	}
	return a
}

func (o *openaiAdapter) Info() ModelInfo {
	return ModelInfo{
		Name:               o.chatModel,
		Provider:           ProviderOpenAI,
		MaxContextWindow:   128000,
		SupportsStreaming:  true,
		SupportsVision:     true,
		EmbeddingDimension: 1536, // text-embedding-3-small
	}
}

func (o *openaiAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(o.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	result := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		result[i] = d.Embedding
	}
	return result, nil
}

func (o *openaiAdapter) Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = o.chatModel
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserMessage,
	})

	ch := make(chan StreamChunk, 64)

	if !req.Stream {
		go func() {
			defer close(ch)
			resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       model,
				Messages:    messages,
				MaxTokens:   maxTokens,
				Temperature: float32(req.Temperature),
			})
			if err != nil {
				ch <- StreamChunk{Error: fmt.Errorf("openai complete: %w", err)}
				return
			}
			if len(resp.Choices) > 0 {
				ch <- StreamChunk{Text: resp.Choices[0].Message.Content}
			}
		}()
		return ch, nil
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
		Stream:      true,
	})
	if err != nil {
		close(ch)
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				ch <- StreamChunk{Error: fmt.Errorf("openai stream recv: %w", err)}
				return
			}
			if len(resp.Choices) > 0 {
				ch <- StreamChunk{Text: resp.Choices[0].Delta.Content}
			}
		}
	}()

	return ch, nil
}

// Caption sends the image inline as a data URL.
func (o *openaiAdapter) Caption(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.visionModel,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai caption: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
