package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ollamaAdapter implements Adapter for a local Ollama instance.
type ollamaAdapter struct {
	host        string
	chatModel   string
	embedModel  string
	visionModel string
	client      *http.Client
}

// NewOllama creates an Ollama adapter. Empty model names fall back to
// llama3.2, nomic-embed-text and llava.
func NewOllama(host, chatModel, embedModel, visionModel string) Adapter {
	if chatModel == "" {
		chatModel = "llama3.2"
	}
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}
	if visionModel == "" {
		visionModel = "llava"
	}
	return &ollamaAdapter{
		host:        strings.TrimRight(host, "/"),
		chatModel:   chatModel,
		embedModel:  embedModel,
		visionModel: visionModel,
		client:      &http.Client{},
	}
}

func (o *ollamaAdapter) Info() ModelInfo {
	return ModelInfo{
		Name:               o.chatModel,
		Provider:           ProviderOllama,
		MaxContextWindow:   32768,
		SupportsStreaming:  true,
		SupportsVision:     true,
		EmbeddingDimension: 768,
	}
}

// ollamaEmbedRequest is the request body for the Ollama embed API.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the response from the Ollama embed API.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (o *ollamaAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var result ollamaEmbedResponse
	if err := o.post(ctx, "/api/embed", ollamaEmbedRequest{Model: o.embedModel, Input: texts}, &result); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return result.Embeddings, nil
}

// ollamaChatRequest is the request body for the Ollama chat API.
type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChatChunk is a single streamed response chunk. With stream=false
// the whole reply arrives as one chunk with done=true.
type ollamaChatChunk struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error,omitempty"`
}

func (o *ollamaAdapter) Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = o.chatModel
	}

	messages := make([]ollamaChatMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		messages = append(messages, ollamaChatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: req.UserMessage})

	options := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   req.Stream,
		Options:  options,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama complete marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama complete request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	ch := make(chan StreamChunk, 64)

	go func() {
		defer close(ch)

		resp, err := o.client.Do(httpReq)
		if err != nil {
			ch <- StreamChunk{Error: fmt.Errorf("ollama complete: %w", err)}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			ch <- StreamChunk{Error: fmt.Errorf("ollama complete: status %d", resp.StatusCode)}
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChatChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				ch <- StreamChunk{Error: fmt.Errorf("ollama stream decode: %w", err)}
				return
			}
			if chunk.Error != "" {
				ch <- StreamChunk{Error: fmt.Errorf("ollama complete: %s", chunk.Error)}
				return
			}
			if chunk.Message.Content != "" {
				ch <- StreamChunk{Text: chunk.Message.Content}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- StreamChunk{Error: fmt.Errorf("ollama stream scan: %w", err)}
		}
	}()

	return ch, nil
}

// ollamaGenerateRequest is the request body for /api/generate, which is the
// endpoint Ollama vision models accept images on.
type ollamaGenerateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (o *ollamaAdapter) Caption(ctx context.Context, image []byte, _ string, prompt string) (string, error) {
	var result ollamaGenerateResponse
	err := o.post(ctx, "/api/generate", ollamaGenerateRequest{
		Model:  o.visionModel,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Stream: false,
	}, &result)
	if err != nil {
		return "", fmt.Errorf("ollama caption: %w", err)
	}
	return strings.TrimSpace(result.Response), nil
}

// post sends a JSON body to path and decodes a JSON response into out.
func (o *ollamaAdapter) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
