package adapter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// geminiAdapter implements Adapter for Google Gemini via the genai SDK.
type geminiAdapter struct {
	client      *genai.Client
	chatModel   string
	embedModel  string
	visionModel string
}

// NewGemini creates a Gemini adapter. If s.APIKey is empty, GEMINI_API_KEY
// is used. s.BaseURL overrides the API endpoint.
func NewGemini(ctx context.Context, s Settings) (Adapter, error) {
	apiKey := s.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: s.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	g := &geminiAdapter{
		client:      client,
		chatModel:   s.ChatModel,
		embedModel:  s.EmbedModel,
		visionModel: s.VisionModel,
	}
	if g.chatModel == "" {
		g.chatModel = "gemini-2.0-flash"
	}
	if g.embedModel == "" {
		g.embedModel = "text-embedding-004"
	}
	if g.visionModel == "" {
		g.visionModel = g.chatModel
	}
	return g, nil
}

func (g *geminiAdapter) Info() ModelInfo {
	return ModelInfo{
		Name:               g.chatModel,
		Provider:           ProviderGemini,
		MaxContextWindow:   1000000,
		SupportsStreaming:  true,
		SupportsVision:     true,
		EmbeddingDimension: 768, // text-embedding-004
	}
}

func (g *geminiAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents,
		&genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// geminiContents maps history plus the new user message onto Gemini's
// user/model roles.
func geminiContents(req CompletionRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(req.UserMessage, genai.RoleUser))
}

func (g *geminiAdapter) Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = g.chatModel
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Temperature:     genai.Ptr(float32(req.Temperature)),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	contents := geminiContents(req)

	ch := make(chan StreamChunk, 64)

	if !req.Stream {
		go func() {
			defer close(ch)
			resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
			if err != nil {
				ch <- StreamChunk{Error: fmt.Errorf("gemini complete: %w", err)}
				return
			}
			ch <- StreamChunk{Text: resp.Text()}
		}()
		return ch, nil
	}

	go func() {
		defer close(ch)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				ch <- StreamChunk{Error: fmt.Errorf("gemini stream: %w", err)}
				return
			}
			if text := resp.Text(); text != "" {
				ch <- StreamChunk{Text: text}
			}
		}
	}()

	return ch, nil
}

func (g *geminiAdapter) Caption(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mimeType),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini caption: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
