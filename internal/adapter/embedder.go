package adapter

import (
	"context"
	"fmt"
)

// Embedder is a narrower interface for components that only need embedding,
// not full chat completion. An LLMAdapter satisfies this interface.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text and checks that exactly one vector came back.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("adapter: expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}
