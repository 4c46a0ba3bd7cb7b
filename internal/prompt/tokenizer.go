// Package prompt assembles the system instruction and the final user turn
// sent to the language model, within a token budget for retrieved context.
package prompt

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer wraps tiktoken for approximate token counting.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer creates a Tokenizer using the cl100k_base encoding. Counts
// are approximate for non-OpenAI models.
func NewTokenizer() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("tokenizer: get encoding: %w", err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the approximate number of tokens in s.
func (t *Tokenizer) Count(s string) int {
	return len(t.enc.Encode(s, nil, nil))
}

// Truncate cuts s to at most maxTokens tokens.
func (t *Tokenizer) Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := t.enc.Encode(s, nil, nil)
	if len(tokens) <= maxTokens {
		return s
	}
	return t.enc.Decode(tokens[:maxTokens])
}
