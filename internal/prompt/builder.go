package prompt

import (
	"time"

	"github.com/memvra/docbot/internal/adapter"
)

// BuildOptions controls how a request is assembled.
type BuildOptions struct {
	Question  string
	Chunks    []string
	History   []adapter.Message
	Files     []string
	Rules     string
	Now       time.Time
	MaxTokens int // budget for retrieved context; 0 means unlimited
}

// Built is the assembled prompt.
type Built struct {
	SystemPrompt string
	UserPrompt   string
	ContextText  string
	History      []adapter.Message
	TokensUsed   int
	ChunksUsed   int
}

// Request turns the build into a completion request.
func (b Built) Request() adapter.CompletionRequest {
	return adapter.CompletionRequest{
		SystemPrompt: b.SystemPrompt,
		History:      b.History,
		UserMessage:  b.UserPrompt,
	}
}

// Builder assembles prompts. The tokenizer is optional; without it the
// context block is never truncated.
type Builder struct {
	formatter *Formatter
	tokenizer *Tokenizer
	persona   string
	userName  string
}

// NewBuilder creates a Builder.
func NewBuilder(formatter *Formatter, tokenizer *Tokenizer, persona, userName string) *Builder {
	if formatter == nil {
		formatter = NewFormatter()
	}
	return &Builder{
		formatter: formatter,
		tokenizer: tokenizer,
		persona:   persona,
		userName:  userName,
	}
}

// Build assembles the system prompt and the final user turn. Retrieved
// chunks are added in rank order until the budget is spent; the first chunk
// that does not fit is truncated when enough budget is left, and the rest
// are dropped.
func (b *Builder) Build(opts BuildOptions) Built {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	var used []string
	tokens := 0
	if b.tokenizer == nil || opts.MaxTokens <= 0 {
		used = opts.Chunks
	} else {
		remaining := opts.MaxTokens
		for _, c := range opts.Chunks {
			n := b.tokenizer.Count(c)
			if n <= remaining {
				used = append(used, c)
				remaining -= n
				continue
			}
			if remaining > 100 {
				used = append(used, b.tokenizer.Truncate(c, remaining-50))
				remaining = 0
			}
			break
		}
		tokens = opts.MaxTokens - remaining
	}

	contextText := b.formatter.ContextBlock(used)
	return Built{
		SystemPrompt: b.formatter.SystemPrompt(SystemData{
			Persona:  b.persona,
			UserName: b.userName,
			Now:      opts.Now,
			Files:    opts.Files,
			Rules:    opts.Rules,
		}),
		UserPrompt:  b.formatter.UserPrompt(contextText, opts.Question),
		ContextText: contextText,
		History:     opts.History,
		TokensUsed:  tokens,
		ChunksUsed:  len(used),
	}
}
