// Package agent is docbot's orchestration engine: it ingests files into
// long-term memory, routes file commands, and answers questions with
// retrieval-augmented generation.
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/adapter"
	"github.com/memvra/docbot/internal/chunker"
	"github.com/memvra/docbot/internal/config"
	"github.com/memvra/docbot/internal/conversation"
	"github.com/memvra/docbot/internal/extract"
	"github.com/memvra/docbot/internal/files"
	"github.com/memvra/docbot/internal/memory"
	"github.com/memvra/docbot/internal/prompt"
	"github.com/memvra/docbot/internal/router"
	"github.com/memvra/docbot/internal/rules"
)

// WelcomeText introduces the assistant.
const WelcomeText = "Hello! I am your multimodal document assistant.\n\n" +
	"Capabilities:\n" +
	"- Chat with me about any topic.\n" +
	"- Upload text, PDF and images for storage and long-term memory.\n" +
	"- Images get an OCR pass and a vision-model description.\n" +
	"- Ask about anything you uploaded and I will look it up.\n" +
	"- Type 'list files', 'read <name>', 'share <name>' or 'delete <name>' to manage files.\n" +
	"- Start a message with 'feedback:' to teach me a rule.\n\n" +
	"Go ahead, talk to me or send a file!"

// AckText is shown while a file is being ingested.
func AckText(name string) string {
	return "Received " + name + ". Extracting text and embedding to memory..."
}

// Memory is the long-term memory the agent reads and writes.
type Memory interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Store(ctx context.Context, text string, vec []float32, md memory.Metadata) (string, error)
	Retrieve(ctx context.Context, vec []float32, k int) ([]string, error)
	DeleteBySource(ctx context.Context, name string) (int, error)
	RecordsBySource(ctx context.Context, name string) ([]memory.Record, error)
	Wipe(ctx context.Context) (int, error)
	LogIngestion(ctx context.Context, in memory.Ingestion) error
}

// Generator produces completions.
type Generator interface {
	Complete(ctx context.Context, req adapter.CompletionRequest) (<-chan adapter.StreamChunk, error)
}

// Deps are the agent's collaborators. Captioner, OCR, Tokenizer and
// Recorder are optional.
type Deps struct {
	LLM       Generator
	Captioner adapter.Captioner
	Memory    Memory
	Files     *files.Dir
	Rules     *rules.Store
	Sessions  *conversation.Registry
	Text      extract.Extractor
	PDF       extract.Extractor
	OCR       extract.OCR
	Tokenizer *prompt.Tokenizer
	Recorder  Recorder
}

// Options tune the pipeline.
type Options struct {
	ChunkSize        int
	ChunkOverlap     int
	Results          int
	HistoryWindow    int
	MaxContextTokens int
	Timeout          time.Duration
	RenameImages     bool
	Persona          string
	UserName         string
	MaxTokens        int
	Temperature      float64
	Now              func() time.Time
}

// OptionsFromConfig maps the runtime config onto agent options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		ChunkSize:        cfg.Ingest.ChunkSize,
		ChunkOverlap:     cfg.Ingest.ChunkOverlap,
		Results:          cfg.Retrieval.Results,
		HistoryWindow:    cfg.Conversation.HistoryWindow,
		MaxContextTokens: cfg.Retrieval.MaxContextTokens,
		Timeout:          cfg.Timeout(),
		RenameImages:     cfg.Ingest.RenameImages,
		Persona:          cfg.Agent.Persona,
		UserName:         cfg.Agent.UserName,
		MaxTokens:        cfg.Agent.MaxTokens,
		Temperature:      cfg.Agent.Temperature,
	}
}

func (o *Options) setDefaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = chunker.DefaultSize
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = 0
	}
	if o.Results <= 0 {
		o.Results = 4
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = conversation.DefaultWindow
	}
	if o.Persona == "" {
		o.Persona = config.DefaultPersona
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Agent wires the pipeline together. It is safe for concurrent use;
// requests on the same session are serialized.
type Agent struct {
	deps     Deps
	opts     Options
	router   *router.Router
	handler  *router.Handler
	builder  *prompt.Builder
	recorder Recorder
	logger   *zap.Logger
}

// New creates an Agent.
func New(deps Deps, opts Options, logger *zap.Logger) *Agent {
	opts.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Text == nil {
		deps.Text = extract.Text{}
	}
	if deps.PDF == nil {
		deps.PDF = extract.PDF{}
	}
	if deps.Sessions == nil {
		deps.Sessions = conversation.NewRegistry(0, 0)
	}
	rec := deps.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}

	a := &Agent{
		deps:     deps,
		opts:     opts,
		router:   router.New(),
		builder:  prompt.NewBuilder(prompt.NewFormatter(), deps.Tokenizer, opts.Persona, opts.UserName),
		recorder: rec,
		logger:   logger.Named("agent"),
	}
	a.handler = &router.Handler{
		Files:  deps.Files,
		Memory: timedDeleter{a},
		Rules:  deps.Rules,
		Logger: a.logger,
	}
	return a
}

// Sessions returns the session registry.
func (a *Agent) Sessions() *conversation.Registry { return a.deps.Sessions }

// Files returns the managed directory.
func (a *Agent) Files() *files.Dir { return a.deps.Files }

// Rules returns the rule store.
func (a *Agent) Rules() *rules.Store { return a.deps.Rules }

// AddRule stores a behavioral rule directly, bypassing intent detection.
func (a *Agent) AddRule(rule string) error {
	return a.deps.Rules.Append(rule)
}

// Records returns the memory records stored for the artifact name.
func (a *Agent) Records(ctx context.Context, name string) ([]memory.Record, error) {
	name = a.deps.Files.Resolve(name)
	var recs []memory.Record
	err := a.call(ctx, "memory.records", func(ctx context.Context) error {
		var err error
		recs, err = a.deps.Memory.RecordsBySource(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// timedDeleter runs record deletion under the collaborator timeout.
type timedDeleter struct{ a *Agent }

func (d timedDeleter) DeleteBySource(ctx context.Context, name string) (int, error) {
	var n int
	err := d.a.call(ctx, "memory.delete", func(ctx context.Context) error {
		var err error
		n, err = d.a.deps.Memory.DeleteBySource(ctx, name)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
