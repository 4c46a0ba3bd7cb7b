package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/adapter"
	"github.com/memvra/docbot/internal/agent"
	"github.com/memvra/docbot/internal/config"
	"github.com/memvra/docbot/internal/conversation"
	"github.com/memvra/docbot/internal/db"
	"github.com/memvra/docbot/internal/extract"
	"github.com/memvra/docbot/internal/files"
	"github.com/memvra/docbot/internal/logging"
	"github.com/memvra/docbot/internal/memory"
	"github.com/memvra/docbot/internal/observability"
	"github.com/memvra/docbot/internal/prompt"
	"github.com/memvra/docbot/internal/rules"
)

// app is everything a command needs, opened from the workspace config.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	db       *db.DB
	memory   *memory.Gateway
	sessions *conversation.Registry
	agent    *agent.Agent
	metrics  *observability.Metrics
}

type appOptions struct {
	// console forces log output to stderr even without --verbose.
	console bool
	// metrics registers Prometheus collectors and records pipeline calls.
	metrics bool
}

// openApp loads config and wires the agent. Callers must Close it.
func openApp(opts appOptions) (*app, error) {
	root, err := filepath.Abs(workdir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logOpts := logging.Options{Level: cfg.Log.Level, File: cfg.LogPath()}
	if !verbose && !opts.console {
		logOpts.Console = io.Discard
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DBPath(), cfg.Ingest.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if !database.VectorEnabled() {
		logger.Warn("sqlite-vec unavailable, falling back to brute-force search")
	}

	llm, err := adapter.New(providerSettings(cfg, cfg.Provider))
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("init LLM adapter: %w", err)
	}
	embedder := adapter.Adapter(llm)
	if cfg.Embedder != cfg.Provider {
		if embedder, err = adapter.New(providerSettings(cfg, cfg.Embedder)); err != nil {
			database.Close()
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	vision := adapter.Adapter(llm)
	if cfg.Vision != cfg.Provider {
		if vision, err = adapter.New(providerSettings(cfg, cfg.Vision)); err != nil {
			database.Close()
			return nil, fmt.Errorf("init vision adapter: %w", err)
		}
	}

	tokenizer, err := prompt.NewTokenizer()
	if err != nil {
		logger.Warn("tokenizer unavailable, context will not be trimmed", zap.Error(err))
		tokenizer = nil
	}

	var ocr extract.OCR
	if cfg.Ingest.OCRBinary != "" {
		ocr = extract.Tesseract{Binary: cfg.Ingest.OCRBinary, Lang: cfg.Ingest.OCRLanguage}
	}

	sessions := conversation.NewRegistry(cfg.IdleTTL(), cfg.Conversation.MaxTurns)
	var metrics *observability.Metrics
	var recorder agent.Recorder
	if opts.metrics {
		metrics = observability.NewMetrics("docbot", sessions.Count)
		recorder = metrics
	}

	gw := memory.NewGateway(database, embedder, logger)
	a := agent.New(agent.Deps{
		LLM:       llm,
		Captioner: vision,
		Memory:    gw,
		Files:     files.New(cfg.FilesDir()),
		Rules:     rules.NewStore(cfg.RulesPath(), cfg.Rules.MaxRules),
		Sessions:  sessions,
		OCR:       ocr,
		Tokenizer: tokenizer,
		Recorder:  recorder,
	}, agent.OptionsFromConfig(cfg), logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		memory:   gw,
		sessions: sessions,
		agent:    a,
		metrics:  metrics,
	}, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	_ = a.db.Close()
}

// providerSettings maps config onto adapter settings for one provider.
func providerSettings(cfg config.Config, provider string) adapter.Settings {
	s := adapter.Settings{Provider: provider, APIKey: cfg.APIKey(provider)}
	if provider == adapter.ProviderOllama {
		s.BaseURL = cfg.Ollama.Host
		s.ChatModel = cfg.Ollama.ChatModel
		s.EmbedModel = cfg.Ollama.EmbedModel
		s.VisionModel = cfg.Ollama.VisionModel
		return s
	}
	s.ChatModel = cfg.Models.Chat
	s.EmbedModel = cfg.Models.Embed
	s.VisionModel = cfg.Models.Vision
	return s
}
