// Package config manages global (~/.config/docbot/config.toml) and
// per-workspace (.docbot/config.toml) configuration for docbot.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// WorkspaceDirName is the per-workspace directory holding the database,
// managed files, rules and the optional config override.
const WorkspaceDirName = ".docbot"

// Config holds every runtime setting.
type Config struct {
	Provider     string             `toml:"provider"`
	Embedder     string             `toml:"embedder"`
	Vision       string             `toml:"vision"`
	DataDir      string             `toml:"data_dir"`
	Keys         KeysConfig         `toml:"keys"`
	Ollama       OllamaConfig       `toml:"ollama"`
	Models       ModelsConfig       `toml:"models"`
	Ingest       IngestConfig       `toml:"ingest"`
	Retrieval    RetrievalConfig    `toml:"retrieval"`
	Conversation ConversationConfig `toml:"conversation"`
	Rules        RulesConfig        `toml:"rules"`
	Files        FilesConfig        `toml:"files"`
	Agent        AgentConfig        `toml:"agent"`
	Server       ServerConfig       `toml:"server"`
	Log          LogConfig          `toml:"log"`
}

type KeysConfig struct {
	Anthropic string `toml:"anthropic"`
	OpenAI    string `toml:"openai"`
	Gemini    string `toml:"gemini"`
}

type OllamaConfig struct {
	Host        string `toml:"host"`
	ChatModel   string `toml:"chat_model"`
	EmbedModel  string `toml:"embed_model"`
	VisionModel string `toml:"vision_model"`
}

// ModelsConfig overrides the per-provider default model names for the
// hosted providers. Empty values keep the adapter defaults.
type ModelsConfig struct {
	Chat   string `toml:"chat"`
	Embed  string `toml:"embed"`
	Vision string `toml:"vision"`
}

type IngestConfig struct {
	ChunkSize          int    `toml:"chunk_size"`
	ChunkOverlap       int    `toml:"chunk_overlap"`
	EmbeddingDimension int    `toml:"embedding_dimension"`
	RenameImages       bool   `toml:"rename_images"`
	OCRBinary          string `toml:"ocr_binary"`
	OCRLanguage        string `toml:"ocr_language"`
}

type RetrievalConfig struct {
	Results          int `toml:"results"`
	MaxContextTokens int `toml:"max_context_tokens"`
}

type ConversationConfig struct {
	HistoryWindow  int `toml:"history_window"`
	MaxTurns       int `toml:"max_turns"`
	IdleTTLMinutes int `toml:"idle_ttl_minutes"`
}

type RulesConfig struct {
	File     string `toml:"file"`
	MaxRules int    `toml:"max_rules"`
}

type FilesConfig struct {
	Dir string `toml:"dir"`
}

type AgentConfig struct {
	Persona        string  `toml:"persona"`
	UserName       string  `toml:"user_name"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultPersona is the assistant persona used when none is configured.
const DefaultPersona = "You are an intelligent multimodal local assistant named 'Local AI Agent'."

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Provider: "ollama",
		Embedder: "ollama",
		Vision:   "ollama",
		DataDir:  WorkspaceDirName,
		Ollama: OllamaConfig{
			Host:        "http://localhost:11434",
			ChatModel:   "phi3",
			EmbedModel:  "nomic-embed-text",
			VisionModel: "llava",
		},
		Ingest: IngestConfig{
			ChunkSize:          300,
			ChunkOverlap:       50,
			EmbeddingDimension: 768,
			RenameImages:       true,
			OCRBinary:          "tesseract",
			OCRLanguage:        "eng",
		},
		Retrieval: RetrievalConfig{
			Results:          4,
			MaxContextTokens: 3000,
		},
		Conversation: ConversationConfig{
			HistoryWindow:  10,
			MaxTurns:       200,
			IdleTTLMinutes: 60,
		},
		Rules: RulesConfig{
			File:     "rules.txt",
			MaxRules: 100,
		},
		Files: FilesConfig{
			Dir: "downloads",
		},
		Agent: AgentConfig{
			Persona:        DefaultPersona,
			TimeoutSeconds: 120,
			MaxTokens:      2048,
			Temperature:    0.7,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8088",
		},
		Log: LogConfig{
			Level: "info",
			File:  "docbot.log",
		},
	}
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docbot", "config.toml"), nil
}

// Load returns the effective config for a working directory: defaults, then
// the global file, then .docbot/config.toml, then .env and the environment.
func Load(workdir string) (Config, error) {
	global, err := GlobalConfigPath()
	if err != nil {
		global = ""
	}
	return LoadFrom(global, workdir)
}

// LoadFrom is Load with an explicit global config path. An empty path skips
// the global file.
func LoadFrom(globalPath, workdir string) (Config, error) {
	cfg := Default()

	for _, path := range []string{globalPath, filepath.Join(workdir, WorkspaceDirName, "config.toml")} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// A missing .env is the normal case.
	_ = godotenv.Load(filepath.Join(workdir, ".env"))

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}

	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(workdir, cfg.DataDir)
	}

	return cfg, cfg.Validate()
}

// applyEnv overlays environment variables. The names without a DOCBOT_
// prefix are accepted for compatibility with existing .env files.
func applyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error
	setInt := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
			return
		}
		*dst = n
	}
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("ANTHROPIC_API_KEY", &cfg.Keys.Anthropic)
	setString("OPENAI_API_KEY", &cfg.Keys.OpenAI)
	setString("GEMINI_API_KEY", &cfg.Keys.Gemini)

	setString("DOCBOT_PROVIDER", &cfg.Provider)
	setString("DOCBOT_EMBEDDER", &cfg.Embedder)
	setString("DOCBOT_VISION", &cfg.Vision)
	setString("DOCBOT_DATA_DIR", &cfg.DataDir)
	setString("DOCBOT_LOG_LEVEL", &cfg.Log.Level)

	setString("LLM_MODEL", &cfg.Ollama.ChatModel)
	setString("EMBEDDING_MODEL", &cfg.Ollama.EmbedModel)
	setString("VISION_MODEL", &cfg.Ollama.VisionModel)
	if v := strings.TrimSpace(getenv("OLLAMA_API_URL")); v != "" {
		host, err := ollamaHost(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Ollama.Host = host
		}
	}

	setInt("RETRIEVAL_RESULTS", &cfg.Retrieval.Results)
	setInt("CHUNK_SIZE", &cfg.Ingest.ChunkSize)
	setInt("CHUNK_OVERLAP", &cfg.Ingest.ChunkOverlap)

	return errors.Join(errs...)
}

// ollamaHost keeps only scheme and host of an Ollama URL such as
// http://localhost:11434/api/generate.
func ollamaHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("config: OLLAMA_API_URL: invalid url %q", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

var validProviders = map[string]bool{"claude": true, "openai": true, "gemini": true, "ollama": true}

// Validate rejects settings the core cannot run with.
func (c Config) Validate() error {
	var errs []error
	for field, p := range map[string]string{"provider": c.Provider, "embedder": c.Embedder, "vision": c.Vision} {
		if !validProviders[p] {
			errs = append(errs, fmt.Errorf("config: unknown %s %q", field, p))
		}
	}
	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("config: chunk_size must be positive, got %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("config: chunk_overlap must not be negative, got %d", c.Ingest.ChunkOverlap))
	}
	if c.Retrieval.Results < 1 {
		errs = append(errs, fmt.Errorf("config: retrieval results must be at least 1, got %d", c.Retrieval.Results))
	}
	if c.Ingest.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("config: embedding_dimension must be positive, got %d", c.Ingest.EmbeddingDimension))
	}
	return errors.Join(errs...)
}

// DBPath returns the path to the workspace SQLite database.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "docbot.db")
}

// FilesDir returns the managed directory holding uploaded file artifacts.
func (c Config) FilesDir() string {
	return c.resolve(c.Files.Dir)
}

// RulesPath returns the path to the dynamic rules file.
func (c Config) RulesPath() string {
	return c.resolve(c.Rules.File)
}

// LogPath returns the rotating log file path, or "" when file logging is off.
func (c Config) LogPath() string {
	if c.Log.File == "" {
		return ""
	}
	return c.resolve(c.Log.File)
}

// Timeout is the per-call deadline applied to every collaborator.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Agent.TimeoutSeconds) * time.Second
}

// IdleTTL is how long an untouched conversation session is kept.
func (c Config) IdleTTL() time.Duration {
	return time.Duration(c.Conversation.IdleTTLMinutes) * time.Minute
}

// APIKey returns the configured API key for provider.
func (c Config) APIKey(provider string) string {
	switch provider {
	case "claude":
		return c.Keys.Anthropic
	case "openai":
		return c.Keys.OpenAI
	case "gemini":
		return c.Keys.Gemini
	default:
		return ""
	}
}

func (c Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
