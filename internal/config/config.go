package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all rooted configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Vector   VectorConfig   `yaml:"vector"`
	LLM      LLMConfig      `yaml:"llm"`
	Memory   MemoryConfig   `yaml:"memory"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Bind        string `yaml:"bind"`
	Port        int    `yaml:"port"`
	DefaultUser string `yaml:"default_user"` // used when X-User-ID is absent
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type VectorConfig struct {
	Path     string `yaml:"path"`     // chromem persistence dir; empty = in-memory
	Compress bool   `yaml:"compress"` // gzip persisted documents
}

type LLMConfig struct {
	Provider       string `yaml:"provider"` // "openai", "anthropic", "ollama", "claude-cli"
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"` // OpenAI or OpenRouter key
	BaseURL        string `yaml:"base_url"`
	AnthropicKey   string `yaml:"anthropic_key"`
	OllamaURL      string `yaml:"ollama_url"`
	OllamaModel    string `yaml:"ollama_model"`
	EmbeddingModel string `yaml:"embedding_model"` // ollama embedding model
	Timeout        string `yaml:"timeout"`
}

// MemoryConfig tunes classification, lifecycle and retrieval.
type MemoryConfig struct {
	LeafTTL           string  `yaml:"leaf_ttl"`           // LEAF expiry, e.g. "48h"
	BranchStaleAfter  string  `yaml:"branch_stale_after"` // BRANCH demotion window, e.g. "168h"
	DecayInterval     string  `yaml:"decay_interval"`     // background sweep
	ReinforceDistance float64 `yaml:"reinforce_distance"` // squared-L2 threshold for reinforcement
	LeafResults       int     `yaml:"leaf_results"`
	HistoryTurns      int     `yaml:"history_turns"`
	EmbeddingDims     int     `yaml:"embedding_dims"` // hashing embedder width
	CacheSize         int64   `yaml:"cache_size"`     // embedding cache entries
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:        "127.0.0.1",
			Port:        37780,
			DefaultUser: "local",
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			OllamaURL:      "http://localhost:11434",
			OllamaModel:    "llama3.2",
			EmbeddingModel: "nomic-embed-text",
			Timeout:        "120s",
		},
		Memory: MemoryConfig{
			LeafTTL:           "48h",
			BranchStaleAfter:  "168h",
			DecayInterval:     "1h",
			ReinforceDistance: 0.25,
			LeafResults:       5,
			HistoryTurns:      6,
			EmbeddingDims:     512,
			CacheSize:         10000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultDir returns ~/.rooted.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".rooted"), nil
}

// Load reads the YAML config at path over the defaults, then applies .env
// files and environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.AnthropicKey = key
		if c.LLM.APIKey == "" {
			c.LLM.Provider = "anthropic"
			c.LLM.Model = ""
		}
	}
	if p := os.Getenv("ROOTED_LLM_PROVIDER"); p != "" {
		c.LLM.Provider = p
	}
	if p := os.Getenv("ROOTED_DB"); p != "" {
		c.Database.Path = p
	}
	if p := os.Getenv("ROOTED_VECTORS"); p != "" {
		c.Vector.Path = p
	}
	if p := os.Getenv("ROOTED_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			c.Server.Port = n
		}
	}
	if l := os.Getenv("ROOTED_LOG_LEVEL"); l != "" {
		c.Logging.Level = l
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// ResolvePaths fills empty database and vector paths with locations under dir.
func (c *Config) ResolvePaths(dir string) {
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(dir, "rooted.db")
	}
	if c.Vector.Path == "" {
		c.Vector.Path = filepath.Join(dir, "vectors")
	}
}

// Duration parses a duration string, returning fallback when empty or invalid.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
