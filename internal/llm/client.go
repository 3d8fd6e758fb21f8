package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/rooted/internal/config"
)

// ErrNoLLM is returned when no provider is configured.
var ErrNoLLM = errors.New("no LLM provider configured")

const openRouterURL = "https://openrouter.ai/api/v1"

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	JSON        bool   // ask for a JSON object reply
	Schema      any    // optional JSON schema; implies JSON
	SchemaName  string
	MaxTokens   int
	Temperature float64
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// NewClient creates an LLM client based on the config provider setting.
func NewClient(cfg config.LLMConfig) (Client, error) {
	timeout := config.Duration(cfg.Timeout, 120*time.Second)

	switch cfg.Provider {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY: %w", ErrNoLLM)
		}
		baseURL, model := resolveOpenAI(cfg)
		return NewOpenAI(cfg.APIKey, baseURL, model, timeout), nil
	case "claude-cli":
		model := cfg.Model
		if model == "" {
			model = "haiku"
		}
		return NewClaudeCLI(model, timeout), nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY: %w", ErrNoLLM)
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropic(cfg.AnthropicKey, model, timeout), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.OllamaModel
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}

// resolveOpenAI picks base URL and model. OpenRouter keys route through
// OpenRouter with the vendor-prefixed model name.
func resolveOpenAI(cfg config.LLMConfig) (baseURL, model string) {
	baseURL, model = cfg.BaseURL, cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	if strings.HasPrefix(cfg.APIKey, "sk-or-v1") {
		if baseURL == "" {
			baseURL = openRouterURL
		}
		if !strings.Contains(model, "/") {
			model = "openai/" + model
		}
	}
	return baseURL, model
}
