package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/filingqa/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, fmt.Errorf("no LLM provider configured (set llm.provider to openai, anthropic or ollama)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config, sharing the
// filing client's proxy settings
func ConfigFromModel(llmConfig model.LLMConfig, secConfig model.SECAPIConfig) Config {
	return Config{
		Provider:   llmConfig.Provider,
		Model:      llmConfig.Model,
		APIKey:     llmConfig.APIKey,
		BaseURL:    llmConfig.BaseURL,
		Timeout:    llmConfig.Timeout,
		MaxTokens:  llmConfig.MaxTokens,
		HTTPProxy:  secConfig.HTTPProxy,
		HTTPSProxy: secConfig.HTTPSProxy,
	}
}

// WithEnv fills credentials and endpoints left empty from the provider's
// conventional environment variables
func WithEnv(config Config, getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}

	switch strings.ToLower(config.Provider) {
	case "openai":
		if config.APIKey == "" {
			config.APIKey = getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if config.APIKey == "" {
			config.APIKey = getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = getenv("OLLAMA_BASE_URL")
		}
	}
	return config
}
