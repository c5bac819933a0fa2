// Package llm adapts chat-completion providers to the two model calls a
// research question needs: classifying the question and writing the answer.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/filingqa/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// AnalyzeQuery interprets a research question
	AnalyzeQuery(ctx context.Context, question string) (*model.StructuredQuery, error)

	// Synthesize writes an answer grounded in the supplied evidence
	Synthesize(ctx context.Context, req SynthesisRequest) (*model.Answer, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SynthesisRequest contains the input for answer synthesis
type SynthesisRequest struct {
	Question string

	// AllowedSources is the [C#] preamble built from Evidence
	AllowedSources string

	// Evidence is listed in the same order as AllowedSources
	Evidence []model.EvidenceRecord

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
}

// completion is one system+user exchange expecting a JSON object back
type completion struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature float32
}

type completeFunc func(ctx context.Context, c completion) (string, error)

func analyze(ctx context.Context, complete completeFunc, question string) (*model.StructuredQuery, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	raw, err := complete(ctx, completion{
		System:      queryAnalysisPrompt,
		User:        "Question: " + question,
		MaxTokens:   600,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	return decodeQuery(raw)
}

func synthesize(ctx context.Context, complete completeFunc, req SynthesisRequest) (*model.Answer, error) {
	raw, err := complete(ctx, completion{
		System:      synthesisPrompt,
		User:        BuildSynthesisPrompt(req),
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	return decodeAnswer(raw)
}

func (c Config) maxTokens(override int) int {
	if override > 0 {
		return override
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1500
}
