package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/filingqa/internal/llm"
	"github.com/ppiankov/filingqa/internal/model"
	"github.com/ppiankov/filingqa/internal/strategy"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SEC_API_KEY", "")

	v := viper.New()
	require.NoError(t, configureViper(v))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FILINGQA_RETRIEVAL_MODE", "broad")
	t.Setenv("FILINGQA_RETRIEVAL_TARGET_PAUSE", "1s")
	t.Setenv("FILINGQA_RETRIEVAL_FORM_PAUSE", "2s")
	t.Setenv("FILINGQA_LLM_PROVIDER", "ollama")
	t.Setenv("SEC_API_KEY", "sec-secret")

	v := viper.New()
	require.NoError(t, configureViper(v))

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, model.ModeBroad, cfg.Retrieval.Mode)
	assert.Equal(t, time.Second, cfg.Retrieval.TargetPause)
	assert.Equal(t, 2*time.Second, cfg.Retrieval.FormPause)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "sec-secret", cfg.SECAPI.APIKey)
	assert.Equal(t, 6, cfg.Retrieval.MaxTargets, "untouched keys keep defaults")
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  max_targets: 3\nllm:\n  model: gpt-4o\n"), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, configureViper(v))
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retrieval.MaxTargets)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".filingqa", "config.yaml")
	require.NoError(t, initConfigFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "export SEC_API_KEY=")

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, model.ModeTargeted, cfg.Retrieval.Mode)
	assert.Equal(t, 300*time.Millisecond, cfg.Retrieval.TargetPause)

	assert.Error(t, initConfigFile(path), "refuses to overwrite")
}

func TestShowConfig_MasksSecrets(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.SECAPI.APIKey = "abcdef123456"
	cfg.LLM.APIKey = "short"

	var buf bytes.Buffer
	require.NoError(t, showConfig(&buf, cfg))

	out := buf.String()
	assert.NotContains(t, out, "abcdef123456")
	assert.Contains(t, out, "api_key: abcd****")
	assert.NotContains(t, out, "short")
	assert.Equal(t, "abcdef123456", cfg.SECAPI.APIKey, "caller's config untouched")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What are Apple's risks?", "what-are-apple-s-risks"},
		{"  ../../etc/passwd ", "etc-passwd"},
		{"???", "question"},
		{strings.Repeat("word ", 30), "word-word-word-word-word-word-word-word-word-word-word-word"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}

	jsonPath, mdPath := outputPaths("out", 7, "MSFT risks")
	assert.Equal(t, filepath.Join("out", "007-msft-risks.json"), jsonPath)
	assert.Equal(t, filepath.Join("out", "007-msft-risks.md"), mdPath)
}

func TestRenderMarkdown(t *testing.T) {
	a := &model.Answer{
		Answer:            "Risk noted [C1].\n\n**Citations**\n[C1] AAPL 10-K 2023-11-03, 1A — https://sec.example/aapl",
		ConfidenceScore:   0.75,
		CompaniesAnalyzed: []string{"AAPL"},
		FilingTypesUsed:   []string{"10-K"},
		TimePeriodCovered: "Recent filings",
		ToolUsed:          "targeted",
		KeyMetrics:        map[string]string{"b": "2", "a": "1"},
		Limitations:       []string{"Single filing."},
	}

	var buf bytes.Buffer
	require.NoError(t, renderMarkdown(&buf, "What risks?", a))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# What risks?\n\nRisk noted [C1]."))
	assert.Contains(t, out, "- **Confidence:** 0.75\n")
	assert.Contains(t, out, "- **Companies analyzed:** AAPL\n")
	assert.Contains(t, out, "## Key Metrics\n\n- a: 1\n- b: 2\n")
	assert.Contains(t, out, "## Limitations\n\n- Single filing.\n")
	assert.NotContains(t, out, "## Recommendations")
}

func TestRenderPlan(t *testing.T) {
	plan := strategy.NewSelector(nil).Select(model.StructuredQuery{
		Tickers:       []string{"AAPL"},
		DocumentTypes: []string{"10-K"},
	}, true)

	var buf bytes.Buffer
	require.NoError(t, renderPlan(&buf, plan, ""))
	out := buf.String()

	assert.Contains(t, out, "Date floor: recent\n")
	assert.Contains(t, out, "Targets:    1\n")
	assert.Contains(t, out, "1. AAPL   10-K     sections=1A tier=explicit")
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, writeJSON(path, "q", model.ErrorAnswer(os.ErrNotExist)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"question": "q"`)
	assert.Contains(t, string(data), `"confidence_score": 0`)
}

type fakeProvider struct{ up bool }

func (fakeProvider) Name() string { return "fake" }

func (fakeProvider) AnalyzeQuery(ctx context.Context, question string) (*model.StructuredQuery, error) {
	return &model.StructuredQuery{}, nil
}

func (fakeProvider) Synthesize(ctx context.Context, req llm.SynthesisRequest) (*model.Answer, error) {
	return &model.Answer{}, nil
}

func (p fakeProvider) IsAvailable(ctx context.Context) bool { return p.up }

func TestCheckSetup(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.SECAPI.APIKey = "sec-key"

	var buf bytes.Buffer
	require.NoError(t, checkSetup(context.Background(), &buf, cfg, fakeProvider{up: true}))
	assert.Contains(t, buf.String(), "✓ SEC API key set\n")
	assert.Contains(t, buf.String(), "✓ LLM provider fake reachable (model: gpt-4o-mini)\n")

	cfg.SECAPI.APIKey = ""
	buf.Reset()
	err := checkSetup(context.Background(), &buf, cfg, fakeProvider{up: false})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 configuration check(s) failed")
	assert.Contains(t, buf.String(), "✗ LLM provider fake not reachable\n")
}
