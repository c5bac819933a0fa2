package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAnthropicProvider_Synthesize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key header test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("Expected anthropic-version header 2023-06-01, got %s", r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != anthropicDefaultModel {
			t.Errorf("Expected default model, got %s", req.Model)
		}
		if !strings.Contains(req.System, "equity research analyst") {
			t.Errorf("Unexpected system prompt: %s", req.System)
		}

		resp := anthropicResponse{
			ID:   "msg_123",
			Type: "message",
			Role: "assistant",
			Content: []anthropicContent{
				{Type: "text", Text: "```json\n{\"answer\": \"Margins held [C1].\", \"methodology\": \"read MD&A\"}\n```"},
			},
			Model: anthropicDefaultModel,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	answer, err := provider.Synthesize(context.Background(), SynthesisRequest{Question: "How did margins move?"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if answer.Answer != "Margins held [C1]." {
		t.Errorf("Unexpected answer: %s", answer.Answer)
	}
	if answer.ConfidenceScore != defaultConfidence {
		t.Errorf("Expected default confidence, got %v", answer.ConfidenceScore)
	}
	if answer.Methodology != "read MD&A" {
		t.Errorf("Unexpected methodology: %s", answer.Methodology)
	}
}

func TestAnthropicProvider_AnalyzeQuery_InfersType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := anthropicResponse{Content: []anthropicContent{
			{Type: "text", Text: `{"tickers": [], "sectors": ["banking"], "query_type": "sector_scan", "complexity_score": 3}`},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	q, err := provider.AnalyzeQuery(context.Background(), "How are banks positioned?")
	if err != nil {
		t.Fatalf("AnalyzeQuery failed: %v", err)
	}
	if q.QueryType != "industry_analysis" {
		t.Errorf("Expected industry_analysis, got %s", q.QueryType)
	}
	if q.ComplexityScore != 1 {
		t.Errorf("Expected complexity clamped to 1, got %v", q.ComplexityScore)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]string{"type": "invalid_request_error", "message": "Invalid model"},
		})
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.AnalyzeQuery(context.Background(), "Apple risks")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "invalid_request_error - Invalid model") {
		t.Errorf("Expected structured API error, got: %v", err)
	}
}

func TestAnthropicProvider_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`slow down`))
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Synthesize(context.Background(), SynthesisRequest{Question: "q"})
	if err == nil || !strings.Contains(err.Error(), "API error (429): slow down") {
		t.Fatalf("Expected raw 429 error, got: %v", err)
	}
}

func TestAnthropicProvider_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{}})
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Synthesize(context.Background(), SynthesisRequest{Question: "q"}); err == nil {
		t.Fatal("Expected error for empty content")
	}
}

func TestAnthropicProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{{Type: "text", Text: "Hello"}}})
	}))
	defer server.Close()

	provider, err := NewAnthropicProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}
