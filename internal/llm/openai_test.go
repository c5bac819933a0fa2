package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/filingqa/internal/model"
)

func chatServer(t *testing.T, content string, check func(openai.ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(req)
		}

		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-123",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIProvider_AnalyzeQuery_Success(t *testing.T) {
	server := chatServer(t, `{"tickers":["aapl","MSFT"],"time_periods":["2023"],"document_types":["10-k","def14a","13F"],"query_type":"multi_ticker_comparison","keywords":["risk"],"complexity_score":0.6}`,
		func(req openai.ChatCompletionRequest) {
			if req.Model != "gpt-4o-mini" {
				t.Errorf("Expected model gpt-4o-mini, got %s", req.Model)
			}
			if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
				t.Errorf("Expected JSON object response format, got %+v", req.ResponseFormat)
			}
			if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
				t.Fatalf("Expected system and user messages, got %+v", req.Messages)
			}
			if !strings.Contains(req.Messages[1].Content, "Compare Apple and Microsoft") {
				t.Errorf("Question missing from user message: %s", req.Messages[1].Content)
			}
		})
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	q, err := provider.AnalyzeQuery(context.Background(), "Compare Apple and Microsoft risk factors in 2023")
	if err != nil {
		t.Fatalf("AnalyzeQuery failed: %v", err)
	}

	if strings.Join(q.Tickers, ",") != "AAPL,MSFT" {
		t.Errorf("Unexpected tickers: %v", q.Tickers)
	}
	if strings.Join(q.DocumentTypes, ",") != "10-K,DEF 14A" {
		t.Errorf("Unexpected document types: %v", q.DocumentTypes)
	}
	if q.QueryType != model.QueryMultiTicker {
		t.Errorf("Unexpected query type: %s", q.QueryType)
	}
}

func TestOpenAIProvider_Synthesize_Success(t *testing.T) {
	server := chatServer(t, `{"answer":"Supply risk is material [C1].","confidence_score":0.8,"limitations":["single filing"],"key_metrics":{"segments":3}}`,
		func(req openai.ChatCompletionRequest) {
			if req.MaxTokens != 800 {
				t.Errorf("Expected max tokens 800, got %d", req.MaxTokens)
			}
			if !strings.Contains(req.Messages[1].Content, "[C1] AAPL 10-K 2023-11-03 (1A)") {
				t.Errorf("Evidence missing from user message: %s", req.Messages[1].Content)
			}
		})
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5, MaxTokens: 800})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	answer, err := provider.Synthesize(context.Background(), SynthesisRequest{
		Question: "What are Apple's supply risks?",
		Evidence: []model.EvidenceRecord{{
			ID: "AAPL_10-K_1A_targeted", Content: "Supply chain risk ...", Ticker: "AAPL",
			DocumentType: "10-K", FilingDate: "2023-11-03", Section: "1A",
		}},
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if answer.Answer != "Supply risk is material [C1]." {
		t.Errorf("Unexpected answer: %s", answer.Answer)
	}
	if answer.ConfidenceScore != 0.8 {
		t.Errorf("Unexpected confidence: %v", answer.ConfidenceScore)
	}
	if answer.KeyMetrics["segments"] != "3" {
		t.Errorf("Unexpected key metrics: %v", answer.KeyMetrics)
	}
}

func TestOpenAIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.AnalyzeQuery(context.Background(), "Apple risks")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "OpenAI API error") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestOpenAIProvider_MalformedContent(t *testing.T) {
	server := chatServer(t, `{"tickers": [`, nil)
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.AnalyzeQuery(context.Background(), "Apple risks")
	if err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestOpenAIProvider_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = provider.Synthesize(ctx, SynthesisRequest{Question: "q"})
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_EmptyQuestion(t *testing.T) {
	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	if _, err := provider.AnalyzeQuery(context.Background(), "   "); err == nil {
		t.Fatal("Expected error for empty question")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("Expected error without API key")
	}
}
