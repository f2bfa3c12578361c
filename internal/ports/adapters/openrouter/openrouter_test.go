package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/clipforge/internal/ports"
)

const testKey = "sk-or-v1-super-secret"

func TestSuggest_SendsChatCompletion(t *testing.T) {
	var got struct {
		Model          string  `json:"model"`
		Temperature    float64 `json:"temperature"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer "+testKey {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "gen-1", "object": "chat.completion", "created": 1, "model": "openai/gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  {\"clips\":[]}  "}}]
		}`))
	}))
	defer srv.Close()

	a := New(Options{APIKey: testKey, BaseURL: srv.URL, Temperature: 0.7})
	content, err := a.Suggest(context.Background(), ports.HighlightRequest{System: "sys", Prompt: "find clips"})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if content != `{"clips":[]}` {
		t.Fatalf("unexpected content %q", content)
	}
	if got.Model != DefaultModel || got.Temperature != 0.7 || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "find clips" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestSuggest_StatusErrorIsRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded for key ` + testKey + `","code":429}}`))
	}))
	defer srv.Close()

	a := New(Options{APIKey: testKey, BaseURL: srv.URL})
	_, err := a.Suggest(context.Background(), ports.HighlightRequest{Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "openrouter status 429") {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(err.Error(), testKey) {
		t.Fatalf("api key leaked: %v", err)
	}
}

func TestSuggest_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	a := New(Options{APIKey: testKey, BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := a.Suggest(context.Background(), ports.HighlightRequest{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestSuggest_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	_, err := New(Options{APIKey: testKey, BaseURL: srv.URL}).Suggest(context.Background(), ports.HighlightRequest{Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestRedactSecrets(t *testing.T) {
	in := `status 401; Authorization: Bearer ` + testKey + `; api_key=` + testKey
	got := redactSecrets(in, testKey)

	if strings.Contains(got, testKey) {
		t.Fatalf("expected API key to be redacted, got: %q", got)
	}
	if !strings.Contains(got, "Authorization: [REDACTED]") {
		t.Fatalf("expected authorization header to be redacted, got: %q", got)
	}
	if !strings.Contains(got, "api_key=[REDACTED]") {
		t.Fatalf("expected api_key field to be redacted, got: %q", got)
	}
}
