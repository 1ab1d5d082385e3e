package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// ════════════════════════════════════════════════════════════════════
// provider.go: Types & Helpers
// ════════════════════════════════════════════════════════════════════

func TestStatusErrorUnwrap(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{429, ErrRateLimit},
		{401, ErrNoAPIKey},
		{403, ErrNoAPIKey},
		{500, ErrProviderDown},
		{503, ErrProviderDown},
	}
	for _, tt := range tests {
		err := error(&StatusError{Code: tt.code, Message: "x"})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d should unwrap to %v", tt.code, tt.want)
		}
	}
	if errors.Unwrap(&StatusError{Code: 400}) != nil {
		t.Error("400 should not map to a sentinel")
	}
	var sc interface{ StatusCode() int }
	if !errors.As(error(&StatusError{Code: 502}), &sc) || sc.StatusCode() != 502 {
		t.Error("StatusError must expose StatusCode")
	}
}

func TestResponseString(t *testing.T) {
	r := &Response{
		Text:      strings.Repeat("x", 150),
		Model:     "gemini-2.5-flash",
		Provider:  ProviderGemini,
		Latency:   1234 * time.Millisecond,
		Citations: []Citation{{Title: "a", URL: "https://a"}},
	}
	s := r.String()
	if !strings.Contains(s, "...") || !strings.Contains(s, "1 citation(s)") {
		t.Fatalf("unexpected summary: %s", s)
	}
}

func TestDedupeCitations(t *testing.T) {
	in := []Citation{
		{Title: "NSE", URL: "https://nseindia.com"},
		{Title: "dup", URL: " https://nseindia.com "},
		{Title: "", URL: "https://moneycontrol.com"},
		{Title: "empty", URL: ""},
	}
	got := dedupeCitations(in)
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Title != "NSE" || got[1].Title != "https://moneycontrol.com" {
		t.Fatalf("got %+v", got)
	}
}

// ════════════════════════════════════════════════════════════════════
// gemini.go
// ════════════════════════════════════════════════════════════════════

func newMockGeminiServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *GeminiProvider) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewGeminiProvider(context.Background(), "gem-key",
		WithGeminiModel("gemini-2.5-flash"),
		WithGeminiBaseURL(server.URL),
		WithGeminiTimeout(5*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	return server, p
}

func TestGeminiProviderNew(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "  ")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got: %v", err)
	}

	p, err := NewGeminiProvider(context.Background(), "test-key", WithGeminiModel("gemini-2.5-pro"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "gemini" || p.Model() != "gemini-2.5-pro" {
		t.Fatalf("unexpected config: %+v", p)
	}
}

func TestGeminiGenerate(t *testing.T) {
	var body map[string]any
	_, p := newMockGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "{\"recommendation\":\"SELL\"}"}]},
    "finishReason": "STOP",
    "groundingMetadata": {
      "groundingChunks": [
        {"web": {"uri": "https://www.nseindia.com/get-quotes/equity?symbol=TCS", "title": "NSE"}},
        {"web": {"uri": "https://www.nseindia.com/get-quotes/equity?symbol=TCS", "title": "NSE again"}},
        {"web": {"uri": "https://www.moneycontrol.com/tcs", "title": "Moneycontrol"}}
      ]
    }
  }],
  "usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 8, "totalTokenCount": 18}
}`))
	})

	resp, err := p.Generate(context.Background(), Request{
		Prompt:       "Analyze TCS.NS",
		System:       "You are an equity analyst.",
		Temperature:  0.2,
		GoogleSearch: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != `{"recommendation":"SELL"}` {
		t.Fatalf("unexpected text: %s", resp.Text)
	}
	if resp.Provider != "gemini" || resp.Model != "gemini-2.5-flash" || resp.Usage.TotalTokens != 18 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Citations) != 2 || resp.Citations[1].Title != "Moneycontrol" {
		t.Fatalf("unexpected citations: %+v", resp.Citations)
	}

	if _, ok := body["systemInstruction"]; !ok {
		t.Errorf("system instruction not sent: %v", body)
	}
	tools, _ := body["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected one tool, got %v", body["tools"])
	}
	if _, ok := tools[0].(map[string]any)["googleSearch"]; !ok {
		t.Errorf("google search tool not enabled: %v", tools[0])
	}
}

func TestGeminiGenerateRequestModelOverride(t *testing.T) {
	_, p := newMockGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/gemini-2.5-pro:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))
	})
	resp, err := p.Generate(context.Background(), Request{Model: "gemini-2.5-pro", Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Model != "gemini-2.5-pro" || len(resp.Citations) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGeminiGenerateEmpty(t *testing.T) {
	_, p := newMockGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"   "}]}}]}`))
	})
	_, err := p.Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGeminiErrorHandling(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  error
	}{
		{"bad request", 400, `{"error":{"code":400,"message":"bad prompt","status":"INVALID_ARGUMENT"}}`, nil},
		{"forbidden", 403, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`, ErrNoAPIKey},
		{"rate limit", 429, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, ErrRateLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, p := newMockGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := p.Generate(context.Background(), Request{Prompt: "hi"})
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StatusError, got %T: %v", err, err)
			}
			if se.Code != tt.status {
				t.Fatalf("status = %d, want %d", se.Code, tt.status)
			}
			if tt.check != nil && !errors.Is(err, tt.check) {
				t.Fatalf("expected %v, got %v", tt.check, err)
			}
		})
	}
}

func TestGeminiPing(t *testing.T) {
	_, p := newMockGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.Contains(r.URL.Path, "models/gemini-2.5-flash") {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"models/gemini-2.5-flash","displayName":"Gemini 2.5 Flash"}`))
	})
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestGeminiContextCancelled(t *testing.T) {
	_, p := newMockGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Generate(ctx, Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Fatalf("cancellation must not look like an upstream status: %v", err)
	}
}
