// Package llm wraps the hosted text-generation model TickerLens queries:
// one prompt in, free-form text plus grounding citations out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ProviderGemini is the only upstream TickerLens talks to.
const ProviderGemini = "gemini"

// Common errors returned by generators.
var (
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrRateLimit     = errors.New("llm: rate limit exceeded")
	ErrProviderDown  = errors.New("llm: provider unavailable")
)

// StatusError is an upstream HTTP failure. Its status code drives retry
// classification.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: upstream status %d: %s", e.Code, e.Message)
}

// StatusCode implements retry.StatusCoder.
func (e *StatusError) StatusCode() int { return e.Code }

// Unwrap maps well-known status codes onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusTooManyRequests:
		return ErrRateLimit
	case e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden:
		return ErrNoAPIKey
	case e.Code >= 500:
		return ErrProviderDown
	}
	return nil
}

// Request is one generation call.
type Request struct {
	Model        string  // empty = provider default
	Prompt       string
	System       string
	Temperature  float64 // <= 0 = provider default
	GoogleSearch bool    // enable the web-search grounding tool
}

// Citation is a web page the model grounded its answer on.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the upstream answer.
type Response struct {
	Text      string        `json:"text"`
	Citations []Citation    `json:"citations,omitempty"`
	Model     string        `json:"model"`
	Provider  string        `json:"provider"`
	Latency   time.Duration `json:"latency"`
	Usage     Usage         `json:"usage"`
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	truncated := r.Text
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d citation(s), %d tokens, %v",
		r.Provider, r.Model, truncated, len(r.Citations), r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}

// Generator is the interface the query layer depends on.
type Generator interface {
	// Name returns the provider identifier.
	Name() string

	// Generate sends one prompt and returns the complete response.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Ping checks that the upstream is reachable and the key is valid.
	Ping(ctx context.Context) error
}

// dedupeCitations drops empty and repeated URLs, keeping first occurrence.
func dedupeCitations(in []Citation) []Citation {
	seen := make(map[string]struct{}, len(in))
	out := make([]Citation, 0, len(in))
	for _, c := range in {
		u := strings.TrimSpace(c.URL)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = u
		}
		out = append(out, Citation{Title: title, URL: u})
	}
	return out
}
