// Package analyst turns a ticker into a structured analysis or a live
// price by querying the language model.
package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/tickerlens/internal/config"
	"github.com/seenimoa/tickerlens/internal/extract"
	"github.com/seenimoa/tickerlens/internal/llm"
	"github.com/seenimoa/tickerlens/internal/logging"
	"github.com/seenimoa/tickerlens/internal/news"
	"github.com/seenimoa/tickerlens/internal/retry"
	"github.com/seenimoa/tickerlens/pkg/models"
	"github.com/seenimoa/tickerlens/pkg/utils"
)

// ErrEmptySymbol is returned for a blank ticker.
var ErrEmptySymbol = errors.New("analyst: empty ticker symbol")

// HeadlineSource supplies news for the prompt. *news.Fetcher implements it.
type HeadlineSource interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]news.Headline, error)
}

// Options tune the query layer.
type Options struct {
	Model            string
	Temperature      float64
	GoogleSearch     bool
	MaxAttempts      int
	PriceMaxAttempts int
	BaseDelay        time.Duration
	NewsHeadlines    int
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		Temperature:      0.2,
		GoogleSearch:     true,
		MaxAttempts:      3,
		PriceMaxAttempts: 2,
		BaseDelay:        time.Second,
		NewsHeadlines:    5,
	}
}

// OptionsFromConfig reads Options from the llm and analysis sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:            cfg.LLM.Model,
		Temperature:      cfg.LLM.Temperature,
		GoogleSearch:     cfg.LLM.GoogleSearch,
		MaxAttempts:      cfg.Analysis.MaxAttempts,
		PriceMaxAttempts: cfg.Analysis.PriceMaxAttempts,
		BaseDelay:        cfg.Analysis.BaseDelay(),
		NewsHeadlines:    cfg.Analysis.NewsHeadlines,
	}
}

// Service is the query layer.
type Service struct {
	gen    llm.Generator
	news   HeadlineSource
	opts   Options
	sleep  retry.SleepFunc
	now    func() time.Time
	logger zerolog.Logger
}

// New creates a Service.
func New(gen llm.Generator, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		gen:    gen,
		opts:   opts,
		now:    time.Now,
		logger: logging.WithOperation(logger, "analyst"),
	}
}

// WithNews enables headline context in analysis prompts.
func (s *Service) WithNews(src HeadlineSource) *Service {
	s.news = src
	return s
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithSleep replaces the retry sleep. Used in tests.
func (s *Service) WithSleep(sleep retry.SleepFunc) *Service {
	s.sleep = sleep
	return s
}

// NormalizeSymbol prepares user input: "tcs " → "tcs.NS", "TCS.BO" unchanged.
func NormalizeSymbol(symbol string) string {
	return utils.NormalizeSymbol(symbol)
}

func (s *Service) policy(attempts int, logger zerolog.Logger) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		BaseDelay:   s.opts.BaseDelay,
		Sleep:       s.sleep,
		Logger:      logger,
	}
}

// Analyze runs a full analysis for symbol.
//
// Errors are llm.ErrEmptyResponse, extract.ErrUnparseablePayload, an
// *llm.StatusError from the upstream, or a context error.
func (s *Service) Analyze(ctx context.Context, symbol string) (*models.AnalysisResult, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrEmptySymbol
	}
	logger := logging.WithSymbol(s.logger, symbol)

	req := llm.Request{
		Model:        s.opts.Model,
		Prompt:       AnalysisPrompt(symbol, s.now(), s.headlines(ctx, symbol, logger)),
		System:       SystemPrompt,
		Temperature:  s.opts.Temperature,
		GoogleSearch: s.opts.GoogleSearch,
	}

	result, err := retry.Do(ctx, s.policy(s.opts.MaxAttempts, logger), func(ctx context.Context) (*models.AnalysisResult, error) {
		resp, err := s.generate(ctx, req, logger)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(resp.Text) == "" {
			return nil, llm.ErrEmptyResponse
		}
		result, err := extract.DecodeAnalysis(resp.Text, symbol, s.now())
		if err != nil {
			logger.Debug().Str("text", truncate(resp.Text, 200)).Msg("could not extract analysis")
			return nil, err
		}
		result.Sources = mergeSources(resp.Citations, result.Sources)
		return result, nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("analysis failed")
		return nil, err
	}

	logging.LogRecommendation(logger, string(result.Recommendation), result.Confidence, result.Price)
	return result, nil
}

// Price fetches the latest price for symbol. Failures degrade to a zero
// LivePrice and are only logged.
func (s *Service) Price(ctx context.Context, symbol string) models.LivePrice {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return models.LivePrice{}
	}
	logger := logging.WithOperation(logging.WithSymbol(s.logger, symbol), "price")

	req := llm.Request{
		Model:        s.opts.Model,
		Prompt:       PricePrompt(symbol, s.now()),
		System:       PriceSystemPrompt,
		Temperature:  s.opts.Temperature,
		GoogleSearch: s.opts.GoogleSearch,
	}

	q, err := retry.Do(ctx, s.policy(s.opts.PriceMaxAttempts, logger), func(ctx context.Context) (extract.Quote, error) {
		resp, err := s.generate(ctx, req, logger)
		if err != nil {
			return extract.Quote{}, err
		}
		return extract.DecodeQuote(resp.Text)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("price poll failed")
		return models.LivePrice{}
	}
	return models.LivePrice{Price: q.Price, Change: q.Change, FetchedAt: s.now()}
}

// generate makes one upstream call and logs it, failures included.
func (s *Service) generate(ctx context.Context, req llm.Request, logger zerolog.Logger) (*llm.Response, error) {
	start := time.Now()
	resp, err := s.gen.Generate(ctx, req)
	model, latency := req.Model, time.Since(start)
	if resp != nil {
		model, latency = resp.Model, resp.Latency
	}
	if model == "" {
		model = s.gen.Name()
	}
	logging.LogUpstreamCall(logger, model, latency, err)
	return resp, err
}

// Ping checks the upstream.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.gen.Ping(ctx); err != nil {
		return fmt.Errorf("analyst: %s unreachable: %w", s.gen.Name(), err)
	}
	return nil
}

func (s *Service) headlines(ctx context.Context, symbol string, logger zerolog.Logger) string {
	if s.news == nil || s.opts.NewsHeadlines <= 0 {
		return ""
	}
	items, err := s.news.Headlines(ctx, symbol, s.opts.NewsHeadlines)
	if err != nil {
		logger.Warn().Err(err).Msg("news context unavailable")
		return ""
	}
	return news.Context(items)
}

// mergeSources lists upstream citations first, then payload sources,
// dropping repeated URLs.
func mergeSources(citations []llm.Citation, payload []models.Source) []models.Source {
	out := make([]models.Source, 0, len(citations)+len(payload))
	seen := make(map[string]struct{}, cap(out))
	add := func(title, url string) {
		url = strings.TrimSpace(url)
		if url == "" {
			return
		}
		if _, ok := seen[url]; ok {
			return
		}
		seen[url] = struct{}{}
		if strings.TrimSpace(title) == "" {
			title = url
		}
		out = append(out, models.Source{Title: strings.TrimSpace(title), URL: url})
	}
	for _, c := range citations {
		add(c.Title, c.URL)
	}
	for _, p := range payload {
		add(p.Title, p.URL)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
