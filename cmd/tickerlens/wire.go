package main

import (
	"context"
	"fmt"

	"github.com/seenimoa/tickerlens/internal/analyst"
	"github.com/seenimoa/tickerlens/internal/history"
	"github.com/seenimoa/tickerlens/internal/llm"
	"github.com/seenimoa/tickerlens/internal/news"
	"github.com/seenimoa/tickerlens/internal/session"
)

// newAnalyst builds the Gemini-backed query service from cfg.
func newAnalyst(ctx context.Context) (*analyst.Service, error) {
	opts := []llm.GeminiOption{
		llm.WithGeminiModel(cfg.LLM.Model),
		llm.WithGeminiTimeout(cfg.LLM.Timeout()),
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, llm.WithGeminiBaseURL(cfg.LLM.BaseURL))
	}
	gen, err := llm.NewGeminiProvider(ctx, cfg.LLM.GeminiKey, opts...)
	if err != nil {
		return nil, err
	}

	svc := analyst.New(gen, analyst.OptionsFromConfig(cfg), logger)
	if cfg.Analysis.NewsContext {
		svc = svc.WithNews(news.NewFetcher())
	}
	return svc, nil
}

// openHistory opens the configured history store. Disabled history
// falls back to an in-memory store.
func openHistory() (history.Store, error) {
	if !cfg.History.Enabled || cfg.History.Path == "" {
		return history.NewMemoryStore(), nil
	}
	store, err := history.OpenSQLite(cfg.History.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

// newSession wires analyst, history and poller into a loaded session.
// The returned cleanup stops polling and closes the store.
func newSession(ctx context.Context) (*session.Session, *analyst.Service, func(), error) {
	svc, err := newAnalyst(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := openHistory()
	if err != nil {
		return nil, nil, nil, err
	}

	sess := session.New(svc, store, session.Options{
		OpenInterval:   cfg.Polling.OpenInterval(),
		ClosedInterval: cfg.Polling.ClosedInterval(),
	}, logger)
	if err := sess.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("history load failed, starting empty")
	}

	cleanup := func() {
		if err := sess.Close(); err != nil {
			logger.Warn().Err(err).Msg("history close failed")
		}
	}
	return sess, svc, cleanup, nil
}
