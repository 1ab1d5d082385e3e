// Package api provides the HTTP and WebSocket server for TickerLens.
//
// It exposes the current analysis, search, price lookup and history as a
// JSON API, and streams price and analysis events over a WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/tickerlens/internal/analyst"
	"github.com/seenimoa/tickerlens/internal/config"
	"github.com/seenimoa/tickerlens/internal/infra"
	"github.com/seenimoa/tickerlens/internal/session"
	"github.com/seenimoa/tickerlens/pkg/models"
	"github.com/seenimoa/tickerlens/pkg/utils"
)

// Version is reported by the health endpoint. Set by the CLI.
var Version = "dev"

// priceCacheTTL bounds how often GET /price/{ticker} reaches the model.
const priceCacheTTL = 15 * time.Second

// Pricer answers one-off price lookups. *analyst.Service implements it.
type Pricer interface {
	Price(ctx context.Context, symbol string) models.LivePrice
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	sess   *session.Session
	prices Pricer
	cache  *infra.Cache[models.LivePrice]
	wsHub  *WSHub
	logger zerolog.Logger
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, sess *session.Session, prices Pricer, logger zerolog.Logger) *Server {
	srv := &Server{
		cfg:    cfg,
		sess:   sess,
		prices: prices,
		cache:  infra.NewCache[models.LivePrice](priceCacheTTL),
		wsHub:  NewWSHub(logger),
		logger: logger.With().Str("component", "api").Logger(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// The WebSocket hub and the session event relay run alongside.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 6 * time.Minute, // a full analysis may retry for several minutes
		IdleTimeout:  60 * time.Second,
	}

	events, unsubscribe := s.sess.Subscribe(64)
	defer unsubscribe()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.wsHub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		s.relayEvents(ctx, events)
		return nil
	})

	g.Go(func() error {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// relayEvents forwards session events to WebSocket clients.
func (s *Server) relayEvents(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			s.wsHub.Broadcast(eventMessage(e))
		}
	}
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(6 * time.Minute))

	// CORS
	r.Use(cors.Handler(s.corsOptions()))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Analysis
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/current", s.handleGetCurrent)
		r.Delete("/current", s.handleClearCurrent)

		// Prices
		r.Get("/price/{ticker}", s.handlePrice)

		// History
		r.Get("/history", s.handleGetHistory)
		r.Delete("/history", s.handleClearHistory)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// corsOptions allows the configured origins with credentials. With no
// origins configured any origin is allowed, without credentials.
func (s *Server) corsOptions() cors.Options {
	opts := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if s.cfg != nil && len(s.cfg.API.CORSOrigins) > 0 {
		opts.AllowedOrigins = s.cfg.API.CORSOrigins
		opts.AllowCredentials = true
	}
	return opts
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// AnalyzeRequest is the body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Ticker string `json:"ticker"`
}

// PriceResponse is the body for GET /api/v1/price/{ticker}.
type PriceResponse struct {
	Symbol string           `json:"symbol"`
	Price  models.LivePrice `json:"price"`
	Valid  bool             `json:"valid"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := utils.NowIST()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       Version,
			"market_status": utils.MarketStatusAt(now),
			"market_open":   utils.IsMarketOpenAt(now),
			"time_ist":      utils.FormatDateTimeIST(now),
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	symbol := analyst.NormalizeSymbol(req.Ticker)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	result, err := s.sess.Search(ctx, symbol)
	if err != nil {
		if errors.Is(err, analyst.ErrEmptySymbol) {
			writeError(w, http.StatusBadRequest, "ticker is required")
			return
		}
		writeError(w, http.StatusBadGateway, session.ErrAnalysisFailed.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result,
	})
}

func (s *Server) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	snap := s.sess.Snapshot()
	if snap.Analysis == nil {
		writeError(w, http.StatusNotFound, "no active analysis")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: snap})
}

func (s *Server) handleClearCurrent(w http.ResponseWriter, r *http.Request) {
	s.sess.Clear()
	writeJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := analyst.NormalizeSymbol(chi.URLParam(r, "ticker"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	p, ok := s.cache.Get(symbol)
	if !ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()
		p = s.prices.Price(ctx, symbol)
		if p.Valid() {
			s.cache.Set(symbol, p)
		}
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    PriceResponse{Symbol: symbol, Price: p, Valid: p.Valid()},
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.sess.History()})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.ClearHistory(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("clear history failed")
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: models.History{}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
