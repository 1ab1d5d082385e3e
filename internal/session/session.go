// Package session holds the presentation state: the current analysis,
// its live price, the recent-search list and the polling controller.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/tickerlens/internal/history"
	"github.com/seenimoa/tickerlens/pkg/models"
	"github.com/seenimoa/tickerlens/pkg/utils"
)

// ErrAnalysisFailed is the user-facing search failure. The cause is wrapped.
var ErrAnalysisFailed = errors.New("analysis failed, try again")

// Analyzer is the query layer the session drives. *analyst.Service implements it.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*models.AnalysisResult, error)
	Price(ctx context.Context, symbol string) models.LivePrice
}

// EventType names a session event.
type EventType string

const (
	EventPriceUpdate      EventType = "price_update"
	EventAnalysisComplete EventType = "analysis_complete"
	EventAnalysisCleared  EventType = "analysis_cleared"
)

// Event is published to subscribers on every visible state change.
type Event struct {
	Type     EventType              `json:"type"`
	Symbol   string                 `json:"symbol,omitempty"`
	Analysis *models.AnalysisResult `json:"analysis,omitempty"`
	Price    *models.LivePrice      `json:"price,omitempty"`
	At       time.Time              `json:"at"`
}

// Snapshot is a copy of the visible state.
type Snapshot struct {
	Analysis     *models.AnalysisResult `json:"analysis"`
	LivePrice    models.LivePrice       `json:"live_price"`
	PollState    PollState              `json:"poll_state"`
	MarketStatus string                 `json:"market_status"`
}

// Options configure a Session.
type Options struct {
	OpenInterval   time.Duration
	ClosedInterval time.Duration
	Now            func() time.Time // nil = time.Now
}

// Session is the single-user presentation state.
type Session struct {
	analyzer Analyzer
	store    history.Store
	poller   *Poller
	now      func() time.Time
	logger   zerolog.Logger

	searchMu sync.Mutex // one search at a time

	mu      sync.RWMutex
	current *models.AnalysisResult
	live    models.LivePrice
	history models.History

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// New creates an idle session. Call Load to read persisted history.
func New(analyzer Analyzer, store history.Store, opts Options, logger zerolog.Logger) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		analyzer: analyzer,
		store:    store,
		now:      now,
		logger:   logger.With().Str("component", "session").Logger(),
		history:  models.History{},
		subs:     make(map[int]chan Event),
	}
	s.poller = NewPoller(analyzer.Price, s.onPrice,
		MarketHoursInterval(opts.OpenInterval, opts.ClosedInterval), s.logger).WithClock(now)
	return s
}

// Load reads the persisted history once.
func (s *Session) Load(ctx context.Context) error {
	h, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("session: load history: %w", err)
	}
	s.mu.Lock()
	s.history = h.Normalize()
	s.mu.Unlock()
	return nil
}

// Search stops polling, clears the current analysis and runs a new one.
// On success the result becomes current, history is updated and saved,
// and polling starts. On failure the session stays idle and the error
// wraps ErrAnalysisFailed.
func (s *Session) Search(ctx context.Context, symbol string) (*models.AnalysisResult, error) {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()

	s.poller.Stop()
	s.mu.Lock()
	hadCurrent := s.current != nil
	s.current = nil
	s.live = models.LivePrice{}
	s.mu.Unlock()
	if hadCurrent {
		s.publish(Event{Type: EventAnalysisCleared, At: s.now()})
	}

	result, err := s.analyzer.Analyze(ctx, symbol)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("search failed")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	at := s.now()
	s.mu.Lock()
	s.current = result
	s.live = models.LivePrice{Price: result.Price, FetchedAt: result.AnalyzedAt}
	s.history = s.history.Add(result.HistoryEntry(result.Symbol, at))
	snapshot := append(models.History(nil), s.history...)
	out := cloneResult(result)
	published := cloneResult(result)
	symbol = result.Symbol
	s.mu.Unlock()

	if err := s.store.Save(ctx, snapshot); err != nil {
		s.logger.Error().Err(err).Msg("history save failed")
	}

	s.poller.Start(symbol)
	s.publish(Event{Type: EventAnalysisComplete, Symbol: symbol, Analysis: published, At: at})
	return out, nil
}

// Clear stops polling and drops the current analysis.
func (s *Session) Clear() {
	s.poller.Stop()
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.live = models.LivePrice{}
	s.mu.Unlock()
	if had {
		s.publish(Event{Type: EventAnalysisCleared, At: s.now()})
	}
}

// ClearHistory empties and persists the recent-search list.
func (s *Session) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	s.history = models.History{}
	s.mu.Unlock()
	if err := s.store.Save(ctx, models.History{}); err != nil {
		return fmt.Errorf("session: clear history: %w", err)
	}
	return nil
}

// History returns a copy of the recent-search list.
func (s *Session) History() models.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(models.History{}, s.history...)
}

// Current returns the current analysis, or nil when idle.
func (s *Session) Current() *models.AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneResult(s.current)
}

// Snapshot returns the visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Analysis:  cloneResult(s.current),
		LivePrice: s.live,
	}
	s.mu.RUnlock()
	snap.PollState = s.poller.State()
	snap.MarketStatus = utils.MarketStatusAt(s.now())
	return snap
}

// PollState reports whether the live price is being refreshed.
func (s *Session) PollState() PollState {
	return s.poller.State()
}

// Subscribe registers for events. Slow subscribers miss events rather than
// block the session. Call the returned func to unsubscribe.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

// Close stops polling and the history store.
func (s *Session) Close() error {
	s.poller.Stop()
	s.subMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subMu.Unlock()
	return s.store.Close()
}

// onPrice applies a poll reading. Readings with price <= 0 are ignored.
func (s *Session) onPrice(symbol string, p models.LivePrice) {
	if !p.Valid() {
		s.logger.Debug().Str("symbol", symbol).Msg("ignoring empty price reading")
		return
	}

	s.mu.Lock()
	if s.current == nil || s.current.Symbol != symbol {
		s.mu.Unlock()
		return
	}
	s.current.Price = p.Price
	s.live = p
	s.mu.Unlock()

	s.publish(Event{Type: EventPriceUpdate, Symbol: symbol, Price: &p, At: s.now()})
}

func (s *Session) publish(e Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			s.logger.Warn().Str("event", string(e.Type)).Msg("subscriber slow, event dropped")
		}
	}
}

func cloneResult(r *models.AnalysisResult) *models.AnalysisResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Pros = cloneSlice(r.Pros)
	c.Cons = cloneSlice(r.Cons)
	c.Sources = cloneSlice(r.Sources)
	return &c
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
