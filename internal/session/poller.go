package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/tickerlens/pkg/models"
	"github.com/seenimoa/tickerlens/pkg/utils"
)

// PollState is the polling controller state.
type PollState int

const (
	Idle PollState = iota
	Polling
)

func (s PollState) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

// MarshalText renders the state as "idle" or "polling" in JSON.
func (s PollState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PriceFunc fetches one price reading.
type PriceFunc func(ctx context.Context, symbol string) models.LivePrice

// UpdateFunc receives each reading, valid or not.
type UpdateFunc func(symbol string, p models.LivePrice)

// IntervalFunc picks the delay before the next poll given the current time.
type IntervalFunc func(now time.Time) time.Duration

// MarketHoursInterval returns open during NSE trading hours, closed otherwise.
func MarketHoursInterval(open, closed time.Duration) IntervalFunc {
	return func(now time.Time) time.Duration {
		return utils.PollInterval(now, open, closed)
	}
}

// Poller refreshes the price of one symbol on a timer. Each Start begins a
// new generation with its own goroutine; Stop ends it and waits for it.
type Poller struct {
	fetch    PriceFunc
	onUpdate UpdateFunc
	interval IntervalFunc
	now      func() time.Time
	logger   zerolog.Logger

	ctl    sync.Mutex // serializes Start and Stop
	mu     sync.Mutex
	state  PollState
	symbol string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates an idle poller.
func NewPoller(fetch PriceFunc, onUpdate UpdateFunc, interval IntervalFunc, logger zerolog.Logger) *Poller {
	return &Poller{
		fetch:    fetch,
		onUpdate: onUpdate,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the time source used to choose intervals.
func (p *Poller) WithClock(now func() time.Time) *Poller {
	p.now = now
	return p
}

// Start cancels any running cycle and begins polling symbol. The first
// poll happens after one interval.
func (p *Poller) Start(symbol string) {
	p.ctl.Lock()
	defer p.ctl.Unlock()
	p.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.state = Polling
	p.symbol = symbol
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.run(ctx, symbol, done)
}

// Stop ends polling and returns once the poll goroutine has exited, so no
// update is delivered after Stop returns. Stopping an idle poller is a no-op.
func (p *Poller) Stop() {
	p.ctl.Lock()
	defer p.ctl.Unlock()
	p.stop()
}

func (p *Poller) stop() {
	p.mu.Lock()
	if p.state == Idle {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.state = Idle
	p.symbol = ""
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	cancel()
	<-done
}

// State returns Idle or Polling.
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Symbol returns the symbol being polled, or "" when idle.
func (p *Poller) Symbol() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.symbol
}

func (p *Poller) run(ctx context.Context, symbol string, done chan struct{}) {
	defer close(done)
	logger := p.logger.With().Str("symbol", symbol).Logger()

	for {
		wait := p.interval(p.now())
		logger.Debug().Dur("interval", wait).Msg("next price poll scheduled")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		reading := p.fetch(ctx, symbol)
		if ctx.Err() != nil {
			return
		}
		p.onUpdate(symbol, reading)
	}
}
