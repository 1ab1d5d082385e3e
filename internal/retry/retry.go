// Package retry runs an operation with bounded exponential backoff,
// retrying only failures the upstream marks as transient.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy configures Do.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc        // nil = context-aware timer
	Classify    func(error) bool // nil = IsTransient
	Logger      zerolog.Logger
}

// DefaultPolicy returns 3 attempts with a 1s base delay.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Logger:      zerolog.Nop(),
	}
}

// Backoff returns the delay after failed attempt i (0-based): base * 2^i.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base << uint(attempt)
}

// Do calls fn until it succeeds or the attempts are exhausted.
//
// A non-transient failure on the first attempt is returned at once. After
// that every failure is retried until the last attempt, whose error is
// returned unchanged.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	classify := p.Classify
	if classify == nil {
		classify = IsTransient
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if i == 0 && !classify(err) {
			return zero, err
		}
		if i == attempts-1 {
			break
		}

		delay := Backoff(p.BaseDelay, i)
		p.Logger.Warn().
			Err(err).
			Int("attempt", i+1).
			Int("max_attempts", attempts).
			Dur("delay", delay).
			Msg("retrying after failure")

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// Sleep waits for d, returning ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusCode extracts an HTTP status code from err, or 0 when none is known.
func StatusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

// IsTransient reports whether err carries a 429 or 5xx status. Errors
// without a status code are treated as permanent.
func IsTransient(err error) bool {
	code := StatusCode(err)
	return code == http.StatusTooManyRequests || code >= 500
}
