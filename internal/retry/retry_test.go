package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/genai"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

// recorder collects requested sleeps without waiting.
type recorder struct{ delays []time.Duration }

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func policy(r *recorder, attempts int) Policy {
	p := DefaultPolicy()
	p.MaxAttempts = attempts
	p.BaseDelay = 100 * time.Millisecond
	p.Sleep = r.sleep
	return p
}

func TestDoTransientThenSuccess(t *testing.T) {
	rec := &recorder{}
	calls := 0
	got, err := Do(context.Background(), policy(rec, 3), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", statusErr(429)
		}
		return "third", nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if got != "third" || calls != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(rec.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, rec.delays[i], want[i])
		}
	}
}

func TestDoPermanentFirstAttemptReturnsImmediately(t *testing.T) {
	rec := &recorder{}
	calls := 0
	perm := statusErr(400)
	_, err := Do(context.Background(), policy(rec, 3), func(context.Context) (int, error) {
		calls++
		return 0, perm
	})
	if !errors.Is(err, perm) {
		t.Fatalf("err = %v, want %v", err, perm)
	}
	if calls != 1 || len(rec.delays) != 0 {
		t.Fatalf("calls=%d delays=%v, want 1 call and no sleep", calls, rec.delays)
	}
}

func TestDoPermanentAfterTransientStillRetries(t *testing.T) {
	rec := &recorder{}
	calls := 0
	_, err := Do(context.Background(), policy(rec, 3), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, statusErr(503)
		}
		return 0, statusErr(400)
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if StatusCode(err) != 400 {
		t.Fatalf("want last error returned, got %v", err)
	}
}

func TestDoExhaustedReturnsLastError(t *testing.T) {
	rec := &recorder{}
	calls := 0
	_, err := Do(context.Background(), policy(rec, 2), func(context.Context) (int, error) {
		calls++
		return 0, statusErr(500 + calls)
	})
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if StatusCode(err) != 502 {
		t.Fatalf("err = %v, want status 502", err)
	}
	if len(rec.delays) != 1 || rec.delays[0] != 100*time.Millisecond {
		t.Fatalf("delays = %v", rec.delays)
	}
}

func TestDoUnclassifiedErrorIsPermanent(t *testing.T) {
	rec := &recorder{}
	calls := 0
	_, err := Do(context.Background(), policy(rec, 3), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("connection reset")
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d err = %v", calls, err)
	}
}

func TestDoContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := DefaultPolicy()
	p.BaseDelay = time.Hour
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(context.Context) (int, error) {
			return 0, statusErr(429)
		})
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDoCustomClassifier(t *testing.T) {
	rec := &recorder{}
	p := policy(rec, 3)
	p.Classify = func(error) bool { return true }
	calls := 0
	_, _ = Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("always")
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"429", statusErr(429), true},
		{"500", statusErr(500), true},
		{"503 wrapped", fmt.Errorf("call: %w", statusErr(503)), true},
		{"400", statusErr(400), false},
		{"404", statusErr(404), false},
		{"no status", errors.New("boom"), false},
		{"nil", nil, false},
		{"genai 429", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, true},
		{"genai 403", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}, false},
		{"genai ptr 500", &genai.APIError{Code: 500}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	base := time.Second
	for i, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second} {
		if got := Backoff(base, i); got != want {
			t.Errorf("Backoff(%v, %d) = %v, want %v", base, i, got, want)
		}
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep err = %v", err)
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep err = %v", err)
	}
}
