package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Executor guards calls to an unreliable dependency: the retry loop runs
// inside a per-operation circuit breaker, so an open circuit rejects before
// any attempt is made and a breaker rejection is never itself retried.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*breakerEntry
}

// breakerEntry pairs a breaker with its qualifying-failure count. The count
// is kept outside gobreaker because trip decisions must ignore errors the
// classifier does not record: a benign error between two qualifying failures
// must neither advance nor reset the streak.
type breakerEntry struct {
	breaker    *gobreaker.CircuitBreaker[any]
	qualifying atomic.Uint32
}

// record advances the count on recorded failures and resets it only on a
// genuine success. Non-recording errors leave it untouched.
func (b *breakerEntry) record(err error, classifier ErrorClassifier) {
	if err == nil {
		b.qualifying.Store(0)
		return
	}
	if classifier(err).RecordFailure {
		b.qualifying.Add(1)
	}
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*breakerEntry),
	}
}

func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classifier == nil {
		classifier = defaultClassifier
	}

	if !e.cfg.BreakerEnabled {
		return e.executeWithRetry(ctx, op, fn, classifier)
	}

	entry := e.circuitBreaker(op)
	_, err := entry.breaker.Execute(func() (any, error) {
		callErr := e.executeWithRetry(ctx, op, fn, classifier)
		entry.record(callErr, classifier)
		return nil, callErr
	})
	return err
}

// State reports the breaker state for an operation; operations that have
// never executed report Closed.
func (e *Executor) State(operation string) gobreaker.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok := e.breakers[operation]; ok {
		return entry.breaker.State()
	}
	return gobreaker.StateClosed
}

func (e *Executor) executeWithRetry(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classifier ErrorClassifier,
) error {
	maxAttempts := e.cfg.RetryMaxAttempts
	backoff := e.cfg.RetryBaseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		class := classifier(err)
		if !class.Retryable || attempt == maxAttempts {
			return err
		}

		// Delay before attempt k is min(base * 2^(k-2), max).
		wait := backoff
		if wait > e.cfg.RetryMaxDelay {
			wait = e.cfg.RetryMaxDelay
		}
		slog.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"error", err,
		)

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}

		backoff *= 2
		if backoff > e.cfg.RetryMaxDelay {
			backoff = e.cfg.RetryMaxDelay
		}
	}

	return nil
}

func (e *Executor) circuitBreaker(operation string) *breakerEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	if entry, ok := e.breakers[operation]; ok {
		return entry
	}

	entry := &breakerEntry{}
	settings := gobreaker.Settings{
		Name: operation,
		// One trial call at a time while half-open.
		MaxRequests: 1,
		Timeout:     e.cfg.BreakerRecoveryTimeout,
		// Trip on the entry's own count, not gobreaker's: the built-in
		// ConsecutiveFailures would be disturbed by non-recording errors.
		ReadyToTrip: func(gobreaker.Counts) bool {
			return entry.qualifying.Load() >= e.cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}

	entry.breaker = gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = entry
	return entry
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func defaultClassifier(error) ErrorClassification {
	return ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}
