package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vcanchor/pkg/platform/circuit"
)

// Resilient retries failed submissions with a fixed backoff behind a circuit
// breaker. Context cancellation is returned at once and never counted
// against the breaker.
type Resilient struct {
	inner    Client
	breaker  *circuit.Breaker
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
	onRetry  func(attempt int, err error)
}

type ResilientOption func(*Resilient)

func WithAttempts(n int) ResilientOption {
	return func(r *Resilient) {
		if n > 0 {
			r.attempts = n
		}
	}
}

func WithBackoff(d time.Duration) ResilientOption {
	return func(r *Resilient) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) ResilientOption {
	return func(r *Resilient) {
		r.breaker = b
	}
}

func WithLogger(logger *slog.Logger) ResilientOption {
	return func(r *Resilient) {
		r.logger = logger
	}
}

// WithRetryHook is called before each retry.
func WithRetryHook(fn func(attempt int, err error)) ResilientOption {
	return func(r *Resilient) {
		r.onRetry = fn
	}
}

func NewResilient(inner Client, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		inner:    inner,
		attempts: 3,
		backoff:  500 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("chain")
	}
	return r
}

func (r *Resilient) ChainID() string {
	return r.inner.ChainID()
}

// Breaker exposes the breaker for health reporting.
func (r *Resilient) Breaker() *circuit.Breaker {
	return r.breaker
}

func (r *Resilient) SubmitRoot(ctx context.Context, root [32]byte) (*Receipt, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		var receipt *Receipt
		err := r.breaker.Do(ctx, func(ctx context.Context) error {
			var err error
			receipt, err = r.inner.SubmitRoot(ctx, root)
			return err
		}, countable)
		if err == nil {
			return receipt, nil
		}
		if !countable(err) || errors.Is(err, circuit.ErrOpen) {
			return nil, err
		}
		lastErr = err
		if attempt == r.attempts {
			break
		}
		r.logger.WarnContext(ctx, "chain submission failed, retrying",
			"attempt", attempt,
			"max_attempts", r.attempts,
			"chain_id", r.inner.ChainID(),
			"error", err,
		)
		if r.onRetry != nil {
			r.onRetry(attempt, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff):
		}
	}
	return nil, fmt.Errorf("chain submission failed after %d attempts: %w", r.attempts, lastErr)
}

func countable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

var (
	_ Client = (*MemoryClient)(nil)
	_ Client = (*EVMClient)(nil)
	_ Client = (*Resilient)(nil)
)
