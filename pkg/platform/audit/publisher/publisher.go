package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/platform/audit"
	"vcanchor/pkg/platform/audit/metrics"
	"vcanchor/pkg/requestcontext"
)

// Publisher is the append-only entry point for audit events. With an async
// buffer, Emit never blocks the request path on the sink.
type Publisher struct {
	store   audit.Store
	events  chan audit.Event
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Metrics
	async   bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables background persistence through a buffer of size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan audit.Event, size)
			p.async = true
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if p.metrics != nil {
			p.metrics.QueueDepth.Dec()
		}
		p.persist(context.Background(), event)
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	start := time.Now()
	err := p.store.Append(ctx, event)
	if p.metrics != nil {
		p.metrics.PersistDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.PersistFailures.Inc()
		}
		p.logger.Error("failed to persist audit event",
			"error", err,
			"action", event.Action,
			"credential_id", event.CredentialID,
		)
	}
	return err
}

// Close stops accepting events and waits for the buffer to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit records event, filling timestamp, actor, request ID and client from ctx when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Subject(ctx)
	}
	if event.Client == "" {
		event.Client = requestcontext.ClientDevice(ctx)
	}

	if !p.async {
		return p.persist(ctx, event)
	}

	select {
	case p.events <- event:
		if p.metrics != nil {
			p.metrics.QueueDepth.Inc()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.metrics != nil {
			p.metrics.EventsDropped.Inc()
		}
		p.logger.Warn("audit buffer full, event dropped",
			"action", event.Action,
			"credential_id", event.CredentialID,
		)
		return dErrors.New(dErrors.CodeInternal, "audit buffer full")
	}
}
