// Package publisher provides store-backed audit publishers.
// The default publisher appends synchronously; WithAsyncBuffer switches to a
// buffered channel drained by a background goroutine for hot paths where an
// audit append must never block a governance decision.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "warden/pkg/domain"
	audit "warden/pkg/platform/audit"
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox  chan audit.Event
	done   chan struct{}
	closer sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
// When the buffer is full the event is dropped and logged; audit is
// best-effort on these paths.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger used for drop/failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit publishes a single audit event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		if p.logger != nil {
			p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
		}
		return nil
	}
}

// List exposes the underlying store's per-user view, mainly for tests and
// the admin read endpoint.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops the drain goroutine. Buffered events still in flight are
// flushed before Close returns.
func (p *Publisher) Close() {
	p.closer.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
			return
		}
		close(p.done)
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Warn("audit append failed", "action", event.Action, "error", err)
		}
	}
}
