// Package publisher emits audit events to a Store, either synchronously or
// through a bounded buffer with a single drain worker.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "vigil/pkg/platform/audit"
	dErrors "vigil/pkg/domain-errors"
)

// Publisher emits audit events. Synchronous by default; WithAsyncBuffer
// switches to buffered fire-and-forget with a drop-on-full policy.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox chan audit.Event
	done  chan struct{}
	once  sync.Once

	// mu orders async sends against Close so Emit never hits a closed
	// channel.
	mu     sync.RWMutex
	closed bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for drop and persistence warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
// When the buffer is full, events are dropped rather than blocking callers.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

// NewPublisher builds a Publisher over the store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit records one event. The timestamp and category are filled in when
// unset. In async mode a full buffer drops the event and returns nil; the
// trail tolerates gaps in operational events, never blocked requests.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "audit event requires an action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("audit publisher closed, dropping event", "action", event.Action)
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
	}
	return nil
}

// Close drains the async buffer and stops the worker. Safe to call more
// than once; a concurrent or later Emit drops its event instead of
// panicking on the closed inbox.
func (p *Publisher) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		if p.inbox == nil {
			close(p.done)
			return
		}
		close(p.inbox)
		<-p.done
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed", "action", event.Action, "error", err)
		}
	}
}
