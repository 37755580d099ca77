// Package eventbus provides an in-process pub/sub bus for engine events.
// The invocation engine publishes state changes; the journal recorder, the
// console broadcaster and the log consumer subscribe.
package eventbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Handler processes an event. Implementations must be safe for
// concurrent calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt any) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt any) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt any) error {
	return f(ctx, evt)
}

// Bus is a simple in-process event bus. Events are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine,
// so subscribers observe events in publish order.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan any
	done        chan struct{}
	log         *zap.Logger
	stopped     bool
	dropped     atomic.Uint64
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int, log *zap.Logger) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		events: make(chan any, bufSize),
		done:   make(chan struct{}),
		log:    log.With(zap.String("component", "eventbus")),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends an event to the bus. Non-blocking: if the buffer is full
// or the bus is stopped the event is dropped and a warning is logged.
func (b *Bus) Publish(_ context.Context, evt any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		b.dropped.Add(1)
		b.log.Warn("bus stopped, dropping event", zap.String("type", fmt.Sprintf("%T", evt)))
		return
	}
	select {
	case b.events <- evt:
	default:
		b.dropped.Add(1)
		b.log.Warn("buffer full, dropping event", zap.String("type", fmt.Sprintf("%T", evt)))
	}
}

// Start begins the consumer goroutine. It runs until Stop; handlers get a
// context that outlives ctx's cancellation so that events queued during
// shutdown are still recorded.
func (b *Bus) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(b.done)
		for evt := range b.events {
			b.dispatch(ctx, evt)
		}
	}()
}

// Stop closes the bus and waits for queued events to be dispatched.
// Events published after Stop are dropped.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	close(b.events)
	b.mu.Unlock()
	<-b.done
}

// Dropped returns how many events were discarded since the bus was created.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) dispatch(ctx context.Context, evt any) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			b.log.Error("handler failed",
				zap.String("subscriber", s.name),
				zap.String("type", fmt.Sprintf("%T", evt)),
				zap.Error(err))
		}
	}
}
