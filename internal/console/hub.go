package console

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/event"
)

// Hub fans engine events out to websocket clients. It subscribes to the
// event bus like any other consumer and never blocks it: a client whose
// buffer is full misses the event.
type Hub struct {
	mu   sync.Mutex
	subs map[chan any]struct{}
	gen  uint64
	log  *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs: make(map[chan any]struct{}),
		log:  log.With(zap.String("component", "hub")),
	}
}

// Subscribe returns a channel of events and a function that closes it.
func (h *Hub) Subscribe(buf int) (<-chan any, func()) {
	ch := make(chan any, buf)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// HandleEvent implements eventbus.Handler. State changes from interfaces
// older than the last one loaded are dropped.
func (h *Hub) HandleEvent(_ context.Context, evt any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch e := evt.(type) {
	case event.SchemaLoaded:
		h.gen = max(h.gen, e.Generation)
	case event.StateChanged:
		if e.Generation < h.gen {
			return nil
		}
	default:
		return nil
	}

	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.log.Warn("client too slow, dropping event")
		}
	}
	return nil
}
