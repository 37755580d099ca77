package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/event"
)

func TestBus_DispatchesInOrderToAllSubscribers(t *testing.T) {
	bus := New(16, zap.NewNop())

	var mu sync.Mutex
	var a, b []string
	bus.Subscribe("a", HandlerFunc(func(_ context.Context, evt any) error {
		mu.Lock()
		defer mu.Unlock()
		a = append(a, evt.(event.StateChanged).Phase)
		return nil
	}))
	bus.Subscribe("b", HandlerFunc(func(_ context.Context, evt any) error {
		mu.Lock()
		defer mu.Unlock()
		b = append(b, evt.(event.StateChanged).Phase)
		return errors.New("ignored")
	}))
	bus.Subscribe("log", NewLogConsumer(zap.NewNop()))

	bus.Start(context.Background())
	for _, p := range []string{"dispatching", "awaiting_confirmation", "succeeded"} {
		bus.Publish(context.Background(), event.StateChanged{Operation: "transfer", Phase: p})
	}
	bus.Stop()

	want := []string{"dispatching", "awaiting_confirmation", "succeeded"}
	assert.Equal(t, want, a)
	assert.Equal(t, want, b)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1, zap.NewNop())
	bus.Publish(context.Background(), event.StateChanged{Phase: "idle"})
	bus.Publish(context.Background(), event.StateChanged{Phase: "dropped"})

	var got []string
	bus.Subscribe("rec", HandlerFunc(func(_ context.Context, evt any) error {
		got = append(got, evt.(event.StateChanged).Phase)
		return nil
	}))
	bus.Start(context.Background())
	bus.Stop()

	assert.Equal(t, []string{"idle"}, got)
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestBus_PublishAfterStopIsDropped(t *testing.T) {
	bus := New(4, zap.NewNop())
	bus.Start(context.Background())
	bus.Stop()
	bus.Stop()

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), event.StateChanged{Phase: "failed"})
	})
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestBus_DrainsAfterContextCancel(t *testing.T) {
	bus := New(4, zap.NewNop())
	var errs []error
	bus.Subscribe("rec", HandlerFunc(func(ctx context.Context, _ any) error {
		errs = append(errs, ctx.Err())
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, event.StateChanged{Phase: "succeeded"})
	cancel()
	bus.Start(ctx)
	bus.Stop()

	assert.Equal(t, []error{nil}, errs)
}
