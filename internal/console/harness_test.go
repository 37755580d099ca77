package console

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/activity"
	"github.com/matthewbaird/abiconsole/internal/event"
	"github.com/matthewbaird/abiconsole/internal/eventbus"
	"github.com/matthewbaird/abiconsole/internal/invoke"
)

const tokenABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"who","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"Transfer","inputs":[]}
]`

const (
	holder = "0x00000000000000000000000000000000000000aa"
	token  = "0x00000000000000000000000000000000000000cc"
)

type stubSession struct {
	mu        sync.Mutex
	targets   []string
	args      []invoke.Args
	readValue any
	readErr   error
	hash      string
	receipt   any
}

func (s *stubSession) Read(_ context.Context, target string, _ abi.Entry, args invoke.Args) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, target)
	s.args = append(s.args, args)
	return s.readValue, s.readErr
}

func (s *stubSession) Write(_ context.Context, target string, _ abi.Entry, args invoke.Args) (invoke.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, target)
	s.args = append(s.args, args)
	return stubPending{hash: s.hash, receipt: s.receipt}, nil
}

func (s *stubSession) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.args)
}

func (s *stubSession) recorded() ([]string, []invoke.Args) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.targets...), append([]invoke.Args(nil), s.args...)
}

type stubPending struct {
	hash    string
	receipt any
}

func (p stubPending) Hash() string { return p.hash }

func (p stubPending) AwaitConfirmation(context.Context) (any, error) { return p.receipt, nil }

type stubProvider struct {
	sess invoke.Session
	err  error
}

func (p stubProvider) AcquireSession(context.Context) (invoke.Session, error) {
	return p.sess, p.err
}

type harness struct {
	srv     *httptest.Server
	server  *Server
	engine  *invoke.Engine
	journal *activity.MemoryStore
}

// newHarness wires a console the way cmd/server does, with provider as the
// endpoint (nil for none).
func newHarness(t *testing.T, provider invoke.Provider) *harness {
	t.Helper()
	log := zap.NewNop()
	reg := prometheus.NewRegistry()

	bus := eventbus.New(256, log)
	journal := activity.NewMemoryStore()
	hub := NewHub(log)
	bus.Subscribe("journal", event.NewActivityRecorder(journal))
	bus.Subscribe("hub", hub)

	engine := invoke.New(
		invoke.WithPublisher(bus),
		invoke.WithMetrics(invoke.NewMetrics(reg)),
		invoke.WithLogger(log),
	)
	ep := NewEndpoint(provider, log)
	if provider != nil {
		require.NoError(t, ep.Acquire(context.Background()))
	}

	s := New(Config{
		Engine:   engine,
		Endpoint: ep,
		Journal:  journal,
		Hub:      hub,
		Gatherer: reg,
		Target:   token,
		Log:      log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Start(ctx)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		srv.Close()
		bus.Stop()
		cancel()
	})
	return &harness{srv: srv, server: s, engine: engine, journal: journal}
}

var errDial = errors.New("dial tcp 127.0.0.1:8545: connection refused")
