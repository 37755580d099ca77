package console

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/invoke"
)

// Endpoint holds the session currently used for calls. A failed acquire
// leaves the previous session in place. A replaced session is closed; the
// session itself defers releasing its connection until the calls still
// using it have finished.
type Endpoint struct {
	mu       sync.Mutex
	provider invoke.Provider
	session  invoke.Session
	log      *zap.Logger
}

func NewEndpoint(p invoke.Provider, log *zap.Logger) *Endpoint {
	if log == nil {
		log = zap.NewNop()
	}
	return &Endpoint{provider: p, log: log.With(zap.String("component", "endpoint"))}
}

// Acquire asks the provider for a fresh session and makes it current.
func (e *Endpoint) Acquire(ctx context.Context) error {
	if e.provider == nil {
		return invoke.ErrEndpointUnavailable
	}
	sess, err := e.provider.AcquireSession(ctx)
	if err != nil {
		e.log.Warn("acquire session failed", zap.Error(err))
		return err
	}

	e.mu.Lock()
	old := e.session
	e.session = sess
	e.mu.Unlock()

	closeSession(old, e.log)
	e.log.Info("session acquired")
	return nil
}

// Session returns the current session, or nil when none was acquired.
func (e *Endpoint) Session() invoke.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Available reports whether a session is held.
func (e *Endpoint) Available() bool {
	return e.Session() != nil
}

// Close releases the current session.
func (e *Endpoint) Close() {
	e.mu.Lock()
	old := e.session
	e.session = nil
	e.mu.Unlock()
	closeSession(old, e.log)
}

func closeSession(s invoke.Session, log *zap.Logger) {
	c, ok := s.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("closing session", zap.Error(err))
	}
}
