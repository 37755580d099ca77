package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/invoke"
)

type closingSession struct {
	stubSession
	closed bool
}

func (s *closingSession) Close() error {
	s.closed = true
	return nil
}

type sequenceProvider struct {
	sessions []invoke.Session
	errs     []error
}

func (p *sequenceProvider) AcquireSession(context.Context) (invoke.Session, error) {
	s, err := p.sessions[0], p.errs[0]
	p.sessions, p.errs = p.sessions[1:], p.errs[1:]
	return s, err
}

func TestEndpoint_Acquire(t *testing.T) {
	first, second := &closingSession{}, &closingSession{}
	p := &sequenceProvider{
		sessions: []invoke.Session{first, nil, second},
		errs:     []error{nil, errDial, nil},
	}
	ep := NewEndpoint(p, zap.NewNop())
	assert.False(t, ep.Available())

	require.NoError(t, ep.Acquire(context.Background()))
	assert.Same(t, first, ep.Session())

	// A failed re-acquire keeps the working session.
	assert.ErrorIs(t, ep.Acquire(context.Background()), errDial)
	assert.Same(t, first, ep.Session())
	assert.False(t, first.closed)

	require.NoError(t, ep.Acquire(context.Background()))
	assert.Same(t, second, ep.Session())
	assert.True(t, first.closed)

	ep.Close()
	assert.True(t, second.closed)
	assert.False(t, ep.Available())
}

func TestEndpoint_NoProvider(t *testing.T) {
	ep := NewEndpoint(nil, nil)
	assert.ErrorIs(t, ep.Acquire(context.Background()), invoke.ErrEndpointUnavailable)
}
