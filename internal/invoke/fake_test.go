package invoke

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/event"
)

// fakeSession answers reads and writes from per-operation scripts. A read,
// submission or confirmation with a gate channel blocks until the channel
// is closed.
type fakeSession struct {
	mu     sync.Mutex
	reads  map[string][]readStep
	writes map[string][]writeStep
	calls  []recordedCall
}

type readStep struct {
	gate  chan struct{}
	value any
	err   error
}

type writeStep struct {
	hash       string
	submitGate chan struct{}
	submitErr  error
	gate       chan struct{}
	receipt    any
	err        error
	awaited    *atomic.Bool
}

type recordedCall struct {
	op   string
	path string
	args Args
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		reads:  make(map[string][]readStep),
		writes: make(map[string][]writeStep),
	}
}

func (f *fakeSession) onRead(op string, s readStep) *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[op] = append(f.reads[op], s)
	return f
}

func (f *fakeSession) onWrite(op string, s writeStep) *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[op] = append(f.writes[op], s)
	return f
}

func (f *fakeSession) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func (f *fakeSession) Read(ctx context.Context, _ string, entry abi.Entry, args Args) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{op: entry.Name, path: PathRead, args: args})
	steps := f.reads[entry.Name]
	if len(steps) == 0 {
		f.mu.Unlock()
		return nil, errors.New("no scripted read for " + entry.Name)
	}
	s := steps[0]
	f.reads[entry.Name] = steps[1:]
	f.mu.Unlock()

	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.value, s.err
}

func (f *fakeSession) Write(ctx context.Context, _ string, entry abi.Entry, args Args) (Pending, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{op: entry.Name, path: PathWrite, args: args})
	steps := f.writes[entry.Name]
	if len(steps) == 0 {
		f.mu.Unlock()
		return nil, errors.New("no scripted write for " + entry.Name)
	}
	s := steps[0]
	f.writes[entry.Name] = steps[1:]
	f.mu.Unlock()

	if s.submitGate != nil {
		select {
		case <-s.submitGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &fakePending{step: s}, nil
}

type fakePending struct {
	step writeStep
}

func (p *fakePending) Hash() string { return p.step.hash }

func (p *fakePending) AwaitConfirmation(ctx context.Context) (any, error) {
	if p.step.awaited != nil {
		p.step.awaited.Store(true)
	}
	if p.step.gate != nil {
		select {
		case <-p.step.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.step.receipt, p.step.err
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingPublisher) Publish(_ context.Context, evt any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingPublisher) superseded() []event.CallSuperseded {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.CallSuperseded
	for _, e := range r.events {
		if cs, ok := e.(event.CallSuperseded); ok {
			out = append(out, cs)
		}
	}
	return out
}

func (r *recordingPublisher) phases(op string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if sc, ok := e.(event.StateChanged); ok && sc.Operation == op {
			out = append(out, sc.Phase)
		}
	}
	return out
}
