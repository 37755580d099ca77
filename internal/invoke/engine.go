// Package invoke is the live invocation engine. It binds the callable
// functions of a loaded interface, keeps an explicit execution state per
// operation, prepares arguments from control text, and dispatches calls
// through an injected endpoint session.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/event"
)

// Engine holds the loaded interface and the per-operation states.
// States are created on first interaction and discarded by Load.
type Engine struct {
	mu     sync.Mutex
	schema *abi.Schema
	gen    uint64
	ops    map[string]*opState

	pub     event.Publisher
	metrics *Metrics
	log     *zap.Logger
}

type opState struct {
	State
	seq uint64 // most recently initiated call
}

// call identifies one invocation for the duration of its dispatch.
type call struct {
	id      string
	op      string
	path    string
	gen     uint64
	digest  string
	seq     uint64
	started time.Time
}

// Outcome is what Invoke reports to its caller. Superseded is set when a
// newer call of the same operation, or a new interface, replaced this one
// before it resolved; its result was not applied to the operation state.
type Outcome struct {
	CallID     string `json:"call_id"`
	Operation  string `json:"operation"`
	Path       string `json:"path"`
	TxHash     string `json:"tx_hash,omitempty"`
	Result     string `json:"result,omitempty"`
	Superseded bool   `json:"superseded,omitempty"`

	Value any `json:"-"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sends state changes to p. Publish must not block.
func WithPublisher(p event.Publisher) Option {
	return func(e *Engine) { e.pub = p }
}

// WithMetrics records call metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l.With(zap.String("component", "invoke")) }
}

// New creates an engine with no interface loaded.
func New(opts ...Option) *Engine {
	e := &Engine{
		ops: make(map[string]*opState),
		log: zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Load replaces the interface and voids every operation state, including
// states of operations the new interface no longer declares. Calls still
// in flight resolve into nothing. It returns the new generation.
func (e *Engine) Load(ctx context.Context, s *abi.Schema) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.schema = s
	e.gen++
	e.ops = make(map[string]*opState)
	e.metrics.loaded()

	names := make([]string, 0, s.Len())
	for _, fn := range s.Functions() {
		names = append(names, fn.Name)
	}
	if e.pub != nil {
		e.pub.Publish(ctx, event.SchemaLoaded{
			ID:           event.NewID(),
			Generation:   e.gen,
			SchemaDigest: s.Digest(),
			Operations:   names,
			OccurredAt:   time.Now().UTC(),
		})
	}
	return e.gen
}

// Schema returns the loaded interface, or nil.
func (e *Engine) Schema() *abi.Schema {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.schema
}

// Generation returns the number of interfaces loaded so far.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}

// State returns a snapshot of one operation's state. Operations nobody has
// touched yet are Idle.
func (e *Engine) State(op string) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.schema.Function(op); !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	return e.snapshotLocked(op), nil
}

// States returns a snapshot per callable function, in declaration order.
func (e *Engine) States() []State {
	e.mu.Lock()
	defer e.mu.Unlock()
	fns := e.schema.Functions()
	out := make([]State, 0, len(fns))
	for _, fn := range fns {
		out = append(out, e.snapshotLocked(fn.Name))
	}
	return out
}

// Collect stores the text of one input control. field is the control's
// naming.FieldID. While a call is in flight the value is kept for the next
// call and the phase does not change.
func (e *Engine) Collect(ctx context.Context, op, field, value string) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.schema.Function(op)
	if !ok {
		return State{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	if !hasField(entry, field) {
		return State{}, fmt.Errorf("%w: %s has no control %s", ErrUnknownField, op, field)
	}

	st := e.stateLocked(op)
	st.Values[field] = value
	if !st.Busy() {
		e.moveLocked(ctx, st, PhaseCollecting)
	}
	return e.snapshotLocked(op), nil
}

// Invoke prepares arguments for op from its collected control values
// overlaid with raw, and dispatches it through sess. Argument errors and a
// nil session fail the operation before anything reaches the endpoint.
//
// Reads resolve with the decoded result. Writes move to
// AwaitingConfirmation once the endpoint accepts the transaction and then
// wait for confirmation; that wait is not cancelled by ctx.
//
// Invoke blocks until the call resolves. Concurrent calls of the same
// operation race; only the most recently initiated one updates the state.
// A superseded call still reports its own result or error to its caller,
// and a superseded write still waits for its confirmation.
func (e *Engine) Invoke(ctx context.Context, op, target string, raw map[string]string, sess Session) (Outcome, error) {
	e.mu.Lock()
	entry, ok := e.schema.Function(op)
	if !ok {
		e.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	st := e.stateLocked(op)
	for k, v := range raw {
		st.Values[k] = v
	}
	st.seq++
	c := call{
		id:      uuid.NewString(),
		op:      op,
		path:    PathOf(entry),
		gen:     e.gen,
		digest:  e.schema.Digest(),
		seq:     st.seq,
		started: time.Now(),
	}
	st.CallID, st.Path, st.TxHash = c.id, c.path, ""
	out := Outcome{CallID: c.id, Operation: op, Path: c.path}

	args, err := Prepare(entry, st.Values)
	if err == nil && sess == nil {
		err = ErrEndpointUnavailable
	}
	if err != nil {
		e.failLocked(ctx, st, err)
		e.metrics.rejected(ErrorCode(err))
		e.mu.Unlock()
		return out, err
	}
	e.moveLocked(ctx, st, PhaseDispatching)
	e.metrics.dispatched()
	e.mu.Unlock()

	if entry.ReadOnly() {
		v, err := sess.Read(ctx, target, entry, args)
		return e.finish(ctx, c, out, v, c.endpointError(err))
	}

	pending, err := sess.Write(ctx, target, entry, args)
	if err != nil {
		return e.finish(ctx, c, out, nil, c.endpointError(err))
	}
	out.TxHash = pending.Hash()
	e.accepted(ctx, c, out.TxHash)

	v, err := pending.AwaitConfirmation(context.WithoutCancel(ctx))
	return e.finish(ctx, c, out, v, c.endpointError(err))
}

// endpointError wraps a session error as an InvocationError. Argument
// errors raised while encoding for the wire stay argument errors.
func (c call) endpointError(err error) error {
	if err == nil {
		return nil
	}
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return err
	}
	return &InvocationError{Operation: c.op, Path: c.path, Err: err}
}

// accepted records the transaction hash of a write and moves it to
// AwaitingConfirmation, unless the call is stale.
func (e *Engine) accepted(ctx context.Context, c call, hash string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.currentLocked(c)
	if !ok {
		e.log.Debug("write accepted after being superseded",
			zap.String("operation", c.op), zap.String("call_id", c.id), zap.String("tx", hash))
		return
	}
	st.TxHash = hash
	e.moveLocked(ctx, st, PhaseAwaiting)
}

func (e *Engine) finish(ctx context.Context, c call, out Outcome, v any, callErr error) (Outcome, error) {
	out.Value = v
	if callErr == nil {
		rendered, err := Render(v)
		if err != nil {
			callErr = err
		} else {
			out.Result = rendered
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.currentLocked(c)
	if !ok {
		out.Superseded = true
		e.metrics.discarded()
		e.log.Debug("discarding stale outcome", zap.String("operation", c.op), zap.String("call_id", c.id))
		e.publishSupersededLocked(ctx, c, out, callErr)
		return out, callErr
	}

	if callErr != nil {
		e.failLocked(ctx, st, callErr)
		e.metrics.resolved(c.path, PhaseFailed, ErrorCode(callErr), c.started)
		return out, callErr
	}
	st.Result, st.Error, st.ErrorCode, st.Err = out.Result, "", "", nil
	e.moveLocked(ctx, st, PhaseSucceeded)
	e.metrics.resolved(c.path, PhaseSucceeded, "", c.started)
	return out, nil
}

// currentLocked returns the state c may still write to: same generation
// and no newer call initiated since.
func (e *Engine) currentLocked(c call) (*opState, bool) {
	if c.gen != e.gen {
		return nil, false
	}
	st, ok := e.ops[c.op]
	if !ok || st.seq != c.seq {
		return nil, false
	}
	return st, true
}

func (e *Engine) stateLocked(op string) *opState {
	st, ok := e.ops[op]
	if !ok {
		st = &opState{State: State{
			Operation: op,
			Phase:     PhaseIdle,
			Values:    make(map[string]string),
		}}
		e.ops[op] = st
	}
	return st
}

func (e *Engine) snapshotLocked(op string) State {
	st, ok := e.ops[op]
	if !ok {
		return State{Operation: op, Phase: PhaseIdle, Generation: e.gen}
	}
	s := st.State
	s.Values = maps.Clone(st.Values)
	s.Generation = e.gen
	return s
}

func (e *Engine) failLocked(ctx context.Context, st *opState, err error) {
	st.Result = ""
	st.Err = err
	st.Error = err.Error()
	st.ErrorCode = ErrorCode(err)
	e.moveLocked(ctx, st, PhaseFailed)
}

// moveLocked applies a transition and publishes it.
func (e *Engine) moveLocked(ctx context.Context, st *opState, to Phase) {
	if err := ValidateTransition(st.Phase, to); err != nil {
		e.log.Error("rejected transition", zap.String("operation", st.Operation), zap.Error(err))
		return
	}
	st.Phase = to
	st.UpdatedAt = time.Now().UTC()
	if e.pub == nil {
		return
	}
	evt := event.StateChanged{
		ID:           event.NewID(),
		Operation:    st.Operation,
		Phase:        string(to),
		Path:         st.Path,
		CallID:       st.CallID,
		Generation:   e.gen,
		SchemaDigest: e.schema.Digest(),
		TxHash:       st.TxHash,
		OccurredAt:   st.UpdatedAt,
	}
	switch to {
	case PhaseSucceeded:
		evt.Result = st.Result
	case PhaseFailed:
		evt.Error, evt.ErrorCode = st.Error, st.ErrorCode
	}
	e.pub.Publish(ctx, evt)
}

// publishSupersededLocked hands a stale outcome to the journal. Operation
// state is left alone.
func (e *Engine) publishSupersededLocked(ctx context.Context, c call, out Outcome, callErr error) {
	if e.pub == nil {
		return
	}
	evt := event.CallSuperseded{
		ID:           event.NewID(),
		Operation:    c.op,
		Outcome:      string(PhaseSucceeded),
		Path:         c.path,
		CallID:       c.id,
		Generation:   c.gen,
		SchemaDigest: c.digest,
		TxHash:       out.TxHash,
		Result:       out.Result,
		OccurredAt:   time.Now().UTC(),
	}
	if callErr != nil {
		evt.Outcome = string(PhaseFailed)
		evt.Error, evt.ErrorCode = callErr.Error(), ErrorCode(callErr)
	}
	e.pub.Publish(ctx, evt)
}

func hasField(entry abi.Entry, field string) bool {
	for _, b := range Bind(entry).Fields {
		if b.ID == field {
			return true
		}
	}
	return false
}
