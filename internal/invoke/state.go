package invoke

import (
	"fmt"
	"time"
)

// Phase is the execution state of one operation.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseCollecting  Phase = "collecting"
	PhaseDispatching Phase = "dispatching"
	PhaseAwaiting    Phase = "awaiting_confirmation"
	PhaseSucceeded   Phase = "succeeded"
	PhaseFailed      Phase = "failed"
)

// Terminal reports whether the phase ends a call.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// transitions lists the phases reachable from each phase. Dispatching is
// re-enterable from every phase that is not Idle or Collecting so that a
// second call may race one still in flight.
var transitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseCollecting, PhaseDispatching, PhaseFailed},
	PhaseCollecting:  {PhaseCollecting, PhaseDispatching, PhaseFailed},
	PhaseDispatching: {PhaseDispatching, PhaseAwaiting, PhaseSucceeded, PhaseFailed},
	PhaseAwaiting:    {PhaseDispatching, PhaseSucceeded, PhaseFailed},
	PhaseSucceeded:   {PhaseCollecting, PhaseDispatching, PhaseFailed},
	PhaseFailed:      {PhaseCollecting, PhaseDispatching, PhaseFailed},
}

// ValidateTransition checks whether moving from current to target is
// allowed. It returns nil if it is, or a descriptive error otherwise.
func ValidateTransition(current, target Phase) error {
	allowed, ok := transitions[current]
	if !ok {
		return fmt.Errorf("unknown current phase: %s", current)
	}
	for _, p := range allowed {
		if p == target {
			return nil
		}
	}
	return fmt.Errorf("transition from %q to %q is not allowed", current, target)
}

// State is a snapshot of one operation's execution state. Result and Error
// describe the most recently initiated call that has resolved; they survive
// a return to Collecting until the next call resolves.
type State struct {
	Operation  string            `json:"operation"`
	Phase      Phase             `json:"phase"`
	Values     map[string]string `json:"values,omitempty"`
	Path       string            `json:"path,omitempty"`
	CallID     string            `json:"call_id,omitempty"`
	TxHash     string            `json:"tx_hash,omitempty"`
	Result     string            `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	ErrorCode  string            `json:"error_code,omitempty"`
	Generation uint64            `json:"generation"`
	UpdatedAt  time.Time         `json:"updated_at"`

	Err error `json:"-"`
}

// Pending reports whether a write was accepted and is awaiting confirmation.
// UIs show progress only in this phase, never during argument checks.
func (s State) Pending() bool { return s.Phase == PhaseAwaiting }

// Busy reports whether a call is in flight.
func (s State) Busy() bool {
	return s.Phase == PhaseDispatching || s.Phase == PhaseAwaiting
}
