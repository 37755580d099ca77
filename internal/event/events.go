package event

import (
	"time"

	"github.com/google/uuid"
)

// StateChanged carries one transition of an operation's execution state.
// Generation identifies the loaded interface the operation belongs to;
// consumers drop events from older generations.
type StateChanged struct {
	ID           string    `json:"id"`
	Operation    string    `json:"operation"`
	Phase        string    `json:"phase"`
	Path         string    `json:"path,omitempty"` // "read" or "write"
	CallID       string    `json:"call_id,omitempty"`
	Generation   uint64    `json:"generation"`
	SchemaDigest string    `json:"schema_digest,omitempty"`
	TxHash       string    `json:"tx_hash,omitempty"`
	Result       string    `json:"result,omitempty"`
	Error        string    `json:"error,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Terminal reports whether the transition ends a call.
func (e StateChanged) Terminal() bool {
	return e.Phase == "succeeded" || e.Phase == "failed"
}

// CallSuperseded records the outcome of a call that resolved after it was
// replaced, by a newer call of the same operation or by a new interface.
// It never changes operation state and is not pushed to console clients;
// only the journal and the log see it.
type CallSuperseded struct {
	ID           string    `json:"id"`
	Operation    string    `json:"operation"`
	Outcome      string    `json:"outcome"` // "succeeded" or "failed"
	Path         string    `json:"path,omitempty"`
	CallID       string    `json:"call_id"`
	Generation   uint64    `json:"generation"`
	SchemaDigest string    `json:"schema_digest,omitempty"`
	TxHash       string    `json:"tx_hash,omitempty"`
	Result       string    `json:"result,omitempty"`
	Error        string    `json:"error,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// SchemaLoaded announces that a new interface replaced the previous one.
// All per-operation state of earlier generations is void after it.
type SchemaLoaded struct {
	ID           string    `json:"id"`
	Generation   uint64    `json:"generation"`
	SchemaDigest string    `json:"schema_digest"`
	Operations   []string  `json:"operations"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewID returns a fresh event id.
func NewID() string { return uuid.New().String() }
