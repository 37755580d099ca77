// Package event defines the engine's state-change events and the recorder
// that turns finished calls into invocation journal entries.
package event

import (
	"context"
	"encoding/json"

	"github.com/matthewbaird/abiconsole/internal/activity"
)

// Publisher sends events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt any)
}

// ActivityRecorder writes every terminal StateChanged, and every
// CallSuperseded, to the invocation journal. Other events are ignored.
type ActivityRecorder struct {
	store activity.Store
}

// NewActivityRecorder creates a recorder backed by the given store.
func NewActivityRecorder(store activity.Store) *ActivityRecorder {
	return &ActivityRecorder{store: store}
}

// HandleEvent implements eventbus.Handler.
func (r *ActivityRecorder) HandleEvent(ctx context.Context, evt any) error {
	var entry activity.Entry
	var result string
	switch e := evt.(type) {
	case StateChanged:
		if !e.Terminal() {
			return nil
		}
		entry = activity.Entry{
			ID:           e.ID,
			CallID:       e.CallID,
			Operation:    e.Operation,
			Path:         e.Path,
			Outcome:      e.Phase,
			TxHash:       e.TxHash,
			ErrorCode:    e.ErrorCode,
			Error:        e.Error,
			SchemaDigest: e.SchemaDigest,
			Generation:   e.Generation,
			OccurredAt:   e.OccurredAt,
		}
		result = e.Result
	case CallSuperseded:
		entry = activity.Entry{
			ID:           e.ID,
			CallID:       e.CallID,
			Operation:    e.Operation,
			Path:         e.Path,
			Outcome:      e.Outcome,
			TxHash:       e.TxHash,
			ErrorCode:    e.ErrorCode,
			Error:        e.Error,
			SchemaDigest: e.SchemaDigest,
			Generation:   e.Generation,
			Superseded:   true,
			OccurredAt:   e.OccurredAt,
		}
		result = e.Result
	default:
		return nil
	}
	if result != "" {
		entry.Result = json.RawMessage(result)
	}
	return r.store.Append(ctx, entry)
}
