package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/abiconsole/internal/activity"
)

func TestActivityRecorder(t *testing.T) {
	store := activity.NewMemoryStore()
	rec := NewActivityRecorder(store)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, rec.HandleEvent(ctx, StateChanged{ID: "1", Operation: "transfer", Phase: "dispatching", OccurredAt: at}))
	require.NoError(t, rec.HandleEvent(ctx, SchemaLoaded{ID: "2", Generation: 1}))
	require.NoError(t, rec.HandleEvent(ctx, StateChanged{
		ID: "3", CallID: "b", Operation: "transfer", Phase: "succeeded",
		TxHash: "0xbb", Result: `"ok"`, Generation: 1, OccurredAt: at.Add(time.Second),
	}))
	require.NoError(t, rec.HandleEvent(ctx, CallSuperseded{
		ID: "4", CallID: "a", Operation: "transfer", Outcome: "failed",
		TxHash: "0xaa", Error: "reverted", ErrorCode: "INVOCATION_FAILED", Generation: 1, OccurredAt: at.Add(2 * time.Second),
	}))

	got, _, err := store.List(ctx, activity.DefaultQueryOptions())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].CallID)
	assert.True(t, got[0].Superseded)
	assert.Equal(t, "failed", got[0].Outcome)
	assert.Equal(t, "0xaa", got[0].TxHash)
	assert.Equal(t, "INVOCATION_FAILED", got[0].ErrorCode)

	assert.Equal(t, "b", got[1].CallID)
	assert.False(t, got[1].Superseded)
	assert.Equal(t, `"ok"`, string(got[1].Result))
}
