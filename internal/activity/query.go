// Package activity is the invocation journal: one entry per finished call
// (succeeded or failed), queryable per operation.
package activity

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Entry is one finished call.
type Entry struct {
	ID           string          `json:"id"`
	CallID       string          `json:"call_id"`
	Operation    string          `json:"operation"`
	Path         string          `json:"path,omitempty"`
	Outcome      string          `json:"outcome"` // "succeeded" or "failed"
	TxHash       string          `json:"tx_hash,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	Error        string          `json:"error,omitempty"`
	SchemaDigest string          `json:"schema_digest,omitempty"`
	Generation   uint64          `json:"generation"`
	Superseded   bool            `json:"superseded,omitempty"` // resolved after a newer call replaced it
	OccurredAt   time.Time       `json:"occurred_at"`
}

// QueryOptions controls filtering and pagination for journal queries.
type QueryOptions struct {
	Operation string     // filter to one operation
	Outcome   string     // "succeeded" or "failed"
	Since     *time.Time // filter by time
	Limit     int        // max results (default: 50, max: 500)
	Cursor    string     // cursor for pagination
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 50}
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 50
	}
	return o.Limit
}

// A cursor names the last entry of a page by its occurred_at in unix
// nanoseconds and its id, "<nanos>:<id>". Entries are ordered by both, so
// entries sharing a timestamp are not skipped at a page boundary.
type cursor struct {
	at int64
	id string
}

func encodeCursor(e Entry) string {
	return strconv.FormatInt(e.OccurredAt.UnixNano(), 10) + ":" + e.ID
}

func decodeCursor(s string) (cursor, bool) {
	at, id, ok := strings.Cut(s, ":")
	if !ok {
		return cursor{}, false
	}
	n, err := strconv.ParseInt(at, 10, 64)
	if err != nil {
		return cursor{}, false
	}
	return cursor{at: n, id: id}, true
}

// follows reports whether e comes after the cursor in newest-first order.
func (c cursor) follows(e Entry) bool {
	at := e.OccurredAt.UnixNano()
	return at < c.at || (at == c.at && e.ID < c.id)
}

// newer orders entries newest first, id descending on equal timestamps.
func newer(a, b Entry) bool {
	if !a.OccurredAt.Equal(b.OccurredAt) {
		return a.OccurredAt.After(b.OccurredAt)
	}
	return a.ID > b.ID
}
