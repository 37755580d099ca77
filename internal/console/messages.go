package console

import (
	"encoding/json"

	"github.com/matthewbaird/abiconsole/internal/abi"
	"github.com/matthewbaird/abiconsole/internal/activity"
	"github.com/matthewbaird/abiconsole/internal/invoke"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server websocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "load", "collect", "invoke", "state", "emit", "complete", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// LoadData carries an interface description, either a plain entry array or
// a compiler artifact.
type LoadData struct {
	ABI json.RawMessage `json:"abi"`
}

// CollectData is the text of one input control.
type CollectData struct {
	Operation string `json:"operation"`
	Field     string `json:"field"`
	Value     string `json:"value"`
}

// InvokeData triggers an operation. Values override what the client
// collected earlier; Target overrides the configured contract address.
type InvokeData struct {
	Operation string            `json:"operation"`
	Target    string            `json:"target,omitempty"`
	Values    map[string]string `json:"values,omitempty"`
}

// StateRequest asks for one operation's state, or all when empty.
type StateRequest struct {
	Operation string `json:"operation,omitempty"`
}

// EmitRequest selects the generated component's flavour. Empty fields use
// the server defaults.
type EmitRequest struct {
	Dialect string `json:"dialect,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// CompleteRequest asks for completions of partially typed text.
type CompleteRequest struct {
	Text string `json:"text"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client websocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "loaded", "state", "states", "outcome", "emit", "completions", "event", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData greets a new connection.
type SessionData struct {
	SessionID  string `json:"session_id"`
	Generation uint64 `json:"generation"`
	Digest     string `json:"digest,omitempty"`
	Endpoint   bool   `json:"endpoint"`
}

// SchemaInfo describes the loaded interface.
type SchemaInfo struct {
	Generation uint64           `json:"generation"`
	Digest     string           `json:"digest"`
	Operations []invoke.Binding `json:"operations"`
	Warnings   []abi.Warning    `json:"warnings,omitempty"`
	ABI        json.RawMessage  `json:"abi,omitempty"`
}

// OutcomeData answers an invoke: the call's outcome, the operation state
// after it, and the error when it failed.
type OutcomeData struct {
	Outcome invoke.Outcome `json:"outcome"`
	State   invoke.State   `json:"state"`
	Error   *ErrorData     `json:"error,omitempty"`
}

// FileData is one emitted file.
type FileData struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// EmitData carries the generated component files.
type EmitData struct {
	Files []FileData `json:"files"`
}

// EventData wraps an engine event pushed to every client.
type EventData struct {
	Kind  string `json:"kind"` // "state_changed" or "schema_loaded"
	Event any    `json:"event"`
}

// HistoryData is a page of journal entries.
type HistoryData struct {
	Entries    []activity.Entry `json:"entries"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// CompletionsData carries autocomplete suggestions.
type CompletionsData struct {
	Items []CompletionItem `json:"items"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
