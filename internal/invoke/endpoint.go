package invoke

import (
	"context"

	"github.com/matthewbaird/abiconsole/internal/abi"
)

// Provider hands out endpoint sessions. Acquiring one may involve user
// interaction (unlocking a signer) and may fail.
type Provider interface {
	AcquireSession(ctx context.Context) (Session, error)
}

// Session is a connected endpoint capability. It is passed explicitly to
// every Invoke; the engine never holds one of its own.
type Session interface {
	// Read performs a call that creates no transaction and returns the
	// decoded outputs: a single value when the function has one output,
	// a slice otherwise.
	Read(ctx context.Context, target string, entry abi.Entry, args Args) (any, error)

	// Write submits a transaction and returns once the endpoint has
	// accepted it.
	Write(ctx context.Context, target string, entry abi.Entry, args Args) (Pending, error)
}

// Pending is a submitted transaction awaiting confirmation.
type Pending interface {
	Hash() string
	// AwaitConfirmation blocks until the transaction is mined and returns
	// its receipt, or the failure.
	AwaitConfirmation(ctx context.Context) (any, error)
}
