package client

import "github.com/mickamy/voltgo/protocol"

// CallbackKind distinguishes a caller-supplied async callback from the
// internal one InvokeSync installs, per spec.md §9's design note that
// sync invoke is "a single request with an internal callback that
// stores the response and breaks the event loop".
type CallbackKind int

const (
	// UserCallback is an application-supplied async callback.
	UserCallback CallbackKind = iota
	// SyncCallback is the internal callback InvokeSync installs.
	SyncCallback
)

// Callback is the tagged union passed to StatusListener.UncaughtException
// so a listener can tell a sync wait apart from an async subscription
// when deciding whether a panic recovered from user code should break
// the caller's loop.
type Callback struct {
	Kind CallbackKind
	Fn   func(*protocol.InvocationResponse, error)
}

// NewUserCallback wraps an application async callback.
func NewUserCallback(fn func(*protocol.InvocationResponse, error)) Callback {
	return Callback{Kind: UserCallback, Fn: fn}
}

func newSyncCallback(fn func(*protocol.InvocationResponse, error)) Callback {
	return Callback{Kind: SyncCallback, Fn: fn}
}
