package client

import "github.com/mickamy/voltgo/protocol"

// StatusListener is the optional external callback sink spec.md §4.6
// names: connection lifecycle, backpressure transitions, and uncaught
// reactor exceptions. Any method may return true to request that the
// caller's Run loop break.
type StatusListener interface {
	ConnectionActive(hostname string) bool
	ConnectionLost(hostname string, connectionsRemaining int) bool
	Backpressure(on bool) bool
	UncaughtException(err error, callback Callback, response *protocol.InvocationResponse) bool
}

// NopListener implements StatusListener with every method a no-op
// that never requests a loop break. Embed it to implement only the
// methods a caller cares about.
type NopListener struct{}

func (NopListener) ConnectionActive(string) bool    { return false }
func (NopListener) ConnectionLost(string, int) bool { return false }
func (NopListener) Backpressure(bool) bool          { return false }
func (NopListener) UncaughtException(error, Callback, *protocol.InvocationResponse) bool {
	return false
}
