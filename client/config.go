// Package client implements the connection-pool façade (C6): the
// vector of active connections, client-token generation, sync/async
// invocation, reconnect policy, and the run()/drain()/close() cadence
// applications drive it with.
package client

import (
	"crypto/tls"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/mickamy/voltgo/protocol"
)

// DefaultMaxOutstanding is the original client's MAX_OUTSTANDING
// default (ClientConfig.cpp), adopted here as the zero-value fallback
// for Config.MaxOutstandingRequests.
const DefaultMaxOutstanding = 4000

// DefaultReconnectInterval is the period between reconnect sweeps, per
// spec.md §6 ("Reconnect interval: 10 s").
const DefaultReconnectInterval = 10 * time.Second

// Config is the option table from spec.md §6, plus the
// auto-reconnect/abandon fields SPEC_FULL.md §3 adds from
// ClientConfig.h/Distributer.cpp.
type Config struct {
	Username string
	Password string
	// HashScheme selects the password digest algorithm. Zero value is
	// protocol.HashSHA1; DefaultConfig sets protocol.HashSHA256.
	HashScheme protocol.HashScheme

	// MaxOutstandingRequests is the soft cap before backpressure or
	// abandonment kicks in. Zero means DefaultMaxOutstanding.
	MaxOutstandingRequests int
	// EnableAbandon allows a saturated Invoke to be dropped with
	// StatusTooBusy instead of blocking or backpressuring.
	EnableAbandon bool

	// EnableQueryTimeout turns on the local-deadline path for
	// read-only requests; QueryTimeout is the deadline duration.
	EnableQueryTimeout  bool
	QueryTimeout        time.Duration
	TimeoutScanInterval time.Duration

	// UseSSL wraps every connection's socket in TLS before
	// authenticating. TLSConfig is used as-is when set.
	UseSSL    bool
	TLSConfig *tls.Config

	// AutoReconnect enqueues the endpoint of a lost authenticated
	// connection into the 10s reconnect sweep, per ClientConfig.h's
	// autoReconnect flag. Endpoints that never authenticated enter the
	// sweep through CreateConnection's keepConnecting argument instead,
	// whatever this field says.
	AutoReconnect bool

	// Listener receives connection/backpressure/uncaught-exception
	// notifications. Nil disables the callback sink.
	Listener StatusListener

	// BackpressureThreshold overrides each connection's soft outbound
	// high-water mark. Zero means the conn package default (256 KiB).
	BackpressureThreshold int

	// LogLevel selects the logrus level used by the client's default
	// logger, when Logger is nil. Empty means "info".
	LogLevel string
	// Logger overrides the default logrus logger built from LogLevel.
	Logger logrus.FieldLogger

	// Registerer, when non-nil, registers the client's Prometheus
	// collectors (outstanding requests, backpressured connections,
	// reconnects, bytes sent/received) against it.
	Registerer prometheus.Registerer
}

// DefaultConfig returns a Config with every documented default applied:
// SHA-256 password hashing, DefaultMaxOutstanding, no TLS, no
// auto-reconnect, no timeout scanning.
func DefaultConfig() Config {
	return Config{
		HashScheme:             protocol.HashSHA256,
		MaxOutstandingRequests: DefaultMaxOutstanding,
		TimeoutScanInterval:    time.Second,
	}
}

func (c Config) maxOutstanding() int {
	if c.MaxOutstandingRequests <= 0 {
		return DefaultMaxOutstanding
	}
	return c.MaxOutstandingRequests
}
