package conn

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mickamy/voltgo/errs"
	"github.com/mickamy/voltgo/protocol"
	"github.com/mickamy/voltgo/wire"
)

// maxFrameLen is the largest inbound frame this connection accepts, per
// spec.md §4.4 ("frames larger than 64 MiB are rejected as protocol
// violation").
const maxFrameLen = 64 * 1024 * 1024

// defaultBackpressureThreshold is the soft outbound-buffer high-water
// mark, per spec.md §6.
const defaultBackpressureThreshold = 256 * 1024

// Options configures Dial and the behavior of the resulting Conn.
type Options struct {
	TLSConfig             *tls.Config
	BackpressureThreshold int
	Logger                logrus.FieldLogger

	OnBackpressureChange   func(c *Conn, active bool)
	OnConnectionLost       func(c *Conn)
	OnTopologyNotification func(resp *protocol.InvocationResponse)
}

// Conn is one TCP (optionally TLS) session with the server: the
// authentication handshake, a write-queue goroutine, a read-framer
// goroutine, and the pending-request table the two cooperate through.
type Conn struct {
	ID         uuid.UUID
	log        logrus.FieldLogger
	netConn    net.Conn
	remoteAddr string

	state atomic.Int32

	pending *PendingTable

	writeCh       chan []byte
	outboundBytes atomic.Int64
	backpressured atomic.Bool
	bpThreshold   int64

	onBackpressureChange   func(c *Conn, active bool)
	onConnectionLost       func(c *Conn)
	onTopologyNotification func(resp *protocol.InvocationResponse)

	hostID           int32
	connectionID     int64
	clusterStartTime int64
	leaderAddress    int32

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial establishes a TCP session (optionally upgraded to TLS) to addr.
// It does not authenticate; call Authenticate next.
func Dial(ctx context.Context, addr string, opts Options) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errs.Wrap(errs.Connect, fmt.Sprintf("dial %s", addr), err)
	}

	if opts.TLSConfig != nil {
		tc := tls.Client(nc, opts.TLSConfig)
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = nc.Close()
			return nil, errs.Wrap(errs.Connect, "tls handshake", err)
		}
		nc = tc
	}

	threshold := int64(opts.BackpressureThreshold)
	if threshold <= 0 {
		threshold = defaultBackpressureThreshold
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Conn{
		ID:                     uuid.New(),
		log:                    log,
		netConn:                nc,
		remoteAddr:             addr,
		pending:                NewPendingTable(),
		writeCh:                make(chan []byte, 256),
		closed:                 make(chan struct{}),
		bpThreshold:            threshold,
		onBackpressureChange:   opts.OnBackpressureChange,
		onConnectionLost:       opts.OnConnectionLost,
		onTopologyNotification: opts.OnTopologyNotification,
	}
	c.state.Store(int32(StateDialing))
	return c, nil
}

// Authenticate writes exactly one authentication request and reads the
// response, advancing DIALING -> AUTH_SENT -> AUTHENTICATED or CLOSED.
func (c *Conn) Authenticate(ctx context.Context, req protocol.AuthRequest) (*protocol.AuthResponse, error) {
	c.state.Store(int32(StateAuthSent))

	frame, err := protocol.EncodeAuthRequest(req)
	if err != nil {
		c.state.Store(int32(StateClosed))
		return nil, err
	}
	if err := c.writeFrameDirect(ctx, frame); err != nil {
		c.state.Store(int32(StateClosed))
		return nil, errs.Wrap(errs.Connect, "write auth request", err)
	}

	body, err := c.readFrameDirect(ctx)
	if err != nil {
		c.state.Store(int32(StateClosed))
		return nil, errs.Wrap(errs.Connect, "read auth response", err)
	}
	resp, err := protocol.DecodeAuthResponse(wire.NewView(body))
	if err != nil {
		c.state.Store(int32(StateClosed))
		return nil, errs.Wrap(errs.Connect, "decode auth response", err)
	}
	if !resp.Success() {
		c.state.Store(int32(StateClosed))
		return resp, errs.New(errs.Connect, fmt.Sprintf("authentication failed: result code %d", resp.ResultCode))
	}

	c.hostID = resp.HostID
	c.connectionID = resp.ConnectionID
	c.clusterStartTime = resp.ClusterStartTime
	c.leaderAddress = resp.LeaderAddress
	c.state.Store(int32(StateAuthenticated))
	return resp, nil
}

// writeFrameDirect and readFrameDirect perform unbuffered, synchronous
// frame I/O. writeFrameDirect is used only during the handshake, before
// the write goroutine is running; readFrameDirect serves both the
// handshake and readLoop.
func (c *Conn) writeFrameDirect(ctx context.Context, frame []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.netConn.SetWriteDeadline(dl)
		defer func() { _ = c.netConn.SetWriteDeadline(time.Time{}) }()
	}
	_, err := c.netConn.Write(frame)
	return err
}

func (c *Conn) readFrameDirect(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.netConn.SetReadDeadline(dl)
		defer func() { _ = c.netConn.SetReadDeadline(time.Time{}) }()
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.netConn, lenBuf[:]); err != nil {
		return nil, err
	}
	n := int32(binary.BigEndian.Uint32(lenBuf[:]))
	if n <= 0 || n > maxFrameLen {
		return nil, errs.New(errs.ProtocolViolation, fmt.Sprintf("frame length %d out of range", n))
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(c.netConn, body); err != nil {
		return nil, err
	}
	return body, nil
}

// Run starts the read and write loops and blocks until either exits
// (normally because the socket closed or Close was called). It always
// leaves the connection CLOSED and every pending request completed
// with a synthetic CONNECTION_LOST response before returning.
func (c *Conn) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx) })
	g.Go(func() error { return c.writeLoop(gctx) })
	err := g.Wait()
	c.transitionClosed()
	return err
}

func (c *Conn) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		body, err := c.readFrameDirect(ctx)
		if err != nil {
			return fmt.Errorf("conn: read: %w", err)
		}
		resp, err := protocol.DecodeInvocationResponse(wire.NewView(body))
		if err != nil {
			return fmt.Errorf("conn: decode response: %w", err)
		}

		if protocol.IsTopologyNotification(resp) {
			if c.onTopologyNotification != nil {
				c.onTopologyNotification(resp)
			}
			continue
		}

		pending, ok := c.pending.Remove(resp.ClientToken)
		if !ok {
			c.log.WithField("client_token", resp.ClientToken).Warn("conn: response for unknown client token")
			continue
		}
		pending.Callback(resp, nil)
	}
}

func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case frame, ok := <-c.writeCh:
			if !ok {
				return nil
			}
			if _, err := c.netConn.Write(frame); err != nil {
				return fmt.Errorf("conn: write: %w", err)
			}
			c.adjustOutbound(-int64(len(frame)))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Conn) adjustOutbound(delta int64) {
	queued := c.outboundBytes.Add(delta)
	wasBP := c.backpressured.Load()
	isBP := queued >= c.bpThreshold
	if isBP != wasBP {
		c.backpressured.Store(isBP)
		if c.onBackpressureChange != nil {
			c.onBackpressureChange(c, isBP)
		}
	}
}

// Enroll registers p in the pending-request table. Callers must enroll
// before calling Send with the corresponding frame.
func (c *Conn) Enroll(p *PendingRequest) { c.pending.Add(p) }

// Send queues frame for the write loop. It returns an error if the
// connection is already closed.
func (c *Conn) Send(frame []byte) error {
	select {
	case c.writeCh <- frame:
		c.adjustOutbound(int64(len(frame)))
		return nil
	case <-c.closed:
		return errs.New(errs.NoConnections, "connection is closed")
	}
}

// transitionClosed fires exactly once: it marks the connection CLOSED,
// drains the pending table with synthetic CONNECTION_LOST callbacks, and
// notifies the connection-lost listener.
func (c *Conn) transitionClosed() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.closed)
		if c.onConnectionLost != nil {
			c.onConnectionLost(c)
		}
		lost := c.pending.DrainAll()
		for _, p := range lost {
			p.Callback(&protocol.InvocationResponse{
				ClientToken: p.ClientToken,
				StatusCode:  protocol.StatusConnectionLost,
			}, nil)
		}
	})
}

// Close closes the underlying socket, which unblocks the read/write
// loops and causes Run to return.
func (c *Conn) Close() error {
	err := c.netConn.Close()
	c.transitionClosed()
	return err
}

// ExpireDeadlines fires a synthetic CONNECTION_TIMEOUT response for
// every read-only pending request whose local deadline has passed, per
// spec.md §5's cancellation rule. It is safe to call from a timer
// goroutine external to the read/write loops.
func (c *Conn) ExpireDeadlines(now time.Time) {
	expired := c.pending.ExpireDeadlines(now)
	for _, p := range expired {
		p.Callback(&protocol.InvocationResponse{
			ClientToken: p.ClientToken,
			StatusCode:  protocol.StatusConnectionTimeout,
		}, nil)
	}
}

func (c *Conn) State() State            { return State(c.state.Load()) }
func (c *Conn) Backpressured() bool     { return c.backpressured.Load() }
func (c *Conn) HostID() int32           { return c.hostID }
func (c *Conn) RemoteAddr() string      { return c.remoteAddr }
func (c *Conn) ClusterStartTime() int64 { return c.clusterStartTime }
func (c *Conn) LeaderAddress() int32    { return c.leaderAddress }
func (c *Conn) PendingCount() int       { return c.pending.Len() }
