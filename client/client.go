package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mickamy/voltgo/affinity"
	"github.com/mickamy/voltgo/conn"
	"github.com/mickamy/voltgo/errs"
	"github.com/mickamy/voltgo/internal/logging"
	"github.com/mickamy/voltgo/internal/metrics"
	"github.com/mickamy/voltgo/protocol"
	"github.com/mickamy/voltgo/value"
)

// Client is the connection-pool façade (C6): the vector of active
// connections, the host_id -> connection map, client-token generation,
// and sync/async invocation. Unlike the original single-reactor-thread
// design, each connection here runs its own read/write goroutine pair
// (conn.Conn.Run), the same shape mickamy-sql-tap's
// proxy/postgres/conn.go uses for one relayed session; Client
// coordinates across that pool rather than pumping a shared event loop.
// Run/RunOnce/RunFor/Interrupt/Wakeup are kept as the interface spec.md
// §4.6 names, adapted to block on a signal channel instead of driving
// socket I/O directly, since the per-connection goroutines already do
// that concurrently.
type Client struct {
	cfg    Config
	log    logrus.FieldLogger
	router *affinity.Router
	stats  *Stats

	mu          sync.RWMutex
	conns       []*conn.Conn
	connsByHost map[int32]*conn.Conn
	clusterKey  int64
	haveCluster bool

	tokenCounter atomic.Int64

	reconnectMu   sync.Mutex
	reconnectList map[string]*reconnectEntry

	interruptMu sync.Mutex
	interruptCh chan struct{}
	wakeupCh    chan struct{}

	closeOnce sync.Once
	closed    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Client with the given config. The returned Client owns
// no connections yet; call CreateConnection to add one.
func New(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = logging.New(cfg.LogLevel)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:           cfg,
		log:           log,
		stats:         NewStats(),
		connsByHost:   make(map[int32]*conn.Conn),
		reconnectList: make(map[string]*reconnectEntry),
		interruptCh:   make(chan struct{}),
		wakeupCh:      make(chan struct{}, 1),
		closed:        make(chan struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
	c.router = affinity.NewRouter(c.snapshotConns, c.invokeSystemProcedure)
	go c.reconnectLoop()
	if cfg.EnableQueryTimeout {
		c.EnableTimeoutScanner(cfg.TimeoutScanInterval, nil)
	}
	if cfg.Registerer != nil {
		cfg.Registerer.MustRegister(metrics.NewCollector("voltgo", c.stats, c))
	}
	return c
}

// BackpressuredCount implements metrics.ConnSource.
func (c *Client) BackpressuredCount() int {
	n := 0
	for _, cn := range c.snapshotConns() {
		if cn.Backpressured() {
			n++
		}
	}
	return n
}

func (c *Client) snapshotConns() []*conn.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*conn.Conn, len(c.conns))
	copy(out, c.conns)
	return out
}

// nextToken returns a monotonically increasing client token, skipping
// the reserved topology-notification value.
func (c *Client) nextToken() int64 {
	for {
		t := c.tokenCounter.Add(1)
		if t != protocol.TopologyNotificationToken {
			return t
		}
	}
}

// CreateConnection establishes a TCP session to host:port, authenticates,
// and registers it for routing, per spec.md §4.6. If the attempt fails
// and keepConnecting is true, the endpoint is enqueued into the 10s
// reconnect sweep instead of returning an error.
func (c *Client) CreateConnection(ctx context.Context, host string, port int, keepConnecting bool) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	if err := c.dialAndRegister(ctx, addr); err != nil {
		if keepConnecting {
			c.enqueueReconnect(addr)
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) dialAndRegister(ctx context.Context, addr string) error {
	var tlsConfig *tls.Config
	if c.cfg.UseSSL {
		tlsConfig = c.cfg.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
	}

	cn, err := conn.Dial(ctx, addr, conn.Options{
		TLSConfig:              tlsConfig,
		BackpressureThreshold:  c.cfg.BackpressureThreshold,
		Logger:                 c.log,
		OnBackpressureChange:   c.onBackpressureChange,
		OnConnectionLost:       c.onConnectionLost,
		OnTopologyNotification: c.onTopologyNotification,
	})
	if err != nil {
		return err
	}

	passwordHash, err := protocol.HashPassword(c.cfg.HashScheme, c.cfg.Password)
	if err != nil {
		_ = cn.Close()
		return err
	}
	resp, err := cn.Authenticate(ctx, protocol.AuthRequest{
		Username:     c.cfg.Username,
		HashScheme:   c.cfg.HashScheme,
		PasswordHash: passwordHash,
	})
	if err != nil {
		_ = cn.Close()
		return err
	}

	if err := c.checkClusterIdentity(resp.ClusterStartTime); err != nil {
		_ = cn.Close()
		return err
	}

	c.registerConn(cn)
	go func() { _ = cn.Run(c.ctx) }()
	if c.cfg.Listener != nil {
		c.cfg.Listener.ConnectionActive(addr)
	}
	_ = c.router.Refresh(c.ctx)
	return nil
}

func (c *Client) checkClusterIdentity(clusterStartTime int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.haveCluster {
		c.clusterKey = clusterStartTime
		c.haveCluster = true
		return nil
	}
	if c.clusterKey != clusterStartTime {
		return errs.New(errs.ClusterInstanceMismatch, "connected host reported a different cluster identity")
	}
	return nil
}

func (c *Client) registerConn(cn *conn.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns = append(c.conns, cn)
	c.connsByHost[cn.HostID()] = cn
}

func (c *Client) unregisterConn(cn *conn.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.conns {
		if existing == cn {
			c.conns = append(c.conns[:i], c.conns[i+1:]...)
			break
		}
	}
	if c.connsByHost[cn.HostID()] == cn {
		delete(c.connsByHost, cn.HostID())
	}
}

func (c *Client) onBackpressureChange(cn *conn.Conn, active bool) {
	if c.cfg.Listener != nil {
		if c.cfg.Listener.Backpressure(active) {
			c.Interrupt()
		}
	}
}

func (c *Client) onConnectionLost(cn *conn.Conn) {
	c.unregisterConn(cn)
	remaining := len(c.snapshotConns())
	if c.cfg.Listener != nil {
		if c.cfg.Listener.ConnectionLost(cn.RemoteAddr(), remaining) {
			c.Interrupt()
		}
	}
	if c.cfg.AutoReconnect {
		c.enqueueReconnect(cn.RemoteAddr())
	}
	c.router.MarkUpdating()
}

func (c *Client) onTopologyNotification(resp *protocol.InvocationResponse) {
	c.router.MarkUpdating()
	_ = c.router.Refresh(c.ctx)
}

// invokeSystemProcedure issues a synchronous system-procedure call used
// by the router's Refresh. It bypasses Invoke's outstanding-request
// accounting since topology refreshes are not user invocations.
func (c *Client) invokeSystemProcedure(ctx context.Context, procedureName string, params ...any) (*value.Table, error) {
	// A trailing "partitions"/"hashinator" marker on @Statistics picks
	// which of its result tables to return; it is not sent to the server.
	tableIdx := 0
	if procedureName == "@Statistics" && len(params) > 0 {
		switch params[len(params)-1] {
		case "partitions":
			params = params[:len(params)-1]
		case "hashinator":
			params = params[:len(params)-1]
			tableIdx = 1
		}
	}
	types := make([]value.Type, len(params))
	for i, p := range params {
		switch p.(type) {
		case string:
			types[i] = value.String
		case int32:
			types[i] = value.Integer
		default:
			types[i] = value.String
		}
	}
	proc := value.NewProcedure(procedureName, types...)
	if err := proc.SetParameters(params...); err != nil {
		return nil, err
	}

	target, err := c.roundRobinAny()
	if err != nil {
		return nil, err
	}

	token := c.nextToken()
	frame, err := protocol.EncodeInvocationRequest(proc, token)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *protocol.InvocationResponse, 1)
	errCh := make(chan error, 1)
	target.Enroll(&conn.PendingRequest{
		ClientToken: token,
		SubmitTime:  time.Now(),
		Callback: func(resp *protocol.InvocationResponse, err error) {
			if err != nil {
				errCh <- err
				return
			}
			respCh <- resp
		},
	})
	if err := target.Send(frame); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		if len(resp.Results) <= tableIdx {
			return nil, errs.New(errs.ProtocolViolation, fmt.Sprintf("system procedure returned %d tables, want table %d", len(resp.Results), tableIdx))
		}
		return resp.Results[tableIdx], nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) roundRobinAny() (*conn.Conn, error) {
	conns := c.snapshotConns()
	if len(conns) == 0 {
		return nil, errs.New(errs.NoConnections, "no connections available")
	}
	return conns[0], nil
}

// Invoke is the async entry point: encode the request, consult the
// router, enroll the pending request, and hand the frame to the
// chosen connection's write queue. If outstanding invocations already
// meet MaxOutstandingRequests, the request is either abandoned with
// StatusTooBusy (EnableAbandon) or still enqueued (backpressure is
// cooperative, per spec.md §5).
func (c *Client) Invoke(proc *value.Procedure, callback func(*protocol.InvocationResponse, error)) error {
	if callback == nil {
		return errs.New(errs.NullPointer, "invoke: callback must not be nil")
	}

	if c.stats.Outstanding() >= int64(c.cfg.maxOutstanding()) {
		if c.cfg.EnableAbandon {
			callback(&protocol.InvocationResponse{StatusCode: protocol.StatusTooBusy}, nil)
			return nil
		}
	}

	meta, _ := c.router.ProcedureMeta(proc.Name)
	target, err := c.router.Route(proc.Name, procParamValues(proc))
	if err != nil {
		return err
	}

	token := c.nextToken()
	frame, err := protocol.EncodeInvocationRequest(proc, token)
	if err != nil {
		return err
	}

	pending := &conn.PendingRequest{
		ClientToken: token,
		SubmitTime:  time.Now(),
		ReadOnly:    meta.ReadOnly,
	}
	if c.cfg.EnableQueryTimeout && meta.ReadOnly {
		pending.Deadline = time.Now().Add(c.cfg.QueryTimeout)
	}
	hostID := target.HostID()
	pending.Callback = func(resp *protocol.InvocationResponse, err error) {
		c.stats.decOutstanding()
		if resp != nil {
			c.stats.recordRoundTrip(hostID, time.Since(pending.SubmitTime))
		}
		defer c.recoverIntoListener(callback, resp)
		callback(resp, err)
	}

	c.stats.incOutstanding()
	target.Enroll(pending)
	if err := target.Send(frame); err != nil {
		c.stats.decOutstanding()
		return err
	}
	c.stats.addBytesSent(len(frame))
	return nil
}

func (c *Client) recoverIntoListener(callback func(*protocol.InvocationResponse, error), resp *protocol.InvocationResponse) {
	if r := recover(); r != nil {
		err := fmt.Errorf("client: callback panicked: %v", r)
		if c.cfg.Listener != nil {
			c.cfg.Listener.UncaughtException(err, NewUserCallback(callback), resp)
		} else {
			c.log.WithError(err).Error("client: uncaught callback panic")
		}
	}
}

// InvokeSync issues one invocation and blocks until its response
// arrives, per spec.md §4.6. It does not pump any shared event loop:
// the owning connection's own goroutine dispatches the callback that
// unblocks this call.
func (c *Client) InvokeSync(ctx context.Context, proc *value.Procedure) (*protocol.InvocationResponse, error) {
	done := make(chan struct{}, 1)
	var resp *protocol.InvocationResponse
	var callErr error

	err := c.Invoke(proc, func(r *protocol.InvocationResponse, e error) {
		resp, callErr = r, e
		done <- struct{}{}
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-done:
		return resp, callErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Drain blocks until every outstanding invocation has completed or ctx
// is done, returning whether it fully drained.
func (c *Client) Drain(ctx context.Context) bool {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if c.stats.Outstanding() == 0 {
			return true
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false
		}
	}
}

// Close drains outstanding work, then tears down every connection, per
// ClientImpl.cpp's drain-then-teardown sequence (SPEC_FULL.md §3).
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Drain(drainCtx)

		c.mu.Lock()
		conns := c.conns
		c.conns = nil
		c.mu.Unlock()

		for _, cn := range conns {
			if cerr := cn.Close(); cerr != nil {
				err = cerr
			}
		}
		c.cancel()
		close(c.closed)
	})
	return err
}

// Run blocks until ctx is canceled or Interrupt is called.
func (c *Client) Run(ctx context.Context) {
	c.interruptMu.Lock()
	ch := c.interruptCh
	c.interruptMu.Unlock()
	select {
	case <-ch:
	case <-ctx.Done():
	case <-c.closed:
	}
}

// RunOnce returns immediately if Wakeup has already been signaled,
// otherwise it returns without blocking.
func (c *Client) RunOnce() {
	select {
	case <-c.wakeupCh:
	default:
	}
}

// RunFor blocks for at most maxTime, or until Interrupt is called.
func (c *Client) RunFor(maxTime time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), maxTime)
	defer cancel()
	c.Run(ctx)
}

// Interrupt unblocks any in-progress Run/RunFor call.
func (c *Client) Interrupt() {
	c.interruptMu.Lock()
	defer c.interruptMu.Unlock()
	select {
	case <-c.interruptCh:
	default:
		close(c.interruptCh)
	}
	c.interruptCh = make(chan struct{})
}

// Wakeup signals a pending RunOnce without fully interrupting Run.
func (c *Client) Wakeup() {
	select {
	case c.wakeupCh <- struct{}{}:
	default:
	}
}

// Stats returns the client's instrumentation snapshot accessor.
func (c *Client) Stats() *Stats { return c.stats }

func procParamValues(proc *value.Procedure) []any {
	out := make([]any, proc.Params.Len())
	for i := range out {
		v, _, err := proc.Params.ValueAt(i)
		if err != nil {
			continue
		}
		out[i] = v
	}
	return out
}
