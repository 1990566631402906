package affinity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/mickamy/voltgo/conn"
	"github.com/mickamy/voltgo/errs"
	"github.com/mickamy/voltgo/protocol"
	"github.com/mickamy/voltgo/value"
	"github.com/mickamy/voltgo/wire"
)

func wireView(b []byte) *wire.Buffer { return wire.NewView(b) }

// SystemProcedureInvoker issues a synchronous system-procedure call and
// returns its first result table. client.Client supplies the real
// implementation; Router only depends on this narrow interface so it
// never imports the connection-pool façade.
type SystemProcedureInvoker func(ctx context.Context, procedureName string, params ...any) (*value.Table, error)

// ConnectionLister returns the current set of connections a route may
// target. Router treats only StateAuthenticated members as eligible.
type ConnectionLister func() []*conn.Conn

// Router maintains the partition map and procedure metadata (C5) and
// picks, for a given invocation, the connection that should execute it.
type Router struct {
	mu              sync.RWMutex
	procMeta        map[string]ProcedureMeta
	partitionToHost map[int32]int32
	hashinator      *ElasticHashinator
	updating        bool

	rrCounter uint64
	sf        singleflight.Group

	conns  ConnectionLister
	invoke SystemProcedureInvoker
}

// NewRouter builds a Router that starts in the "updating" state (routes
// everything round-robin) until the first successful Refresh.
func NewRouter(conns ConnectionLister, invoke SystemProcedureInvoker) *Router {
	return &Router{
		procMeta:        make(map[string]ProcedureMeta),
		partitionToHost: make(map[int32]int32),
		updating:        true,
		conns:           conns,
		invoke:          invoke,
	}
}

// Refresh re-fetches @SystemCatalog("PROCEDURES") and
// @Statistics("TOPO", 0), deduplicating concurrent callers with
// singleflight so a burst of topology notifications triggers at most
// one pair of round trips.
func (r *Router) Refresh(ctx context.Context) error {
	_, err, _ := r.sf.Do("refresh", func() (any, error) {
		return nil, r.refreshLocked(ctx)
	})
	return err
}

func (r *Router) refreshLocked(ctx context.Context) error {
	procTable, err := r.invoke(ctx, "@SystemCatalog", "PROCEDURES")
	if err != nil {
		return fmt.Errorf("affinity: refresh procedures: %w", err)
	}
	procMeta, err := parseProcedureTable(procTable)
	if err != nil {
		return err
	}

	topoTables, err := r.invokeTopo(ctx)
	if err != nil {
		return fmt.Errorf("affinity: refresh topology: %w", err)
	}
	partitionToHost, hashinator, err := parseTopoTables(topoTables)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.procMeta = procMeta
	r.partitionToHost = partitionToHost
	r.hashinator = hashinator
	r.updating = false
	r.mu.Unlock()
	return nil
}

// invokeTopo calls @Statistics("TOPO", 0); it is split out only because
// @Statistics returns more than one table and SystemProcedureInvoker
// returns a single table, so this asks the invoker for both by name.
// The trailing "partitions"/"hashinator" argument is a Router/Client
// convention that the invoker consumes; it is not sent to the server.
func (r *Router) invokeTopo(ctx context.Context) ([]*value.Table, error) {
	partitions, err := r.invoke(ctx, "@Statistics", "TOPO", int32(0), "partitions")
	if err != nil {
		return nil, err
	}
	hashConfig, err := r.invoke(ctx, "@Statistics", "TOPO", int32(0), "hashinator")
	if err != nil {
		return nil, err
	}
	return []*value.Table{partitions, hashConfig}, nil
}

func parseProcedureTable(t *value.Table) (map[string]ProcedureMeta, error) {
	out := make(map[string]ProcedureMeta)
	it := t.Iterator()
	for it.HasNext() {
		row, err := it.Next()
		if err != nil {
			return nil, err
		}
		name, err := row.GetStringByName("PROCEDURE_NAME")
		if err != nil {
			return nil, err
		}
		jsonConfig, err := row.GetStringByName("JSON_CONFIG")
		if err != nil {
			return nil, err
		}
		meta, err := ParseProcedureMeta(name, jsonConfig)
		if err != nil {
			return nil, err
		}
		out[name] = meta
	}
	return out, nil
}

func parseTopoTables(tables []*value.Table) (map[int32]int32, *ElasticHashinator, error) {
	if len(tables) != 2 {
		return nil, nil, errs.New(errs.ProtocolViolation, "expected two @Statistics(\"TOPO\") tables")
	}
	partitionToHost := make(map[int32]int32)
	it := tables[0].Iterator()
	for it.HasNext() {
		row, err := it.Next()
		if err != nil {
			return nil, nil, err
		}
		partition, err := row.GetInt32ByName("Partition")
		if err != nil {
			return nil, nil, err
		}
		host, err := row.GetInt32ByName("Leader")
		if err != nil {
			return nil, nil, err
		}
		partitionToHost[partition] = host
	}

	hashRow, err := firstRow(tables[1])
	if err != nil {
		return nil, nil, err
	}
	payload, err := hashRow.GetVarbinaryByName("HASHCONFIG")
	if err != nil {
		return nil, nil, err
	}
	hashinator, err := DecodeHashinator(wireView(payload))
	if err != nil {
		return nil, nil, err
	}
	return partitionToHost, hashinator, nil
}

func firstRow(t *value.Table) (*value.Row, error) {
	it := t.Iterator()
	if !it.HasNext() {
		return nil, errs.New(errs.ProtocolViolation, "expected at least one row")
	}
	return it.Next()
}

// Route decides which connection should execute an invocation of
// procedureName with the given positional parameter values, per
// spec.md §4.5's decision tree.
func (r *Router) Route(procedureName string, params []any) (*conn.Conn, error) {
	r.mu.RLock()
	updating := r.updating
	meta, known := r.procMeta[procedureName]
	partitionToHost := r.partitionToHost
	hashinator := r.hashinator
	r.mu.RUnlock()

	if updating || !known {
		return r.roundRobin()
	}
	if meta.IsMultipart {
		if c, ok := r.connForPartition(protocol.MultipartitionPartitionID, partitionToHost); ok {
			return c, nil
		}
		return r.roundRobin()
	}
	if !meta.HasPartitionParameter() || meta.PartitionParameterIndex >= len(params) {
		return r.roundRobin()
	}

	keyBytes, err := CanonicalEncode(meta.PartitionParameterType, params[meta.PartitionParameterIndex])
	if err != nil {
		return r.roundRobin()
	}
	if hashinator == nil {
		return r.roundRobin()
	}
	partition := hashinator.Partition(keyBytes)
	if c, ok := r.connForPartition(partition, partitionToHost); ok {
		return c, nil
	}
	return r.roundRobin()
}

func (r *Router) connForPartition(partition int32, partitionToHost map[int32]int32) (*conn.Conn, bool) {
	hostID, ok := partitionToHost[partition]
	if !ok {
		return nil, false
	}
	for _, c := range r.authenticatedConns() {
		if c.HostID() == hostID {
			return c, true
		}
	}
	return nil, false
}

// roundRobin picks the next authenticated connection by an atomic
// counter modulo the connection count, skipping backpressured
// connections when any other is writable, per spec.md §4.5.
func (r *Router) roundRobin() (*conn.Conn, error) {
	conns := r.authenticatedConns()
	if len(conns) == 0 {
		return nil, errs.New(errs.NoConnections, "no authenticated connections available")
	}
	writable := make([]*conn.Conn, 0, len(conns))
	for _, c := range conns {
		if !c.Backpressured() {
			writable = append(writable, c)
		}
	}
	pool := conns
	if len(writable) > 0 {
		pool = writable
	}
	n := atomic.AddUint64(&r.rrCounter, 1)
	return pool[int(n-1)%len(pool)], nil
}

func (r *Router) authenticatedConns() []*conn.Conn {
	all := r.conns()
	out := make([]*conn.Conn, 0, len(all))
	for _, c := range all {
		if c.State() == conn.StateAuthenticated {
			out = append(out, c)
		}
	}
	return out
}

// MarkUpdating forces the router back into round-robin-only mode, used
// when a topology notification arrives and the caller wants routing
// degraded until the next successful Refresh completes.
func (r *Router) MarkUpdating() {
	r.mu.Lock()
	r.updating = true
	r.mu.Unlock()
}

// ProcedureMeta returns the last-refreshed metadata for procedureName,
// used by the client façade to decide whether a request is eligible for
// the local read-only deadline path (spec.md §5).
func (r *Router) ProcedureMeta(procedureName string) (ProcedureMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.procMeta[procedureName]
	return m, ok
}
