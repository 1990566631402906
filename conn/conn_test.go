package conn

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mickamy/voltgo/protocol"
	"github.com/mickamy/voltgo/wire"
)

func newTestConn(nc net.Conn) *Conn {
	log := logrus.New()
	log.SetOutput(testDiscard{})
	c := &Conn{
		log:         log,
		netConn:     nc,
		pending:     NewPendingTable(),
		writeCh:     make(chan []byte, 16),
		closed:      make(chan struct{}),
		bpThreshold: defaultBackpressureThreshold,
	}
	c.state.Store(int32(StateAuthenticated))
	return c
}

type testDiscard struct{}

func (testDiscard) Write(p []byte) (int, error) { return len(p), nil }

func buildInvocationResponseFrame(t *testing.T, token int64, status protocol.StatusCode) []byte {
	t.Helper()
	buf := wire.NewOwned(0)
	mustNoErr(t, buf.WriteInt32(0))
	mustNoErr(t, buf.WriteInt8(0))
	mustNoErr(t, buf.WriteInt64(token))
	mustNoErr(t, buf.WriteUint8(0))
	mustNoErr(t, buf.WriteInt8(int8(status)))
	mustNoErr(t, buf.WriteInt8(-128))
	mustNoErr(t, buf.WriteInt32(1))
	mustNoErr(t, buf.WriteInt16(0))
	mustNoErr(t, buf.PatchLengthPrefix())
	return buf.Bytes()
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConnReadLoopDispatchesCallbackExactlyOnce(t *testing.T) {
	t.Parallel()

	client, server := net.Pipe()
	c := newTestConn(client)

	var mu sync.Mutex
	calls := 0
	var gotStatus protocol.StatusCode
	done := make(chan struct{})
	c.Enroll(&PendingRequest{
		ClientToken: 7,
		Callback: func(resp *protocol.InvocationResponse, err error) {
			mu.Lock()
			calls++
			gotStatus = resp.StatusCode
			mu.Unlock()
			close(done)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	frame := buildInvocationResponseFrame(t, 7, protocol.StatusSuccess)
	go func() { _, _ = server.Write(frame) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if gotStatus != protocol.StatusSuccess {
		t.Fatalf("status = %v, want SUCCESS", gotStatus)
	}
	_ = server.Close()
	_ = c.Close()
}

func TestConnCloseFiresExactlyOneConnectionLostPerPending(t *testing.T) {
	t.Parallel()

	client, server := net.Pipe()
	defer server.Close()
	c := newTestConn(client)

	const n = 3
	var mu sync.Mutex
	fired := make(map[int64]int)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := int64(0); i < n; i++ {
		tok := i
		c.Enroll(&PendingRequest{
			ClientToken: tok,
			Callback: func(resp *protocol.InvocationResponse, err error) {
				mu.Lock()
				fired[tok]++
				mu.Unlock()
				wg.Done()
			},
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond) // let the read loop block on the pipe
	_ = c.Close()

	waitWithTimeout(t, &wg, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != n {
		t.Fatalf("fired for %d tokens, want %d", len(fired), n)
	}
	for tok, count := range fired {
		if count != 1 {
			t.Fatalf("token %d fired %d times, want 1", tok, count)
		}
	}
	if c.State() != StateClosed {
		t.Fatalf("state = %v, want CLOSED", c.State())
	}
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for callbacks")
	}
}
