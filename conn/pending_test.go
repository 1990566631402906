package conn_test

import (
	"testing"
	"time"

	"github.com/mickamy/voltgo/conn"
	"github.com/mickamy/voltgo/protocol"
)

func TestPendingTableAddRemove(t *testing.T) {
	t.Parallel()

	pt := conn.NewPendingTable()
	fired := 0
	pt.Add(&conn.PendingRequest{
		ClientToken: 42,
		Callback:    func(*protocol.InvocationResponse, error) { fired++ },
	})
	if pt.Len() != 1 {
		t.Fatalf("len = %d, want 1", pt.Len())
	}
	p, ok := pt.Remove(42)
	if !ok {
		t.Fatal("expected entry for token 42")
	}
	p.Callback(nil, nil)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if pt.Len() != 0 {
		t.Fatalf("len = %d, want 0", pt.Len())
	}
	if _, ok := pt.Remove(42); ok {
		t.Fatal("expected no entry after removal")
	}
}

func TestPendingTableDrainAllFiresEveryEntryExactlyOnce(t *testing.T) {
	t.Parallel()

	pt := conn.NewPendingTable()
	const n = 5
	fired := make([]int, n)
	for i := int64(0); i < n; i++ {
		idx := i
		pt.Add(&conn.PendingRequest{
			ClientToken: idx,
			Callback:    func(*protocol.InvocationResponse, error) { fired[idx]++ },
		})
	}

	drained := pt.DrainAll()
	if len(drained) != n {
		t.Fatalf("drained = %d, want %d", len(drained), n)
	}
	for _, p := range drained {
		p.Callback(&protocol.InvocationResponse{StatusCode: protocol.StatusConnectionLost}, nil)
	}
	for i, count := range fired {
		if count != 1 {
			t.Fatalf("entry %d fired %d times, want 1", i, count)
		}
	}
	if pt.Len() != 0 {
		t.Fatalf("table not empty after drain")
	}
	if second := pt.DrainAll(); len(second) != 0 {
		t.Fatalf("second drain returned %d entries, want 0", len(second))
	}
}

func TestPendingTableExpireDeadlinesOnlyReadOnly(t *testing.T) {
	t.Parallel()

	pt := conn.NewPendingTable()
	past := time.Now().Add(-time.Second)
	pt.Add(&conn.PendingRequest{ClientToken: 1, ReadOnly: true, Deadline: past, Callback: func(*protocol.InvocationResponse, error) {}})
	pt.Add(&conn.PendingRequest{ClientToken: 2, ReadOnly: false, Deadline: past, Callback: func(*protocol.InvocationResponse, error) {}})
	pt.Add(&conn.PendingRequest{ClientToken: 3, ReadOnly: true, Callback: func(*protocol.InvocationResponse, error) {}})

	expired := pt.ExpireDeadlines(time.Now())
	if len(expired) != 1 || expired[0].ClientToken != 1 {
		t.Fatalf("got %+v, want only token 1", expired)
	}
	if pt.Len() != 2 {
		t.Fatalf("len = %d, want 2", pt.Len())
	}
}
