package protocol_test

import (
	"testing"

	"github.com/mickamy/voltgo/protocol"
	"github.com/mickamy/voltgo/wire"
)

func TestEncodeAuthRequestFrameTotality(t *testing.T) {
	t.Parallel()

	hash, err := protocol.HashPassword(protocol.HashSHA1, "world")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	req := protocol.AuthRequest{
		Service:      "database",
		Username:     "hello",
		HashScheme:   protocol.HashSHA1,
		PasswordHash: hash,
	}

	frame, err := protocol.EncodeAuthRequest(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	b := wire.NewView(frame)
	n, err := b.ReadInt32()
	if err != nil {
		t.Fatalf("read length: %v", err)
	}
	if int(n) != len(frame)-4 {
		t.Fatalf("length prefix = %d, want %d", n, len(frame)-4)
	}
}

func TestEncodeAuthRequestRejectsWrongHashLength(t *testing.T) {
	t.Parallel()

	req := protocol.AuthRequest{
		Username:     "hello",
		HashScheme:   protocol.HashSHA1,
		PasswordHash: []byte{1, 2, 3},
	}
	if _, err := protocol.EncodeAuthRequest(req); err == nil {
		t.Fatal("expected error for short password hash")
	}
}

// TestDecodeAuthResponseFixture matches the captured fixture from
// scenario 1: host_id=0, cluster_start_time=0x4B1DFA11FEEDFACE,
// leader_address=0x7F000001, build_string="volt_6.1_test_build_string".
func TestDecodeAuthResponseFixture(t *testing.T) {
	t.Parallel()

	buf := wire.NewOwned(0)
	mustW(t, buf.WriteInt8(0))                           // version
	mustW(t, buf.WriteInt8(0))                           // result code: ok
	mustW(t, buf.WriteInt32(0))                           // host id
	mustW(t, buf.WriteInt64(0))                           // connection id
	mustW(t, buf.WriteInt64(0x4B1DFA11FEEDFACE))          // cluster start time
	mustW(t, buf.WriteInt32(int32(uint32(0x7F000001))))   // leader address
	mustW(t, buf.WriteString("volt_6.1_test_build_string", false))
	buf.Flip()

	resp, err := protocol.DecodeAuthResponse(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success() {
		t.Fatalf("expected success, result code = %d", resp.ResultCode)
	}
	if resp.HostID != 0 {
		t.Fatalf("host id = %d, want 0", resp.HostID)
	}
	if resp.ClusterStartTime != 0x4B1DFA11FEEDFACE {
		t.Fatalf("cluster start time = %x, want 4b1dfa11feedface", resp.ClusterStartTime)
	}
	if uint32(resp.LeaderAddress) != 0x7F000001 {
		t.Fatalf("leader address = %x, want 7f000001", uint32(resp.LeaderAddress))
	}
	if resp.BuildString != "volt_6.1_test_build_string" {
		t.Fatalf("build string = %q", resp.BuildString)
	}
}

func mustW(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
}
