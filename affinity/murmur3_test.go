package affinity_test

import (
	"testing"

	"github.com/mickamy/voltgo/affinity"
)

func TestHash32EmptyInputWithZeroSeedIsZero(t *testing.T) {
	t.Parallel()

	got := affinity.Hash32(nil, 0)
	if got != 0 {
		t.Fatalf("Hash32(nil, 0) = %d, want 0", got)
	}
}

func TestHash32IsDeterministic(t *testing.T) {
	t.Parallel()

	data := []byte("partition-key-42")
	a := affinity.Hash32(data, 0)
	b := affinity.Hash32(data, 0)
	if a != b {
		t.Fatalf("Hash32 not deterministic: %d != %d", a, b)
	}
}

func TestHash32SeedChangesOutput(t *testing.T) {
	t.Parallel()

	data := []byte("partition-key-42")
	a := affinity.Hash32(data, 0)
	b := affinity.Hash32(data, 1)
	if a == b {
		t.Fatalf("Hash32 produced the same fingerprint for different seeds: %d", a)
	}
}

func TestHash32DifferentInputsDiffer(t *testing.T) {
	t.Parallel()

	a := affinity.Hash32([]byte("key-one"), 0)
	b := affinity.Hash32([]byte("key-two"), 0)
	if a == b {
		t.Fatalf("Hash32 collided on two distinct keys: %d", a)
	}
}

func TestHash32HandlesEveryTailLength(t *testing.T) {
	t.Parallel()

	// Exercise every branch of the tail switch (lengths 1..15) plus a
	// couple of full 16-byte blocks; the test only asserts it doesn't
	// panic and stays deterministic across lengths.
	for n := 0; n < 40; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i*7 + 1)
		}
		a := affinity.Hash32(data, 0)
		b := affinity.Hash32(data, 0)
		if a != b {
			t.Fatalf("length %d: not deterministic", n)
		}
	}
}
