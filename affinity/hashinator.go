package affinity

import (
	"fmt"
	"sort"

	"github.com/mickamy/voltgo/errs"
	"github.com/mickamy/voltgo/wire"
)

// Hashinator tag bytes on the wire, matching original_source's
// HASHINATOR_LEGACY / HASHINATOR_ELASTIC distinction in Hashinator.cpp,
// kept explicit here only so a rejected LEGACY payload can name the
// byte it saw.
const (
	hashinatorLegacy  int8 = 0
	hashinatorElastic int8 = 1
)

// tokenEntry is one (token, partition) pair of the elastic ring.
type tokenEntry struct {
	token     int32
	partition int32
}

// ElasticHashinator is the consistent-hash ring spec.md §4.5 describes:
// a sorted array of (token, partition_id) pairs. The owning partition
// for a fingerprint is the entry with the greatest token <= fingerprint,
// wrapping around to the last entry when the fingerprint is smaller
// than every token.
type ElasticHashinator struct {
	entries []tokenEntry
}

// DecodeHashinator reads the binary hashinator payload returned as part
// of @Statistics("TOPO", 0). It returns ElasticModeMismatch for a
// LEGACY payload, per spec.md §9's Open Question resolution: only
// ELASTIC is supported.
func DecodeHashinator(b *wire.Buffer) (*ElasticHashinator, error) {
	tag, err := b.ReadInt8()
	if err != nil {
		return nil, fmt.Errorf("affinity: read hashinator tag: %w", err)
	}
	if tag != hashinatorElastic {
		return nil, errs.New(errs.ElasticModeMismatch, fmt.Sprintf("server reported hashinator tag %d, only ELASTIC (%d) is supported", tag, hashinatorElastic))
	}
	count, err := b.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("affinity: read hashinator token count: %w", err)
	}
	entries := make([]tokenEntry, 0, count)
	for i := int32(0); i < count; i++ {
		token, err := b.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("affinity: read hashinator token %d: %w", i, err)
		}
		partition, err := b.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("affinity: read hashinator partition %d: %w", i, err)
		}
		entries = append(entries, tokenEntry{token: token, partition: partition})
	}
	return NewElasticHashinator(entries)
}

// NewElasticHashinator builds a ring from already-decoded entries,
// sorting them by token.
func NewElasticHashinator(entries []tokenEntry) (*ElasticHashinator, error) {
	if len(entries) == 0 {
		return nil, errs.New(errs.ElasticModeMismatch, "elastic hashinator has no token entries")
	}
	sorted := make([]tokenEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].token < sorted[j].token })
	return &ElasticHashinator{entries: sorted}, nil
}

// NewElasticHashinatorFromPairs is the public constructor used by
// callers (and tests) that already hold plain (token, partition) pairs.
func NewElasticHashinatorFromPairs(pairs [][2]int32) (*ElasticHashinator, error) {
	entries := make([]tokenEntry, len(pairs))
	for i, p := range pairs {
		entries[i] = tokenEntry{token: p[0], partition: p[1]}
	}
	return NewElasticHashinator(entries)
}

// Partition returns the partition owning keyBytes: MurmurHash3 the
// bytes to a signed 32-bit fingerprint, then find the entry with the
// greatest token <= fingerprint, wrapping to the last entry.
func (h *ElasticHashinator) Partition(keyBytes []byte) int32 {
	fp := Hash32(keyBytes, 0)
	return h.PartitionForFingerprint(fp)
}

// PartitionForFingerprint applies the ring lookup directly to an
// already-computed fingerprint, used by tests pinned to known
// MurmurHash3 outputs.
func (h *ElasticHashinator) PartitionForFingerprint(fp int32) int32 {
	n := len(h.entries)
	i := sort.Search(n, func(i int) bool { return h.entries[i].token > fp })
	if i == 0 {
		return h.entries[n-1].partition
	}
	return h.entries[i-1].partition
}
