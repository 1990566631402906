package wire

import "sync/atomic"

// SharedBuffer is the "shareable (reference-counted) buffer" flavor: a
// backing array handed out as (offset, length) views rather than copies.
// value.Table and value.Row do not use it; they slice the response bytes
// directly. Go's garbage collector already keeps
// the backing array alive as long as any slice into it is reachable, so
// the refcount here is bookkeeping for callers that want an explicit
// "I am still using region X" signal (e.g. to bound how long a very
// large response frame is retained) rather than a correctness
// requirement.
type SharedBuffer struct {
	data []byte
	refs atomic.Int32
}

// NewSharedBuffer wraps data with an initial reference count of 1.
func NewSharedBuffer(data []byte) *SharedBuffer {
	sb := &SharedBuffer{data: data}
	sb.refs.Store(1)
	return sb
}

// Retain increments the reference count and returns sb for chaining.
func (sb *SharedBuffer) Retain() *SharedBuffer {
	sb.refs.Add(1)
	return sb
}

// Release decrements the reference count. It reports the count after
// the release; callers that track region lifetime explicitly can treat
// 0 as "no outstanding views".
func (sb *SharedBuffer) Release() int32 {
	return sb.refs.Add(-1)
}

// Len returns the length of the backing region.
func (sb *SharedBuffer) Len() int { return len(sb.data) }

// View returns a non-owning Buffer cursor over [offset, offset+length)
// of the shared region, without copying.
func (sb *SharedBuffer) View(offset, length int) (*Buffer, error) {
	if offset < 0 || length < 0 || offset+length > len(sb.data) {
		return nil, newErr(KindIndexOutOfBounds, "SharedBuffer.View", length, len(sb.data)-offset)
	}
	return NewView(sb.data[offset : offset+length]), nil
}

// Bytes returns the full backing slice. Callers must not mutate it.
func (sb *SharedBuffer) Bytes() []byte { return sb.data }
