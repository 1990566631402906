package wire

import (
	"encoding/binary"
	"math"
)

// flavor distinguishes the three buffer kinds: a non-owning view over
// someone else's bytes, an owning exclusive buffer built up by a single
// writer, and a shareable buffer whose backing array may be handed out
// as read-only slices to many table/row views (see SharedBuffer in
// shared.go).
type flavor int

const (
	flavorView flavor = iota
	flavorOwned
	flavorShared
)

// initialOutboundCapacity is the starting size of an owned write buffer,
// per spec.md §6 ("outbound initial buffer 8 KiB").
const initialOutboundCapacity = 8 * 1024

// Buffer is a cursor over a contiguous mutable byte region, supporting
// big-endian typed reads/writes at the cursor or at an absolute index.
// Growth (Owned/Shared only) always reallocates a new backing array and
// copies bytes [0, position); a View obtained before growth keeps
// pointing at the old array, which is exactly the guarantee callers
// holding a shared region need.
type Buffer struct {
	kind     flavor
	data     []byte
	pos      int
	limit    int
	growable bool
}

// NewView wraps an existing byte slice as a non-owning, non-growable
// cursor. position starts at 0, limit at len(b).
func NewView(b []byte) *Buffer {
	return &Buffer{kind: flavorView, data: b, pos: 0, limit: len(b), growable: false}
}

// NewOwned creates an owning, growable write buffer with the given
// initial capacity (0 means initialOutboundCapacity).
func NewOwned(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = initialOutboundCapacity
	}
	return &Buffer{kind: flavorOwned, data: make([]byte, capacity), pos: 0, limit: capacity, growable: true}
}

// Position returns the current cursor offset.
func (b *Buffer) Position() int { return b.pos }

// Limit returns the current read/write boundary.
func (b *Buffer) Limit() int { return b.limit }

// Capacity returns the size of the backing array.
func (b *Buffer) Capacity() int { return len(b.data) }

// Remaining returns limit - position.
func (b *Buffer) Remaining() int { return b.limit - b.pos }

// Bytes returns the slice [0, position): the bytes written so far.
// Callers must not mutate the returned slice after handing it to a
// SharedBuffer.
func (b *Buffer) Bytes() []byte { return b.data[:b.pos] }

// Raw returns the slice [0, limit), independent of the current
// position. Useful for views obtained via Slice, whose whole extent is
// meaningful regardless of how much of it has been consumed.
func (b *Buffer) Raw() []byte { return b.data[:b.limit] }

// SetPosition repositions the cursor, bounds-checked against [0, limit].
func (b *Buffer) SetPosition(pos int) error {
	if pos < 0 || pos > b.limit {
		return newErr(KindIndexOutOfBounds, "SetPosition", 0, pos)
	}
	b.pos = pos
	return nil
}

// Flip sets limit <- position, position <- 0, switching a just-filled
// write buffer into read mode.
func (b *Buffer) Flip() {
	b.limit = b.pos
	b.pos = 0
}

func (b *Buffer) ensureReadable(n int) error {
	if n < 0 || b.pos+n > b.limit {
		return newErr(KindUnderflow, "read", n, b.Remaining())
	}
	return nil
}

func (b *Buffer) ensureWritable(n int) error {
	if b.pos+n <= len(b.data) {
		return nil
	}
	if !b.growable {
		return newErr(KindNonExpandableBuffer, "write", n, len(b.data)-b.pos)
	}
	if err := b.grow(b.pos + n); err != nil {
		return err
	}
	return nil
}

// grow doubles capacity until it can hold need bytes, preserving
// [0, position). Non-growable views fail with NonExpandableBuffer.
func (b *Buffer) grow(need int) error {
	if !b.growable {
		return newErr(KindNonExpandableBuffer, "grow", need, len(b.data))
	}
	newCap := len(b.data)
	if newCap == 0 {
		newCap = initialOutboundCapacity
	}
	for newCap < need {
		newCap *= 2
	}
	fresh := make([]byte, newCap)
	copy(fresh, b.data[:b.pos])
	b.data = fresh
	if b.limit < newCap {
		b.limit = newCap
	}
	return nil
}

// --- sequential reads ---

func (b *Buffer) ReadInt8() (int8, error) {
	if err := b.ensureReadable(1); err != nil {
		return 0, err
	}
	v := int8(b.data[b.pos])
	b.pos++
	return v, nil
}

func (b *Buffer) ReadUint8() (uint8, error) {
	if err := b.ensureReadable(1); err != nil {
		return 0, err
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

func (b *Buffer) ReadInt16() (int16, error) {
	if err := b.ensureReadable(2); err != nil {
		return 0, err
	}
	v := int16(binary.BigEndian.Uint16(b.data[b.pos:]))
	b.pos += 2
	return v, nil
}

func (b *Buffer) ReadInt32() (int32, error) {
	if err := b.ensureReadable(4); err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(b.data[b.pos:]))
	b.pos += 4
	return v, nil
}

func (b *Buffer) ReadInt64() (int64, error) {
	if err := b.ensureReadable(8); err != nil {
		return 0, err
	}
	v := int64(binary.BigEndian.Uint64(b.data[b.pos:]))
	b.pos += 8
	return v, nil
}

func (b *Buffer) ReadFloat64() (float64, error) {
	bits, err := b.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (b *Buffer) ReadUint64() (uint64, error) {
	if err := b.ensureReadable(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(b.data[b.pos:])
	b.pos += 8
	return v, nil
}

// ReadBytesRaw reads n raw bytes without any length prefix.
func (b *Buffer) ReadBytesRaw(n int) ([]byte, error) {
	if err := b.ensureReadable(n); err != nil {
		return nil, err
	}
	v := b.data[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

// ReadString reads an int32-length-prefixed UTF-8 string. A length of -1
// means SQL NULL: ("", true, nil); callers check isNull to distinguish
// NULL from an empty string.
func (b *Buffer) ReadString() (s string, isNull bool, err error) {
	start := b.pos
	n, err := b.ReadInt32()
	if err != nil {
		return "", false, err
	}
	if n == -1 {
		return "", true, nil
	}
	if n < 0 {
		b.pos = start
		return "", false, newErr(KindIndexOutOfBounds, "ReadString", 0, int(n))
	}
	raw, err := b.ReadBytesRaw(int(n))
	if err != nil {
		b.pos = start
		return "", false, err
	}
	return string(raw), false, nil
}

// ReadVarbinary reads an int32-length-prefixed byte array; -1 means NULL.
func (b *Buffer) ReadVarbinary() (v []byte, isNull bool, err error) {
	start := b.pos
	n, err := b.ReadInt32()
	if err != nil {
		return nil, false, err
	}
	if n == -1 {
		return nil, true, nil
	}
	if n < 0 {
		b.pos = start
		return nil, false, newErr(KindIndexOutOfBounds, "ReadVarbinary", 0, int(n))
	}
	raw, err := b.ReadBytesRaw(int(n))
	if err != nil {
		b.pos = start
		return nil, false, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, false, nil
}

// Slice carves off the next n bytes as an independent, non-growable view
// sharing the same backing array, and advances this buffer's position
// past them.
func (b *Buffer) Slice(n int) (*Buffer, error) {
	if err := b.ensureReadable(n); err != nil {
		return nil, err
	}
	v := NewView(b.data[b.pos : b.pos+n])
	b.pos += n
	return v, nil
}

// --- sequential writes ---

func (b *Buffer) WriteInt8(v int8) error {
	if err := b.ensureWritable(1); err != nil {
		return err
	}
	b.data[b.pos] = byte(v)
	b.pos++
	return nil
}

func (b *Buffer) WriteUint8(v uint8) error {
	if err := b.ensureWritable(1); err != nil {
		return err
	}
	b.data[b.pos] = v
	b.pos++
	return nil
}

func (b *Buffer) WriteInt16(v int16) error {
	if err := b.ensureWritable(2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b.data[b.pos:], uint16(v))
	b.pos += 2
	return nil
}

func (b *Buffer) WriteInt32(v int32) error {
	if err := b.ensureWritable(4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b.data[b.pos:], uint32(v))
	b.pos += 4
	return nil
}

func (b *Buffer) WriteInt64(v int64) error {
	if err := b.ensureWritable(8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b.data[b.pos:], uint64(v))
	b.pos += 8
	return nil
}

func (b *Buffer) WriteUint64(v uint64) error {
	if err := b.ensureWritable(8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b.data[b.pos:], v)
	b.pos += 8
	return nil
}

func (b *Buffer) WriteFloat64(v float64) error {
	return b.WriteUint64(math.Float64bits(v))
}

// WriteBytesRaw writes raw bytes with no length prefix.
func (b *Buffer) WriteBytesRaw(v []byte) error {
	if err := b.ensureWritable(len(v)); err != nil {
		return err
	}
	copy(b.data[b.pos:], v)
	b.pos += len(v)
	return nil
}

// maxStringLen is the largest length a string/varbinary write accepts,
// per spec.md §4.1 ("writing a string with length > 2^31 is forbidden").
const maxStringLen = math.MaxInt32

// WriteString writes an int32-length-prefixed UTF-8 string. isNull
// writes the -1 NULL sentinel length and no bytes.
func (b *Buffer) WriteString(s string, isNull bool) error {
	if isNull {
		return b.WriteInt32(-1)
	}
	if len(s) > maxStringLen {
		return newErr(KindOverflow, "WriteString", len(s), maxStringLen)
	}
	if err := b.ensureWritable(4 + len(s)); err != nil {
		return err
	}
	if err := b.WriteInt32(int32(len(s))); err != nil {
		return err
	}
	return b.WriteBytesRaw([]byte(s))
}

// WriteVarbinary writes an int32-length-prefixed byte array; isNull
// writes the -1 NULL sentinel length and no bytes.
func (b *Buffer) WriteVarbinary(v []byte, isNull bool) error {
	if isNull {
		return b.WriteInt32(-1)
	}
	if len(v) > maxStringLen {
		return newErr(KindOverflow, "WriteVarbinary", len(v), maxStringLen)
	}
	if err := b.ensureWritable(4 + len(v)); err != nil {
		return err
	}
	if err := b.WriteInt32(int32(len(v))); err != nil {
		return err
	}
	return b.WriteBytesRaw(v)
}

// --- absolute-index access, used to patch the length prefix in after
// the rest of a frame has been written. ---

func (b *Buffer) PutInt32At(offset int, v int32) error {
	if offset < 0 || offset+4 > b.limit {
		return newErr(KindIndexOutOfBounds, "PutInt32At", 4, offset)
	}
	binary.BigEndian.PutUint32(b.data[offset:], uint32(v))
	return nil
}

func (b *Buffer) Int32At(offset int) (int32, error) {
	if offset < 0 || offset+4 > b.limit {
		return 0, newErr(KindIndexOutOfBounds, "Int32At", 4, offset)
	}
	return int32(binary.BigEndian.Uint32(b.data[offset:])), nil
}

// PatchLengthPrefix seeks to offset 0, and writes position-4 as an
// int32, implementing the length-prefix convention used by every
// request type in protocol/: "total_length (not including the 4 bytes
// themselves)".
func (b *Buffer) PatchLengthPrefix() error {
	return b.PutInt32At(0, int32(b.pos-4))
}
