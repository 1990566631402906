package value

import (
	"fmt"

	"github.com/mickamy/voltgo/errs"
	"github.com/mickamy/voltgo/wire"
)

// RowBuilder appends values in column order into a length-prefixed row
// body matching schema. It refuses to serialize before every column has
// been populated (a value or an explicit NULL).
type RowBuilder struct {
	schema *Schema
	buf    *wire.Buffer
	filled []bool
	next   int
}

// NewRowBuilder creates a builder for a row of the given schema.
func NewRowBuilder(schema *Schema) *RowBuilder {
	return &RowBuilder{
		schema: schema,
		buf:    wire.NewOwned(0),
		filled: make([]bool, schema.Len()),
	}
}

func (rb *RowBuilder) currentColumn() (Column, error) {
	if rb.next >= rb.schema.Len() {
		return Column{}, errs.New(errs.ParamMismatch, "row builder: all columns already populated")
	}
	return rb.schema.Columns[rb.next], nil
}

func (rb *RowBuilder) advance() { rb.filled[rb.next] = true; rb.next++ }

// AddNull writes the correct-width NULL sentinel for the current
// column's declared type.
func (rb *RowBuilder) AddNull() error {
	col, err := rb.currentColumn()
	if err != nil {
		return err
	}
	var werr error
	switch col.Type {
	case Tinyint:
		werr = rb.buf.WriteInt8(Int8Null)
	case Smallint:
		werr = rb.buf.WriteInt16(Int16Null)
	case Integer:
		werr = rb.buf.WriteInt32(Int32Null)
	case Bigint, Timestamp:
		werr = rb.buf.WriteInt64(Int64Null)
	case Float:
		werr = rb.buf.WriteFloat64(FloatNull)
	case String:
		werr = rb.buf.WriteString("", true)
	case Varbinary:
		werr = rb.buf.WriteVarbinary(nil, true)
	case Decimal:
		b := NullDecimal.Encode()
		werr = rb.buf.WriteBytesRaw(b[:])
	case GeographyPoint:
		b := EncodePoint(NullGeographyPoint)
		werr = rb.buf.WriteBytesRaw(b[:])
	case Geography:
		werr = rb.buf.WriteBytesRaw(EncodeGeography(NullGeography))
	default:
		werr = errs.New(errs.UnsupportedType, fmt.Sprintf("unsupported column type %s", col.Type))
	}
	if werr != nil {
		return werr
	}
	rb.advance()
	return nil
}

func (rb *RowBuilder) addTyped(t Type, write func() error) error {
	col, err := rb.currentColumn()
	if err != nil {
		return err
	}
	if col.Type != t {
		return errs.New(errs.ParamMismatch, fmt.Sprintf("column %d is %s, got %s", rb.next, col.Type, t))
	}
	if err := write(); err != nil {
		return err
	}
	rb.advance()
	return nil
}

func (rb *RowBuilder) AddInt8(v int8) error {
	return rb.addTyped(Tinyint, func() error { return rb.buf.WriteInt8(v) })
}

func (rb *RowBuilder) AddInt16(v int16) error {
	return rb.addTyped(Smallint, func() error { return rb.buf.WriteInt16(v) })
}

func (rb *RowBuilder) AddInt32(v int32) error {
	return rb.addTyped(Integer, func() error { return rb.buf.WriteInt32(v) })
}

func (rb *RowBuilder) AddInt64(v int64) error {
	return rb.addTyped(Bigint, func() error { return rb.buf.WriteInt64(v) })
}

func (rb *RowBuilder) AddFloat64(v float64) error {
	return rb.addTyped(Float, func() error { return rb.buf.WriteFloat64(v) })
}

func (rb *RowBuilder) AddTimestamp(v int64) error {
	return rb.addTyped(Timestamp, func() error { return rb.buf.WriteInt64(v) })
}

func (rb *RowBuilder) AddString(v string) error {
	return rb.addTyped(String, func() error { return rb.buf.WriteString(v, false) })
}

func (rb *RowBuilder) AddVarbinary(v []byte) error {
	return rb.addTyped(Varbinary, func() error { return rb.buf.WriteVarbinary(v, false) })
}

func (rb *RowBuilder) AddDecimal(v Decimal) error {
	return rb.addTyped(Decimal, func() error {
		b := v.Encode()
		return rb.buf.WriteBytesRaw(b[:])
	})
}

func (rb *RowBuilder) AddGeographyPoint(v GeographyPoint) error {
	return rb.addTyped(GeographyPoint, func() error {
		b := EncodePoint(v)
		return rb.buf.WriteBytesRaw(b[:])
	})
}

func (rb *RowBuilder) AddGeography(v Polygon) error {
	return rb.addTyped(Geography, func() error {
		return rb.buf.WriteBytesRaw(EncodeGeography(v))
	})
}

// Bytes returns the length-prefixed row (int32 body length + body),
// refusing to serialize until every column has been populated.
func (rb *RowBuilder) Bytes() ([]byte, error) {
	for i, ok := range rb.filled {
		if !ok {
			return nil, errs.New(errs.UninitializedParams, fmt.Sprintf("column %d was never populated", i))
		}
	}
	body := rb.buf.Bytes()
	out := wire.NewOwned(4 + len(body))
	if err := out.WriteInt32(int32(len(body))); err != nil {
		return nil, err
	}
	if err := out.WriteBytesRaw(body); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
