package value

import (
	"github.com/mickamy/voltgo/errs"
	"github.com/mickamy/voltgo/wire"
)

// UnsetStatus is the server-side table status byte default.
const UnsetStatus int8 = Int8Null

// Table is a length-prefixed header (status, columns) followed by a
// row-count prefix and length-prefixed rows. It is logically immutable
// once received; it shares the underlying bytes of the response it came
// from rather than copying rows eagerly.
type Table struct {
	Status   int8
	Schema   *Schema
	rowCount int32
	rowsData []byte
}

// ParseTable reads one length-prefixed table from b, per spec.md §3/§4.2:
// header (size, status byte, column count, column types, column names),
// then a row-count prefix followed by length-prefixed rows.
func ParseTable(b *wire.Buffer) (*Table, error) {
	tableLen, err := b.ReadInt32()
	if err != nil {
		return nil, err
	}
	bodyStart := b.Position()

	status, err := b.ReadInt8()
	if err != nil {
		return nil, err
	}
	colCount, err := b.ReadInt16()
	if err != nil {
		return nil, err
	}
	types := make([]Type, colCount)
	for i := range types {
		t, err := b.ReadInt8()
		if err != nil {
			return nil, err
		}
		types[i] = Type(t)
	}
	columns := make([]Column, colCount)
	for i := range columns {
		name, isNull, err := b.ReadString()
		if err != nil {
			return nil, err
		}
		if isNull {
			name = ""
		}
		columns[i] = Column{Name: name, Type: types[i]}
	}
	rowCount, err := b.ReadInt32()
	if err != nil {
		return nil, err
	}

	rowsStart := b.Position()
	end := bodyStart + int(tableLen)
	rowsLen := end - rowsStart
	if rowsLen < 0 {
		return nil, errs.New(errs.ProtocolViolation, "table length shorter than its own header")
	}
	rowsView, err := b.Slice(rowsLen)
	if err != nil {
		return nil, err
	}

	return &Table{
		Status:   status,
		Schema:   &Schema{Columns: columns},
		rowCount: rowCount,
		rowsData: rowsView.Raw(),
	}, nil
}

// RowCount returns the number of rows the header declared.
func (t *Table) RowCount() int { return int(t.rowCount) }

// Iterator walks a Table's rows in order.
type Iterator struct {
	table *Table
	pos   int
	index int32
}

// Iterator returns a fresh row iterator over t.
func (t *Table) Iterator() *Iterator {
	return &Iterator{table: t}
}

// HasNext reports whether another row remains.
func (it *Iterator) HasNext() bool {
	return it.index < it.table.rowCount
}

// Next advances past the next length-prefixed row and returns it.
func (it *Iterator) Next() (*Row, error) {
	if !it.HasNext() {
		return nil, errs.New(errs.NoMoreRows, "no more rows")
	}
	data := it.table.rowsData
	if it.pos+4 > len(data) {
		return nil, errs.New(errs.ProtocolViolation, "truncated row length")
	}
	rowLen := int(getInt32(data[it.pos : it.pos+4]))
	start := it.pos + 4
	if start+rowLen > len(data) {
		return nil, errs.New(errs.ProtocolViolation, "truncated row body")
	}
	body := data[start : start+rowLen]
	it.pos = start + rowLen
	it.index++
	return NewRow(body, it.table.Schema), nil
}
