package value

import (
	"fmt"

	"github.com/mickamy/voltgo/errs"
)

// Row is a slice of a table's row buffer plus a reference to its
// schema. Column offsets are computed lazily and cached as getters are
// called, rather than eagerly parsing every column up front.
type Row struct {
	data     []byte // the row body, not including its own length prefix
	schema   *Schema
	offsets  []int // offsets[i] = start offset of column i, for i already computed
	nextPos  int   // byte offset right after the last computed column
	wasNull  bool
}

// NewRow wraps data (the row body) with schema. data is not copied; a
// Table passes a slice of its own row region.
func NewRow(data []byte, schema *Schema) *Row {
	return &Row{data: data, schema: schema}
}

// WasNull reports whether the most recent getter call returned NULL.
func (r *Row) WasNull() bool { return r.wasNull }

func (r *Row) ensureOffsets(idx int) error {
	for len(r.offsets) <= idx {
		i := len(r.offsets)
		if i >= len(r.schema.Columns) {
			return errs.New(errs.InvalidColumn, "column index out of range")
		}
		r.offsets = append(r.offsets, r.nextPos)
		size, err := columnSize(r.data, r.nextPos, r.schema.Columns[i].Type)
		if err != nil {
			return err
		}
		r.nextPos += size
	}
	return nil
}

// columnSize returns the number of bytes (header + payload) a column of
// the given type occupies starting at pos within data.
func columnSize(data []byte, pos int, t Type) (int, error) {
	if w := t.Width(); w > 0 {
		return w, nil
	}
	switch t {
	case Decimal:
		return 16, nil
	case GeographyPoint:
		return 16, nil
	case String, Varbinary:
		if pos+4 > len(data) {
			return 0, errs.New(errs.InvalidColumn, "truncated length-prefixed column")
		}
		n := getInt32(data[pos : pos+4])
		if n == -1 {
			return 4, nil
		}
		return 4 + int(n), nil
	case Geography:
		n, err := geographyWireSize(data[pos:])
		if err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, errs.New(errs.UnsupportedType, fmt.Sprintf("unsupported column type %s", t))
	}
}

// geographyWireSize reads the EncodeGeography wire form's leading
// content-length prefix starting at data[0] and returns the total
// number of bytes (prefix plus content) it occupies.
func geographyWireSize(data []byte) (int, error) {
	if len(data) < 4 {
		return 0, errs.New(errs.UnsupportedType, "geography payload too short")
	}
	size := getInt32(data[0:4])
	if size == -1 {
		return 4, nil
	}
	if size < 0 {
		return 0, errs.New(errs.UnsupportedType, "geography payload length out of range")
	}
	return 4 + int(size), nil
}

func (r *Row) cellBytes(idx int) ([]byte, Type, error) {
	if err := r.ensureOffsets(idx); err != nil {
		return nil, Invalid, err
	}
	col, err := r.schema.ColumnAt(idx)
	if err != nil {
		return nil, Invalid, err
	}
	start := r.offsets[idx]
	size, err := columnSize(r.data, start, col.Type)
	if err != nil {
		return nil, Invalid, err
	}
	return r.data[start : start+size], col.Type, nil
}

func (r *Row) checkWidening(declared, requested Type) error {
	if !Widens(declared, requested) {
		return errs.New(errs.InvalidColumn, fmt.Sprintf("column is %s, cannot read as %s", declared, requested))
	}
	return nil
}

// GetInt64 reads column idx as a BIGINT, accepting any narrower declared
// integer type via widening.
func (r *Row) GetInt64(idx int) (int64, error) {
	cell, declared, err := r.cellBytes(idx)
	if err != nil {
		return 0, err
	}
	if err := r.checkWidening(declared, Bigint); err != nil {
		return 0, err
	}
	var v int64
	switch declared {
	case Tinyint:
		v = int64(int8(cell[0]))
		r.wasNull = int8(cell[0]) == Int8Null
	case Smallint:
		v = int64(getInt16(cell))
		r.wasNull = getInt16(cell) == Int16Null
	case Integer:
		v = int64(getInt32(cell))
		r.wasNull = getInt32(cell) == Int32Null
	case Bigint, Timestamp:
		v = getInt64(cell)
		r.wasNull = v == Int64Null
	default:
		return 0, errs.New(errs.InvalidColumn, "not an integer column")
	}
	return v, nil
}

// GetInt32 reads column idx as an INTEGER or narrower.
func (r *Row) GetInt32(idx int) (int32, error) {
	col, err := r.schema.ColumnAt(idx)
	if err != nil {
		return 0, err
	}
	if err := r.checkWidening(col.Type, Integer); err != nil {
		return 0, err
	}
	v, err := r.GetInt64(idx)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// GetInt16 reads column idx as a SMALLINT or narrower.
func (r *Row) GetInt16(idx int) (int16, error) {
	col, err := r.schema.ColumnAt(idx)
	if err != nil {
		return 0, err
	}
	if err := r.checkWidening(col.Type, Smallint); err != nil {
		return 0, err
	}
	v, err := r.GetInt64(idx)
	if err != nil {
		return 0, err
	}
	return int16(v), nil
}

// GetInt8 reads column idx as a TINYINT.
func (r *Row) GetInt8(idx int) (int8, error) {
	cell, declared, err := r.cellBytes(idx)
	if err != nil {
		return 0, err
	}
	if declared != Tinyint {
		return 0, errs.New(errs.InvalidColumn, "not a TINYINT column")
	}
	v := int8(cell[0])
	r.wasNull = v == Int8Null
	return v, nil
}

// GetFloat64 reads column idx as a FLOAT.
func (r *Row) GetFloat64(idx int) (float64, error) {
	cell, declared, err := r.cellBytes(idx)
	if err != nil {
		return 0, err
	}
	if declared != Float {
		return 0, errs.New(errs.InvalidColumn, "not a FLOAT column")
	}
	v := getFloat64(cell)
	r.wasNull = FloatIsNull(v)
	return v, nil
}

// GetTimestamp reads column idx as a TIMESTAMP (signed 64-bit
// microseconds since epoch).
func (r *Row) GetTimestamp(idx int) (int64, error) {
	cell, declared, err := r.cellBytes(idx)
	if err != nil {
		return 0, err
	}
	if declared != Timestamp {
		return 0, errs.New(errs.InvalidColumn, "not a TIMESTAMP column")
	}
	v := getInt64(cell)
	r.wasNull = v == Int64Null
	return v, nil
}

// GetString reads column idx as a STRING.
func (r *Row) GetString(idx int) (string, error) {
	cell, declared, err := r.cellBytes(idx)
	if err != nil {
		return "", err
	}
	if declared != String {
		return "", errs.New(errs.InvalidColumn, "not a STRING column")
	}
	n := getInt32(cell[0:4])
	if n == -1 {
		r.wasNull = true
		return "", nil
	}
	r.wasNull = false
	return string(cell[4:]), nil
}

// GetVarbinary reads column idx as a VARBINARY.
func (r *Row) GetVarbinary(idx int) ([]byte, error) {
	cell, declared, err := r.cellBytes(idx)
	if err != nil {
		return nil, err
	}
	if declared != Varbinary {
		return nil, errs.New(errs.InvalidColumn, "not a VARBINARY column")
	}
	n := getInt32(cell[0:4])
	if n == -1 {
		r.wasNull = true
		return nil, nil
	}
	r.wasNull = false
	out := make([]byte, len(cell)-4)
	copy(out, cell[4:])
	return out, nil
}

// GetDecimal reads column idx as a DECIMAL.
func (r *Row) GetDecimal(idx int) (Decimal, error) {
	cell, declared, err := r.cellBytes(idx)
	if err != nil {
		return Decimal{}, err
	}
	if declared != Decimal {
		return Decimal{}, errs.New(errs.InvalidColumn, "not a DECIMAL column")
	}
	var raw [16]byte
	copy(raw[:], cell)
	d := DecodeDecimal(raw)
	r.wasNull = d.IsNull()
	return d, nil
}

// GetGeographyPoint reads column idx as a GEOGRAPHY_POINT.
func (r *Row) GetGeographyPoint(idx int) (GeographyPoint, error) {
	cell, declared, err := r.cellBytes(idx)
	if err != nil {
		return GeographyPoint{}, err
	}
	if declared != GeographyPoint {
		return GeographyPoint{}, errs.New(errs.InvalidColumn, "not a GEOGRAPHY_POINT column")
	}
	var raw [16]byte
	copy(raw[:], cell)
	p := DecodePoint(raw)
	r.wasNull = p.IsNull()
	return p, nil
}

// GetGeography reads column idx as a GEOGRAPHY polygon.
func (r *Row) GetGeography(idx int) (Polygon, error) {
	cell, declared, err := r.cellBytes(idx)
	if err != nil {
		return Polygon{}, err
	}
	if declared != Geography {
		return Polygon{}, errs.New(errs.InvalidColumn, "not a GEOGRAPHY column")
	}
	g, err := DecodeGeography(cell)
	if err != nil {
		return Polygon{}, err
	}
	r.wasNull = g.IsNull()
	return g, nil
}

// byName resolves a column name to an index, or InvalidColumn.
func (r *Row) byName(name string) (int, error) {
	idx := r.schema.IndexOf(name)
	if idx < 0 {
		return 0, errs.New(errs.InvalidColumn, fmt.Sprintf("no such column %q", name))
	}
	return idx, nil
}

func (r *Row) GetInt64ByName(name string) (int64, error) {
	idx, err := r.byName(name)
	if err != nil {
		return 0, err
	}
	return r.GetInt64(idx)
}

func (r *Row) GetStringByName(name string) (string, error) {
	idx, err := r.byName(name)
	if err != nil {
		return "", err
	}
	return r.GetString(idx)
}

func (r *Row) GetInt32ByName(name string) (int32, error) {
	idx, err := r.byName(name)
	if err != nil {
		return 0, err
	}
	return r.GetInt32(idx)
}

func (r *Row) GetVarbinaryByName(name string) ([]byte, error) {
	idx, err := r.byName(name)
	if err != nil {
		return nil, err
	}
	return r.GetVarbinary(idx)
}

func getInt16(b []byte) int16 { return int16(uint16(b[0])<<8 | uint16(b[1])) }
func getInt64(b []byte) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u = u<<8 | uint64(b[i])
	}
	return int64(u)
}
