// Package value implements the typed scalar value and schema model
// (C2): wire tag bytes, null sentinels, decimals, geography, and the
// row/table/procedure types built on top of them.
package value

import "math"

// Type is a scalar value kind. The numeric values are wire tag bytes
// and are part of the protocol; they must never be renumbered.
type Type int8

const (
	Null           Type = 1
	Tinyint        Type = 3
	Smallint       Type = 4
	Integer        Type = 5
	Bigint         Type = 6
	Float          Type = 8
	String         Type = 9
	Timestamp      Type = 11
	Decimal        Type = 22
	Varbinary      Type = 25
	GeographyPoint Type = 26
	Geography      Type = 27

	// Array is a sentinel tag used only in invocation-request parameter
	// encoding: it is followed by the element Type, not carried on a
	// value itself.
	Array Type = -99
	// Invalid marks an uninitialized or unrecognized type.
	Invalid Type = -98
)

func (t Type) String() string {
	switch t {
	case Null:
		return "NULL"
	case Tinyint:
		return "TINYINT"
	case Smallint:
		return "SMALLINT"
	case Integer:
		return "INTEGER"
	case Bigint:
		return "BIGINT"
	case Float:
		return "FLOAT"
	case String:
		return "STRING"
	case Timestamp:
		return "TIMESTAMP"
	case Decimal:
		return "DECIMAL"
	case Varbinary:
		return "VARBINARY"
	case GeographyPoint:
		return "GEOGRAPHY_POINT"
	case Geography:
		return "GEOGRAPHY"
	case Array:
		return "ARRAY"
	default:
		return "INVALID"
	}
}

// Width returns the on-wire fixed size of a fixed-width scalar type, or
// 0 for variable-length/complex types.
func (t Type) Width() int {
	switch t {
	case Tinyint:
		return 1
	case Smallint:
		return 2
	case Integer:
		return 4
	case Bigint, Timestamp:
		return 8
	case Float:
		return 8
	default:
		return 0
	}
}

// IsNumeric reports whether t is one of the fixed-width numeric types
// that carry a per-width NULL sentinel.
func (t Type) IsNumeric() bool {
	switch t {
	case Tinyint, Smallint, Integer, Bigint, Float, Timestamp:
		return true
	default:
		return false
	}
}

// Null sentinels for fixed-width numerics, matching the server: the
// minimum representable value of each width denotes SQL NULL.
const (
	Int8Null  int8   = math.MinInt8
	Int16Null int16  = math.MinInt16
	Int32Null int32  = math.MinInt32
	Int64Null int64  = math.MinInt64
	FloatNull float64 = -1.7e308
)

// FloatIsNull reports whether v is at or below the FLOAT NULL sentinel,
// matching the server's "<= -1.7e308" convention.
func FloatIsNull(v float64) bool {
	return v <= FloatNull
}

// Widens reports whether a getter for type wider may read a column
// declared as narrower, per spec.md §3 "Widening is allowed: a getter
// for a wider integer accepts narrower declared column types."
func Widens(declared, requested Type) bool {
	if declared == requested {
		return true
	}
	rank := func(t Type) int {
		switch t {
		case Tinyint:
			return 1
		case Smallint:
			return 2
		case Integer:
			return 3
		case Bigint:
			return 4
		default:
			return 0
		}
	}
	dr, rr := rank(declared), rank(requested)
	return dr > 0 && rr > 0 && rr >= dr
}
