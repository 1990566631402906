package value

import (
	"fmt"

	"github.com/mickamy/voltgo/errs"
)

// SQLNull, passed as a parameter value, means "serialize the correct
// NULL sentinel for this parameter's declared type" regardless of what
// that type is.
type SQLNullType struct{}

var SQLNull = SQLNullType{}

// ParameterSet records procedure call arguments in declaration order,
// validating the supplied Go type against each parameter's declared
// Type on every Set call. A parameter may hold either a scalar value or
// a slice of one (an array of that scalar type).
type ParameterSet struct {
	types  []Type
	values []any
	filled []bool
}

// NewParameterSet declares the ordered parameter types a procedure call
// expects.
func NewParameterSet(types ...Type) *ParameterSet {
	return &ParameterSet{
		types:  types,
		values: make([]any, len(types)),
		filled: make([]bool, len(types)),
	}
}

// Len returns the number of declared parameters.
func (p *ParameterSet) Len() int { return len(p.types) }

// TypeAt returns the declared type of parameter i.
func (p *ParameterSet) TypeAt(i int) (Type, error) {
	if i < 0 || i >= len(p.types) {
		return Invalid, errs.New(errs.ParamMismatch, "parameter index out of range")
	}
	return p.types[i], nil
}

// ValueAt returns the value set at index i and whether it is an array.
func (p *ParameterSet) ValueAt(i int) (any, bool, error) {
	if i < 0 || i >= len(p.types) {
		return nil, false, errs.New(errs.ParamMismatch, "parameter index out of range")
	}
	if !p.filled[i] {
		return nil, false, errs.New(errs.UninitializedParams, fmt.Sprintf("parameter %d was never set", i))
	}
	_, isArray := arrayElementType(p.values[i])
	return p.values[i], isArray, nil
}

// Set validates v against the declared type of parameter i (scalar,
// SQLNull, or a slice of the scalar type) and records it.
func (p *ParameterSet) Set(i int, v any) error {
	if i < 0 || i >= len(p.types) {
		return errs.New(errs.ParamMismatch, "parameter index out of range")
	}
	if _, ok := v.(SQLNullType); ok {
		p.values[i] = v
		p.filled[i] = true
		return nil
	}
	declared := p.types[i]
	if elemType, isArray := arrayElementType(v); isArray {
		if elemType != declared {
			return errs.New(errs.ParamMismatch, fmt.Sprintf("parameter %d declared %s, got array of %s", i, declared, elemType))
		}
	} else if !matchesScalar(declared, v) {
		return errs.New(errs.ParamMismatch, fmt.Sprintf("parameter %d declared %s, got %T", i, declared, v))
	}
	p.values[i] = v
	p.filled[i] = true
	return nil
}

// Validate reports UninitializedParams if any declared parameter was
// never Set.
func (p *ParameterSet) Validate() error {
	for i, ok := range p.filled {
		if !ok {
			return errs.New(errs.UninitializedParams, fmt.Sprintf("parameter %d was never set", i))
		}
	}
	return nil
}

func matchesScalar(t Type, v any) bool {
	switch t {
	case Tinyint:
		_, ok := v.(int8)
		return ok
	case Smallint:
		_, ok := v.(int16)
		return ok
	case Integer:
		_, ok := v.(int32)
		return ok
	case Bigint, Timestamp:
		_, ok := v.(int64)
		return ok
	case Float:
		_, ok := v.(float64)
		return ok
	case String:
		_, ok := v.(string)
		return ok
	case Varbinary:
		_, ok := v.([]byte)
		return ok
	case Decimal:
		_, ok := v.(Decimal)
		return ok
	case GeographyPoint:
		_, ok := v.(GeographyPoint)
		return ok
	case Geography:
		_, ok := v.(Polygon)
		return ok
	default:
		return false
	}
}

// arrayElementType reports the scalar Type of v when v is a slice of a
// supported array element type.
func arrayElementType(v any) (Type, bool) {
	switch v.(type) {
	case []int8:
		return Tinyint, true
	case []int16:
		return Smallint, true
	case []int32:
		return Integer, true
	case []int64:
		return Bigint, true
	case []float64:
		return Float, true
	case []string:
		return String, true
	default:
		return Invalid, false
	}
}
