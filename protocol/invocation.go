package protocol

import (
	"fmt"

	"github.com/mickamy/voltgo/errs"
	"github.com/mickamy/voltgo/value"
	"github.com/mickamy/voltgo/wire"
)

// EncodeInvocationRequest serializes a procedure call with the given
// client token as a length-prefixed invocation request frame, per
// spec.md §4.3. The procedure's parameters must already be fully
// populated (value.ParameterSet.Validate would pass).
func EncodeInvocationRequest(proc *value.Procedure, clientToken int64) ([]byte, error) {
	if err := proc.Params.Validate(); err != nil {
		return nil, err
	}

	buf := wire.NewOwned(0)
	if err := buf.WriteInt32(0); err != nil { // length placeholder
		return nil, err
	}
	if err := buf.WriteInt8(0); err != nil { // version
		return nil, err
	}
	if err := buf.WriteString(proc.Name, false); err != nil {
		return nil, err
	}
	if err := buf.WriteInt64(clientToken); err != nil {
		return nil, err
	}
	if err := buf.WriteInt16(int16(proc.Params.Len())); err != nil {
		return nil, err
	}
	for i := 0; i < proc.Params.Len(); i++ {
		declared, err := proc.Params.TypeAt(i)
		if err != nil {
			return nil, err
		}
		v, isArray, err := proc.Params.ValueAt(i)
		if err != nil {
			return nil, err
		}
		if _, isNull := v.(value.SQLNullType); isNull {
			if err := writeNullParam(buf, declared); err != nil {
				return nil, err
			}
			continue
		}
		if isArray {
			if err := writeArrayParam(buf, declared, v); err != nil {
				return nil, err
			}
			continue
		}
		if err := buf.WriteInt8(int8(declared)); err != nil {
			return nil, err
		}
		if err := writeScalarParam(buf, declared, v); err != nil {
			return nil, err
		}
	}
	if err := buf.PatchLengthPrefix(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeScalarParam(buf *wire.Buffer, t value.Type, v any) error {
	switch t {
	case value.Tinyint:
		return buf.WriteInt8(v.(int8))
	case value.Smallint:
		return buf.WriteInt16(v.(int16))
	case value.Integer:
		return buf.WriteInt32(v.(int32))
	case value.Bigint, value.Timestamp:
		return buf.WriteInt64(v.(int64))
	case value.Float:
		return buf.WriteFloat64(v.(float64))
	case value.String:
		return buf.WriteString(v.(string), false)
	case value.Varbinary:
		return buf.WriteVarbinary(v.([]byte), false)
	case value.Decimal:
		b := v.(value.Decimal).Encode()
		return buf.WriteBytesRaw(b[:])
	case value.GeographyPoint:
		b := value.EncodePoint(v.(value.GeographyPoint))
		return buf.WriteBytesRaw(b[:])
	case value.Geography:
		return buf.WriteBytesRaw(value.EncodeGeography(v.(value.Polygon)))
	default:
		return errs.New(errs.UnsupportedType, fmt.Sprintf("unsupported parameter type %s", t))
	}
}

func writeNullParam(buf *wire.Buffer, t value.Type) error {
	if err := buf.WriteInt8(int8(t)); err != nil {
		return err
	}
	switch t {
	case value.Tinyint:
		return buf.WriteInt8(value.Int8Null)
	case value.Smallint:
		return buf.WriteInt16(value.Int16Null)
	case value.Integer:
		return buf.WriteInt32(value.Int32Null)
	case value.Bigint, value.Timestamp:
		return buf.WriteInt64(value.Int64Null)
	case value.Float:
		return buf.WriteFloat64(value.FloatNull)
	case value.String:
		return buf.WriteString("", true)
	case value.Varbinary:
		return buf.WriteVarbinary(nil, true)
	case value.Decimal:
		b := value.NullDecimal.Encode()
		return buf.WriteBytesRaw(b[:])
	case value.GeographyPoint:
		b := value.EncodePoint(value.NullGeographyPoint)
		return buf.WriteBytesRaw(b[:])
	case value.Geography:
		return buf.WriteBytesRaw(value.EncodeGeography(value.NullGeography))
	default:
		return errs.New(errs.UnsupportedType, fmt.Sprintf("unsupported parameter type %s", t))
	}
}

// writeArrayParam encodes an array parameter. TINYINT arrays are
// reinterpreted on the wire as a plain VARBINARY value (int32-prefixed
// raw bytes) rather than ARRAY framing; every other scalar type uses
// type=ARRAY, the element type, an int16 element count, then the
// elements back to back with no per-element type tag.
func writeArrayParam(buf *wire.Buffer, elemType value.Type, v any) error {
	if elemType == value.Tinyint {
		arr := v.([]int8)
		raw := make([]byte, len(arr))
		for i, x := range arr {
			raw[i] = byte(x)
		}
		if err := buf.WriteInt8(int8(value.Varbinary)); err != nil {
			return err
		}
		return buf.WriteVarbinary(raw, false)
	}

	if err := buf.WriteInt8(int8(value.Array)); err != nil {
		return err
	}
	if err := buf.WriteInt8(int8(elemType)); err != nil {
		return err
	}

	switch arr := v.(type) {
	case []int16:
		if err := buf.WriteInt16(int16(len(arr))); err != nil {
			return err
		}
		for _, x := range arr {
			if err := buf.WriteInt16(x); err != nil {
				return err
			}
		}
	case []int32:
		if err := buf.WriteInt16(int16(len(arr))); err != nil {
			return err
		}
		for _, x := range arr {
			if err := buf.WriteInt32(x); err != nil {
				return err
			}
		}
	case []int64:
		if err := buf.WriteInt16(int16(len(arr))); err != nil {
			return err
		}
		for _, x := range arr {
			if err := buf.WriteInt64(x); err != nil {
				return err
			}
		}
	case []float64:
		if err := buf.WriteInt16(int16(len(arr))); err != nil {
			return err
		}
		for _, x := range arr {
			if err := buf.WriteFloat64(x); err != nil {
				return err
			}
		}
	case []string:
		if err := buf.WriteInt16(int16(len(arr))); err != nil {
			return err
		}
		for _, s := range arr {
			if err := buf.WriteString(s, false); err != nil {
				return err
			}
		}
	default:
		return errs.New(errs.UnsupportedType, fmt.Sprintf("unsupported array element type %s", elemType))
	}
	return nil
}

// InvocationResponse is the server's reply to an invocation request.
type InvocationResponse struct {
	ClientToken        int64
	StatusCode         StatusCode
	StatusString       string
	AppStatusCode      int8
	AppStatusString    string
	ClusterRoundTripMS int32
	Results            []*value.Table
}

// DecodeInvocationResponse parses b, which must contain exactly one
// invocation response body (the bytes following the frame's length
// prefix), per spec.md §4.3.
func DecodeInvocationResponse(b *wire.Buffer) (*InvocationResponse, error) {
	resp := &InvocationResponse{}

	if _, err := b.ReadInt8(); err != nil { // version
		return nil, err
	}
	clientToken, err := b.ReadInt64()
	if err != nil {
		return nil, err
	}
	resp.ClientToken = clientToken

	presence, err := b.ReadUint8()
	if err != nil {
		return nil, err
	}
	status, err := b.ReadInt8()
	if err != nil {
		return nil, err
	}
	resp.StatusCode = StatusCode(status)

	if presence&bitStatusStringPresent != 0 {
		s, isNull, err := b.ReadString()
		if err != nil {
			return nil, err
		}
		if !isNull {
			resp.StatusString = s
		}
	}

	appStatus, err := b.ReadInt8()
	if err != nil {
		return nil, err
	}
	resp.AppStatusCode = appStatus

	if presence&bitAppStatusStringPresent != 0 {
		s, isNull, err := b.ReadString()
		if err != nil {
			return nil, err
		}
		if !isNull {
			resp.AppStatusString = s
		}
	}

	roundTrip, err := b.ReadInt32()
	if err != nil {
		return nil, err
	}
	resp.ClusterRoundTripMS = roundTrip

	if presence&bitClusterExtraPresent != 0 {
		extraLen, err := b.ReadInt32()
		if err != nil {
			return nil, err
		}
		if _, err := b.ReadBytesRaw(int(extraLen)); err != nil {
			return nil, err
		}
	}

	tableCount, err := b.ReadInt16()
	if err != nil {
		return nil, err
	}
	resp.Results = make([]*value.Table, tableCount)
	for i := range resp.Results {
		t, err := value.ParseTable(b)
		if err != nil {
			return nil, err
		}
		resp.Results[i] = t
	}
	return resp, nil
}

// IsTopologyNotification reports whether r is the unsolicited
// topology-change notification rather than a reply to a pending
// request.
func IsTopologyNotification(r *InvocationResponse) bool {
	return r.ClientToken == TopologyNotificationToken
}
