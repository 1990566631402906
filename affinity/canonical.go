package affinity

import (
	"encoding/binary"
	"fmt"

	"github.com/mickamy/voltgo/value"
)

// CanonicalEncode produces the partition-key byte encoding spec.md §4.5
// describes: fixed-width integers are written big-endian in their
// declared width; STRING and VARBINARY are hashed over their raw bytes
// without a length prefix.
func CanonicalEncode(t value.Type, v any) ([]byte, error) {
	switch t {
	case value.Tinyint:
		n, ok := v.(int8)
		if !ok {
			return nil, fmt.Errorf("affinity: canonical encode: want int8, got %T", v)
		}
		return []byte{byte(n)}, nil
	case value.Smallint:
		n, ok := v.(int16)
		if !ok {
			return nil, fmt.Errorf("affinity: canonical encode: want int16, got %T", v)
		}
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(n))
		return b, nil
	case value.Integer:
		n, ok := v.(int32)
		if !ok {
			return nil, fmt.Errorf("affinity: canonical encode: want int32, got %T", v)
		}
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(n))
		return b, nil
	case value.Bigint, value.Timestamp:
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("affinity: canonical encode: want int64, got %T", v)
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(n))
		return b, nil
	case value.String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("affinity: canonical encode: want string, got %T", v)
		}
		return []byte(s), nil
	case value.Varbinary:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("affinity: canonical encode: want []byte, got %T", v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("affinity: canonical encode: unsupported partition parameter type %s", t)
	}
}
