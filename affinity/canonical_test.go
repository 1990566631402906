package affinity_test

import (
	"bytes"
	"testing"

	"github.com/mickamy/voltgo/affinity"
	"github.com/mickamy/voltgo/value"
)

func TestCanonicalEncodeFixedWidthIntegers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  value.Type
		v    any
		want []byte
	}{
		{"tinyint", value.Tinyint, int8(5), []byte{0x05}},
		{"smallint", value.Smallint, int16(1), []byte{0x00, 0x01}},
		{"integer", value.Integer, int32(42), []byte{0x00, 0x00, 0x00, 0x2a}},
		{"bigint", value.Bigint, int64(42), []byte{0, 0, 0, 0, 0, 0, 0, 0x2a}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := affinity.CanonicalEncode(tt.typ, tt.v)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("got % x, want % x", got, tt.want)
			}
		})
	}
}

func TestCanonicalEncodeStringAndVarbinaryHaveNoLengthPrefix(t *testing.T) {
	t.Parallel()

	s, err := affinity.CanonicalEncode(value.String, "hi")
	if err != nil {
		t.Fatalf("encode string: %v", err)
	}
	if !bytes.Equal(s, []byte("hi")) {
		t.Fatalf("got % x, want raw bytes of \"hi\"", s)
	}

	v, err := affinity.CanonicalEncode(value.Varbinary, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("encode varbinary: %v", err)
	}
	if !bytes.Equal(v, []byte{1, 2, 3}) {
		t.Fatalf("got % x, want raw bytes", v)
	}
}

func TestCanonicalEncodeRejectsTypeMismatch(t *testing.T) {
	t.Parallel()

	if _, err := affinity.CanonicalEncode(value.Integer, "not an int32"); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestCanonicalEncodeRejectsUnsupportedType(t *testing.T) {
	t.Parallel()

	if _, err := affinity.CanonicalEncode(value.Decimal, nil); err == nil {
		t.Fatal("expected unsupported-type error")
	}
}
