package value_test

import (
	"errors"
	"testing"

	"github.com/mickamy/voltgo/errs"
	"github.com/mickamy/voltgo/value"
)

func TestDecimalStringNormalizesToTwelveFractionalDigits(t *testing.T) {
	t.Parallel()

	d, err := value.ParseDecimal("3.1459")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got, want := d.String(), "3.145900000000"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDecimalParseRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bare sign", "-"},
		{"letters", "12a.34"},
		{"too many fractional digits", "1." + repeat("1", 13)},
		{"too many significant digits", repeat("9", 39)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := value.ParseDecimal(tt.input)
			if !errors.Is(err, errs.New(errs.StringToDecimal, "")) {
				t.Fatalf("got %v, want StringToDecimal", err)
			}
		})
	}
}

func TestDecimalEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []string{"0", "-0.000000000001", "123456789012345678901234.123456789012", "-42"}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			t.Parallel()

			d, err := value.ParseDecimal(s)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got := value.DecodeDecimal(d.Encode())
			if got.String() != d.String() {
				t.Fatalf("got %q, want %q", got.String(), d.String())
			}
		})
	}
}

func TestNullDecimalRoundTrips(t *testing.T) {
	t.Parallel()

	if !value.NullDecimal.IsNull() {
		t.Fatal("NullDecimal.IsNull() = false")
	}
	got := value.DecodeDecimal(value.NullDecimal.Encode())
	if !got.IsNull() {
		t.Fatal("decoded NULL decimal is not null")
	}
}

func repeat(s string, n int) string {
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
