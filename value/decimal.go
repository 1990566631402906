package value

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/mickamy/voltgo/errs"
)

// decimalScale is the fixed number of fractional digits a Decimal's
// in-memory 128-bit integer is scaled by (10^12), per spec.md §4.2.
const decimalScale = 12

// maxSignificantDigits is the maximum total digits (integer + fraction)
// a Decimal string literal may carry, per spec.md §4.2.
const maxSignificantDigits = 38

var pow10_12 = new(big.Int).Exp(big.NewInt(10), big.NewInt(decimalScale), nil)

// Decimal is a fixed-point 128-bit signed integer scaled by 10^12,
// matching the server's DECIMAL column representation exactly.
type Decimal struct {
	unscaled *big.Int // nil means NULL
}

// NullDecimal is the SQL NULL decimal value.
var NullDecimal = Decimal{unscaled: nil}

// nullDecimalBytes is the wire encoding of NULL: two minimum int64
// words back to back (INT64_MIN || INT64_MIN).
var nullDecimalBytes = func() [16]byte {
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = 0
	}
	b[0] = 0x80
	for i := 8; i < 16; i++ {
		b[i] = 0
	}
	b[8] = 0x80
	return b
}()

// ParseDecimal parses a decimal string: optional sign, integer and
// fractional parts, total significant digits <= 38, scale normalized to
// 12 fractional digits.
func ParseDecimal(s string) (Decimal, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Decimal{}, errs.New(errs.StringToDecimal, fmt.Sprintf("empty decimal string %q", orig))
	}

	neg := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		neg = true
		s = s[1:]
	}
	if s == "" {
		return Decimal{}, errs.New(errs.StringToDecimal, fmt.Sprintf("malformed decimal %q", orig))
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if !isAllDigits(intPart) || (hasFrac && !isAllDigits(fracPart)) {
		return Decimal{}, errs.New(errs.StringToDecimal, fmt.Sprintf("malformed decimal %q", orig))
	}
	if len(fracPart) > decimalScale {
		return Decimal{}, errs.New(errs.StringToDecimal, fmt.Sprintf("decimal %q has more than %d fractional digits", orig, decimalScale))
	}
	if len(intPart)+len(fracPart) > maxSignificantDigits {
		return Decimal{}, errs.New(errs.StringToDecimal, fmt.Sprintf("decimal %q exceeds %d significant digits", orig, maxSignificantDigits))
	}

	fracPadded := fracPart + strings.Repeat("0", decimalScale-len(fracPart))
	digits := intPart + fracPadded

	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, errs.New(errs.StringToDecimal, fmt.Sprintf("malformed decimal %q", orig))
	}
	if unscaled.Cmp(twoPow127) >= 0 {
		return Decimal{}, errs.New(errs.StringToDecimal, fmt.Sprintf("decimal %q does not fit in 128 bits", orig))
	}
	if neg {
		unscaled.Neg(unscaled)
	}
	return Decimal{unscaled: unscaled}, nil
}

// IsNull reports whether d is the SQL NULL decimal.
func (d Decimal) IsNull() bool { return d.unscaled == nil }

// String renders the decimal with exactly 12 fractional digits, e.g.
// Decimal("3.1459").String() == "3.145900000000".
func (d Decimal) String() string {
	if d.IsNull() {
		return "NULL"
	}
	neg := d.unscaled.Sign() < 0
	abs := new(big.Int).Abs(d.unscaled)

	q, r := new(big.Int).QuoRem(abs, pow10_12, new(big.Int))
	frac := r.String()
	if len(frac) < decimalScale {
		frac = strings.Repeat("0", decimalScale-len(frac)) + frac
	}
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%s", sign, q.String(), frac)
}

// Encode serializes d as a 16-byte big-endian two's-complement integer.
func (d Decimal) Encode() [16]byte {
	if d.IsNull() {
		return nullDecimalBytes
	}
	return toTwosComplement128(d.unscaled)
}

// DecodeDecimal parses a 16-byte big-endian two's-complement integer
// back into a Decimal, recognizing the NULL sentinel bit pattern.
func DecodeDecimal(b [16]byte) Decimal {
	if b == nullDecimalBytes {
		return NullDecimal
	}
	return Decimal{unscaled: fromTwosComplement128(b)}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

var twoPow128 = new(big.Int).Lsh(big.NewInt(1), 128)
var twoPow127 = new(big.Int).Lsh(big.NewInt(1), 127)

func toTwosComplement128(v *big.Int) [16]byte {
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, twoPow128)
	}
	var out [16]byte
	b := u.Bytes()
	copy(out[16-len(b):], b)
	return out
}

func fromTwosComplement128(b [16]byte) *big.Int {
	u := new(big.Int).SetBytes(b[:])
	if u.Cmp(twoPow127) >= 0 {
		u.Sub(u, twoPow128)
	}
	return u
}
