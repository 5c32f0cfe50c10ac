package table

// value.go defines the scalar cell type shared by loaded and generated tables.
//
// Numbers are carried as exact decimals (pgtype.Numeric) rather than float64 so
// that salary arithmetic on values like 1200.10 - 1000.05 is exact. Only the
// XLSX serializer converts to float64, at the very edge.

import (
	"encoding/json"
	"math/big"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Null Kind = iota
	Number
	String
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case String:
		return "string"
	default:
		return "null"
	}
}

// numericRegex matches plain decimal numbers: optional sign, digits with an
// optional fraction, optional exponent. Currency symbols and thousands
// separators are deliberately not accepted.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var bigTen = big.NewInt(10)

// Limits on parsed numbers. Text beyond them stays a string: the digit
// count bounds normalization work and the exponent bounds every later
// rescale to at most maxExponent digits.
const (
	maxDigits   = 1000
	maxExponent = 1000
)

// Value is a single table cell: null, an exact decimal number, or a string.
// The zero Value is null.
type Value struct {
	kind Kind
	num  pgtype.Numeric
	str  string
}

// NullValue returns the null cell.
func NullValue() Value { return Value{} }

// StringValue returns a string cell.
func StringValue(s string) Value { return Value{kind: String, str: s} }

// NumberValue returns a number cell. Invalid, NaN and infinite numerics are
// treated as null.
func NumberValue(n pgtype.Numeric) Value {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return Value{}
	}
	return Value{kind: Number, num: normalize(n)}
}

// ParseNumber parses s as a plain decimal number.
func ParseNumber(s string) (Value, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return Value{}, false
	}

	mantissa, exponent := s, ""
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa, exponent = s[:i], s[i+1:]
	}

	if countDigits(mantissa) > maxDigits {
		return Value{}, false
	}

	var n pgtype.Numeric
	if err := n.Scan(mantissa); err != nil || !n.Valid {
		return Value{}, false
	}

	exp := int64(n.Exp)
	if exponent != "" {
		e, ok := new(big.Int).SetString(strings.TrimPrefix(exponent, "+"), 10)
		if !ok || !e.IsInt64() {
			return Value{}, false
		}
		// Bounded before the sum so it fits in int32.
		if e.Int64() > 2*maxExponent || e.Int64() < -2*maxExponent {
			return Value{}, false
		}
		exp += e.Int64()
	}

	n.Exp = int32(exp)
	v := NumberValue(n)
	if v.num.Exp > maxExponent || v.num.Exp < -maxExponent {
		return Value{}, false
	}
	return v, true
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// ParseValue interprets raw cell text: empty is null, a plain decimal number
// is a number, anything else is a string (kept verbatim).
func ParseValue(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	if v, ok := ParseNumber(s); ok {
		return v
	}
	return StringValue(s)
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null cell.
func (v Value) IsNull() bool { return v.kind == Null }

// Numeric returns the decimal held by v, if any.
func (v Value) Numeric() (pgtype.Numeric, bool) {
	if v.kind != Number {
		return pgtype.Numeric{}, false
	}
	return v.num, true
}

// Float64 returns v as a float64. Only meaningful for numbers.
func (v Value) Float64() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	f, err := v.num.Float64Value()
	if err != nil || !f.Valid {
		return 0, false
	}
	return f.Float64, true
}

// Text returns the string held by v. Only meaningful for strings.
func (v Value) Text() string { return v.str }

// Sign returns -1, 0 or +1 for numbers and 0 for anything else.
func (v Value) Sign() int {
	if v.kind != Number {
		return 0
	}
	return v.num.Int.Sign()
}

// Sub returns v - o. Both operands must be numbers.
func (v Value) Sub(o Value) (Value, bool) {
	if v.kind != Number || o.kind != Number {
		return Value{}, false
	}

	exp := min(v.num.Exp, o.num.Exp)
	a := scaleTo(v.num, exp)
	b := scaleTo(o.num, exp)

	return NumberValue(pgtype.Numeric{
		Int:   new(big.Int).Sub(a, b),
		Exp:   exp,
		Valid: true,
	}), true
}

// Equal reports whether v and o hold the same value. Numbers compare by
// magnitude, so 1 and 1.0 are equal; a number never equals a string.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Number:
		return v.num.Exp == o.num.Exp && v.num.Int.Cmp(o.num.Int) == 0
	case String:
		return v.str == o.str
	default:
		return true
	}
}

// Key returns a canonical string usable as a map key for joins. Values that
// are Equal have the same key.
func (v Value) Key() string {
	switch v.kind {
	case Number:
		return "n:" + v.String()
	case String:
		return "s:" + v.str
	default:
		return ""
	}
}

// String renders v as cell text: canonical decimal for numbers, the string
// itself for strings, and "" for null.
func (v Value) String() string {
	switch v.kind {
	case Number:
		return decimalString(v.num)
	case String:
		return v.str
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as JSON numbers, strings as strings and null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Number:
		return []byte(decimalString(v.num)), nil
	case String:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// normalize strips trailing zeros from the coefficient so that equal
// magnitudes have identical (Int, Exp) pairs.
func normalize(n pgtype.Numeric) pgtype.Numeric {
	i := new(big.Int).Set(n.Int)
	exp := n.Exp

	if i.Sign() == 0 {
		return pgtype.Numeric{Int: i, Exp: 0, Valid: true}
	}

	q, r := new(big.Int), new(big.Int)
	for {
		q.QuoRem(i, bigTen, r)
		if r.Sign() != 0 {
			break
		}
		i.Set(q)
		exp++
	}

	return pgtype.Numeric{Int: i, Exp: exp, Valid: true}
}

// scaleTo returns the coefficient of n expressed at exponent exp (exp <= n.Exp).
func scaleTo(n pgtype.Numeric, exp int32) *big.Int {
	shift := int64(n.Exp - exp)
	if shift == 0 {
		return new(big.Int).Set(n.Int)
	}
	factor := new(big.Int).Exp(bigTen, big.NewInt(shift), nil)
	return new(big.Int).Mul(n.Int, factor)
}

// decimalString formats a normalized numeric without exponent notation.
func decimalString(n pgtype.Numeric) string {
	if n.Exp >= 0 {
		return scaleTo(n, 0).String()
	}

	digits := new(big.Int).Abs(n.Int).String()
	scale := int(-n.Exp)
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}

	s := digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	if n.Int.Sign() < 0 {
		s = "-" + s
	}
	return s
}
