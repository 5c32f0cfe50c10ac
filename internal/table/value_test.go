package table

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(t *testing.T, s string) Value {
	t.Helper()
	v, ok := ParseNumber(s)
	require.True(t, ok, "ParseNumber(%q)", s)
	return v
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantText string
	}{
		{name: "empty is null", input: "", wantKind: Null},
		{name: "whitespace is null", input: "   ", wantKind: Null},
		{name: "integer", input: "1200", wantKind: Number, wantText: "1200"},
		{name: "negative decimal", input: "-45.50", wantKind: Number, wantText: "-45.5"},
		{name: "leading decimal point", input: ".99", wantKind: Number, wantText: "0.99"},
		{name: "trailing decimal point", input: "99.", wantKind: Number, wantText: "99"},
		{name: "explicit plus", input: "+7", wantKind: Number, wantText: "7"},
		{name: "scientific notation", input: "1.5e3", wantKind: Number, wantText: "1500"},
		{name: "negative exponent", input: "15E-3", wantKind: Number, wantText: "0.015"},
		{name: "surrounding whitespace", input: " 42 ", wantKind: Number, wantText: "42"},
		{name: "currency is not stripped", input: "$1,000", wantKind: String, wantText: "$1,000"},
		{name: "thousands separator is a string", input: "1,000", wantKind: String, wantText: "1,000"},
		{name: "text", input: "Jane Doe", wantKind: String, wantText: "Jane Doe"},
		{name: "NaN is text", input: "NaN", wantKind: String, wantText: "NaN"},
		{name: "large exponent", input: "1e400", wantKind: Number, wantText: "1" + strings.Repeat("0", 400)},
		{name: "small exponent", input: "1e-400", wantKind: Number, wantText: "0." + strings.Repeat("0", 399) + "1"},
		{name: "exponent at limit", input: "1E1000", wantKind: Number, wantText: "1" + strings.Repeat("0", 1000)},
		{name: "exponent past limit", input: "1e1001", wantKind: String, wantText: "1e1001"},
		{name: "huge exponent", input: "1e300000000", wantKind: String, wantText: "1e300000000"},
		{name: "exponent beyond int32", input: "1e4294967296", wantKind: String, wantText: "1e4294967296"},
		{name: "int32 wrap is not a small number", input: "5e4294967296", wantKind: String, wantText: "5e4294967296"},
		{name: "exponent beyond int64", input: "1e99999999999999999999", wantKind: String, wantText: "1e99999999999999999999"},
		{name: "negative huge exponent", input: "1e-4294967296", wantKind: String, wantText: "1e-4294967296"},
		{name: "trailing zeros fold into exponent", input: "1" + strings.Repeat("0", 999), wantKind: Number, wantText: "1" + strings.Repeat("0", 999)},
		{name: "too many digits", input: strings.Repeat("9", 1001), wantKind: String, wantText: strings.Repeat("9", 1001)},
		{name: "zero with large exponent", input: "0e1500", wantKind: Number, wantText: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseValue(tt.input)
			assert.Equal(t, tt.wantKind, v.Kind())
			assert.Equal(t, tt.wantText, v.String())
		})
	}
}

func TestValue_Sub(t *testing.T) {
	tests := []struct {
		a, b     string
		want     string
		wantSign int
	}{
		{"1200", "1000", "200", 1},
		{"1000", "1200", "-200", -1},
		{"1000", "1000.00", "0", 0},
		{"1200.10", "1000.05", "200.05", 1},
		{"0.3", "0.1", "0.2", 1},
		{"1e3", "999.999", "0.001", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"-"+tt.b, func(t *testing.T) {
			got, ok := num(t, tt.a).Sub(num(t, tt.b))
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.wantSign, got.Sign())
		})
	}
}

func TestValue_SubRequiresNumbers(t *testing.T) {
	_, ok := StringValue("abc").Sub(num(t, "1"))
	assert.False(t, ok)

	_, ok = num(t, "1").Sub(NullValue())
	assert.False(t, ok)
}

func TestValue_EqualAndKey(t *testing.T) {
	assert.True(t, num(t, "1").Equal(num(t, "1.000")))
	assert.Equal(t, num(t, "1").Key(), num(t, "1.0").Key())

	assert.False(t, num(t, "1").Equal(StringValue("1")))
	assert.NotEqual(t, num(t, "1").Key(), StringValue("1").Key())

	assert.True(t, NullValue().Equal(Value{}))
	assert.True(t, StringValue("E-7").Equal(StringValue("E-7")))
}

func TestValue_Float64(t *testing.T) {
	f, ok := num(t, "1234.5").Float64()
	require.True(t, ok)
	assert.InDelta(t, 1234.5, f, 1e-9)

	_, ok = StringValue("x").Float64()
	assert.False(t, ok)
}

func TestValue_MarshalJSON(t *testing.T) {
	row := map[string]Value{
		"n": num(t, "-12.50"),
		"s": StringValue("Alice"),
		"z": NullValue(),
	}

	got, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":-12.5,"s":"Alice","z":null}`, string(got))
}
