package action

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/actloop/framework"
)

func TestLiteralArguments(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want framework.Args
	}{
		{"equals pairs", `a=1, b="x"`, framework.Args{"a": int64(1), "b": "x"}},
		{"colon pairs", `"a": 1, "b": 'x'`, framework.Args{"a": int64(1), "b": "x"}},
		{"floats", `x=2.5, y=-1e3, z=.5`, framework.Args{"x": 2.5, "y": -1000.0, "z": 0.5}},
		{"case insensitive bools", `a=True, b=FALSE`, framework.Args{"a": true, "b": false}},
		{"null spellings", `a=None, b=null, c=NIL`, framework.Args{"a": framework.Null, "b": framework.Null, "c": framework.Null}},
		{"list", `numbers=[1, 2.5, 3]`, framework.Args{"numbers": []any{int64(1), 2.5, int64(3)}}},
		{"tuple as list", `numbers=(1, 2,)`, framework.Args{"numbers": []any{int64(1), int64(2)}}},
		{"nested", `opts={"deep": [true, {"k": "v"}]}`, framework.Args{"opts": map[string]any{"deep": []any{true, map[string]any{"k": "v"}}}}},
		{"escapes", `s="line\nnext \"q\" \u00e9"`, framework.Args{"s": "line\nnext \"q\" é"}},
		{"trailing comma", `a=1,`, framework.Args{"a": int64(1)}},
		{"whole mapping", `{"a": 1}`, framework.Args{"a": int64(1)}},
		{"unknown escape kept", `path="C:\dir"`, framework.Args{"path": `C:\dir`}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseLiteralArgs(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLiteralBigIntegers(t *testing.T) {
	got, err := parseLiteralArgs("n=123456789012345678901234567890")
	require.NoError(t, err)
	b, ok := got["n"].(*big.Int)
	require.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", b.String())
}

func TestLiteralRejects(t *testing.T) {
	for _, raw := range []string{
		"5",
		`"positional"`,
		"x",
		"a=hello world",
		"a=1 b=2",
		"a=[1, 2",
		`a="open`,
		"a=1, a=2",
		"a=",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := parseLiteralArgs(raw)
			assert.Error(t, err)
		})
	}
}

func TestDecoderChainOrder(t *testing.T) {
	d := NewDecoder()
	assert.Equal(t, []string{"literal", "quoted_pairs", "empty"}, d.Strategies())
	assert.Equal(t, []string{"literal", "quoted_pairs"}, NewDecoder(WithStrict(true)).Strategies())

	res, err := d.Decode(`a=1`)
	require.NoError(t, err)
	assert.Equal(t, "literal", res.Strategy)
	assert.False(t, res.Lossy)

	res, err = d.Decode(`q='it\'s', other=bare`)
	require.NoError(t, err)
	assert.Equal(t, "quoted_pairs", res.Strategy)
	assert.Equal(t, framework.Args{"q": "it's"}, res.Args)

	res, err = d.Decode(`???`)
	require.NoError(t, err)
	assert.Equal(t, "empty", res.Strategy)
	assert.True(t, res.Lossy)

	res, err = NewDecoder(WithStrict(true)).Decode("   ")
	require.NoError(t, err)
	assert.Empty(t, res.Args)
}

func TestDecoderStrategyPanicFallsThrough(t *testing.T) {
	boom := StrategyFunc{Label: "boom", Fn: func(string) (framework.Args, error) { panic("bad strategy") }}
	d := NewDecoderWith(boom, LiteralStrategy)
	res, err := d.Decode("a=1")
	require.NoError(t, err)
	assert.Equal(t, "literal", res.Strategy)

	_, err = NewDecoderWith(boom).Decode("a=1")
	assert.ErrorIs(t, err, ErrUndecodable)
	assert.ErrorContains(t, err, "bad strategy")

	_, err = NewDecoderWith().Decode("a=1")
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestEncodeRoundTrip(t *testing.T) {
	in := framework.Args{"a": int64(1), "b": "x", "c": true, "d": framework.Null}
	encoded := Encode(in)
	assert.Equal(t, `a=1, b="x", c=true, d=null`, encoded)

	out, err := parseLiteralArgs(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodeRoundTripNested(t *testing.T) {
	in := framework.Args{
		"f":    3.0,
		"list": []any{int64(1), "two", false},
		"map":  map[string]any{"k": framework.Null, "z": -0.25},
		"s":    "tab\there \"quoted\" back\\slash",
	}
	out, err := parseLiteralArgs(Encode(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "3.0", EncodeValue(3.0))
}

func TestEncodeRoundTripNonFinite(t *testing.T) {
	in := framework.Args{"hi": math.Inf(1), "lo": math.Inf(-1), "nan": math.NaN()}
	encoded := Encode(in)
	assert.Equal(t, "hi=inf, lo=-inf, nan=nan", encoded)

	out, err := parseLiteralArgs(encoded)
	require.NoError(t, err)
	assert.Equal(t, math.Inf(1), out["hi"])
	assert.Equal(t, math.Inf(-1), out["lo"])
	nan, ok := out["nan"].(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(nan))

	out, err = parseLiteralArgs("x=INF")
	require.NoError(t, err)
	assert.Equal(t, framework.Args{"x": math.Inf(1)}, out)
}

func TestFormatCall(t *testing.T) {
	assert.Equal(t, "factorial(n=5)", FormatCall("factorial", framework.Args{"n": int64(5)}))
	assert.Equal(t, "current_date()", FormatCall("current_date", nil))
}

func TestFormatResult(t *testing.T) {
	big120 := big.NewInt(120)
	assert.Equal(t, "120", FormatResult(big120))
	assert.Equal(t, "120", FormatResult(int64(120)))
	assert.Equal(t, "3.0", FormatResult(3.0))
	assert.Equal(t, "1.4142135623730951", FormatResult(1.4142135623730951))
	assert.Equal(t, "plain text", FormatResult("plain text"))
	assert.Equal(t, "null", FormatResult(nil))
	assert.Equal(t, "null", FormatResult(framework.Null))
	assert.Equal(t, "[1, 2]", FormatResult([]any{int64(1), int64(2)}))
	assert.Equal(t, "true", FormatResult(true))
}
