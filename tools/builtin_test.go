package tools

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/actloop/framework"
)

func TestRegisterBuiltinsIdempotent(t *testing.T) {
	reg := framework.NewToolRegistry()
	assert.Equal(t, 7, RegisterBuiltins(reg))
	assert.Equal(t, 0, RegisterBuiltins(reg))
	assert.Equal(t, []string{
		"search_internet", "current_date", "factorial", "fibonacci", "sum_numbers", "power", "sqrt",
	}, reg.Names())
}

func TestNewRegistryAllowList(t *testing.T) {
	reg, err := NewRegistry([]string{"f*", "sqrt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"factorial", "fibonacci", "sqrt"}, reg.Names())

	all, err := NewRegistry(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, all.Len())
}

func TestFactorial(t *testing.T) {
	ctx := context.Background()
	res, err := FactorialTool{}.Invoke(ctx, framework.Args{"n": int64(5)})
	require.NoError(t, err)
	assert.Equal(t, "120", res.(*big.Int).String())

	res, err = FactorialTool{}.Invoke(ctx, framework.Args{"n": int64(0)})
	require.NoError(t, err)
	assert.Equal(t, "1", res.(*big.Int).String())

	res, err = FactorialTool{}.Invoke(ctx, framework.Args{"n": int64(25)})
	require.NoError(t, err)
	assert.Equal(t, "15511210043330985984000000", res.(*big.Int).String())

	_, err = FactorialTool{}.Invoke(ctx, framework.Args{"n": int64(-1)})
	assert.EqualError(t, err, "n must be non-negative")

	_, err = FactorialTool{}.Invoke(ctx, framework.Args{"n": 2.5})
	assert.ErrorIs(t, err, framework.ErrWrongType)
}

func TestFibonacci(t *testing.T) {
	want := []string{"0", "1", "1", "2", "3", "5", "8", "13", "21", "34", "55"}
	for n, w := range want {
		res, err := FibonacciTool{}.Invoke(context.Background(), framework.Args{"n": int64(n)})
		require.NoError(t, err)
		assert.Equal(t, w, res.(*big.Int).String(), "F(%d)", n)
	}
	res, err := FibonacciTool{}.Invoke(context.Background(), framework.Args{"n": int64(100)})
	require.NoError(t, err)
	assert.Equal(t, "354224848179261915075", res.(*big.Int).String())

	_, err = FibonacciTool{}.Invoke(context.Background(), framework.Args{"n": int64(maxBigInput + 1)})
	assert.Error(t, err)
}

func TestSumNumbers(t *testing.T) {
	res, err := SumTool{}.Invoke(context.Background(), framework.Args{"numbers": []any{int64(1), int64(2), 3.5}})
	require.NoError(t, err)
	assert.Equal(t, 6.5, res)

	res, err = SumTool{}.Invoke(context.Background(), framework.Args{"numbers": []any{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res)

	_, err = SumTool{}.Invoke(context.Background(), framework.Args{"numbers": "1,2"})
	assert.ErrorIs(t, err, framework.ErrWrongType)
}

func TestPowerAndSqrt(t *testing.T) {
	ctx := context.Background()
	res, err := PowerTool{}.Invoke(ctx, framework.Args{"base": int64(2), "exponent": int64(10)})
	require.NoError(t, err)
	assert.Equal(t, 1024.0, res)

	_, err = PowerTool{}.Invoke(ctx, framework.Args{"base": -8.0, "exponent": 0.5})
	assert.EqualError(t, err, "math domain error")

	_, err = PowerTool{}.Invoke(ctx, framework.Args{"base": 10.0, "exponent": 400.0})
	assert.EqualError(t, err, "math range error")

	res, err = SqrtTool{}.Invoke(ctx, framework.Args{"x": int64(9)})
	require.NoError(t, err)
	assert.Equal(t, 3.0, res)

	_, err = SqrtTool{}.Invoke(ctx, framework.Args{"x": -4.0})
	assert.EqualError(t, err, "x must be non-negative")
}

func TestCurrentDateUsesClock(t *testing.T) {
	fixed := time.Date(2024, 1, 28, 9, 30, 0, 0, time.Local)
	tool := &DateTool{Now: func() time.Time { return fixed }}
	res, err := tool.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-28 09:30:00", res)
}

func TestSearchInternet(t *testing.T) {
	tool := &SearchTool{}
	res, err := tool.Invoke(context.Background(), framework.Args{"query": "Sinner hometown"})
	require.NoError(t, err)
	assert.Contains(t, res, "Sesto")
	assert.Contains(t, res, `"Sinner hometown"`)

	res, err = tool.Invoke(context.Background(), framework.Args{"query": "australian open winner"})
	require.NoError(t, err)
	assert.Contains(t, res, "Australian Open men's champion is Sinner")

	custom := &SearchTool{Corpus: map[string]string{"go": "Go is a language."}}
	res, err = custom.Invoke(context.Background(), framework.Args{"query": "what is Go"})
	require.NoError(t, err)
	assert.Contains(t, res, "Go is a language.")

	_, err = tool.Invoke(context.Background(), framework.Args{})
	assert.ErrorIs(t, err, framework.ErrMissingArgument)
}

func TestSearchInternetTiesAreDeterministic(t *testing.T) {
	tool := &SearchTool{Corpus: map[string]string{
		"go fast": "fast",
		"go code": "code",
		"go":      "short",
	}}
	for range 50 {
		assert.Equal(t, "code", tool.lookup("Go code that runs fast"))
	}
}
