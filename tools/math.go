package tools

import (
	"context"
	"errors"
	"math"
	"math/big"

	"github.com/lexcodex/actloop/framework"
)

// maxBigInput bounds factorial and fibonacci so a stray n=1e9 cannot pin
// the CPU for minutes.
const maxBigInput = 100000

var (
	errNegativeN = errors.New("n must be non-negative")
	errNegativeX = errors.New("x must be non-negative")
	errTooLarge  = errors.New("n is too large")
	errDomain    = errors.New("math domain error")
	errRange     = errors.New("math range error")
)

func nonNegativeN(args framework.Args) (int64, error) {
	n, err := args.Int("n")
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNegativeN
	}
	if n > maxBigInput {
		return 0, errTooLarge
	}
	return n, nil
}

// FactorialTool computes n! exactly.
type FactorialTool struct{}

func (FactorialTool) Name() string { return "factorial" }
func (FactorialTool) Description() string {
	return "Compute n! (factorial). n must be a non-negative integer."
}
func (FactorialTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{{Name: "n", Type: framework.ParamNumber, Required: true}}
}

func (FactorialTool) Invoke(ctx context.Context, args framework.Args) (any, error) {
	n, err := nonNegativeN(args)
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return big.NewInt(1), nil
	}
	return new(big.Int).MulRange(1, n), nil
}

// FibonacciTool computes F(n) with F(0)=0 and F(1)=1.
type FibonacciTool struct{}

func (FibonacciTool) Name() string { return "fibonacci" }
func (FibonacciTool) Description() string {
	return "Compute the nth Fibonacci number (F0=0, F1=1). n must be a non-negative integer."
}
func (FibonacciTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{{Name: "n", Type: framework.ParamNumber, Required: true}}
}

func (FibonacciTool) Invoke(ctx context.Context, args framework.Args) (any, error) {
	n, err := nonNegativeN(args)
	if err != nil {
		return nil, err
	}
	f, _ := fibPair(uint64(n))
	return f, nil
}

// fibPair returns F(k) and F(k+1) by fast doubling:
// F(2m) = F(m)(2F(m+1) - F(m)), F(2m+1) = F(m)^2 + F(m+1)^2.
func fibPair(k uint64) (*big.Int, *big.Int) {
	if k == 0 {
		return big.NewInt(0), big.NewInt(1)
	}
	a, b := fibPair(k / 2)
	c := new(big.Int).Lsh(b, 1)
	c.Sub(c, a)
	c.Mul(c, a)
	d := new(big.Int).Mul(a, a)
	d.Add(d, new(big.Int).Mul(b, b))
	if k%2 == 0 {
		return c, d
	}
	return d, c.Add(c, d)
}

// SumTool adds a list of numbers with compensated summation.
type SumTool struct{}

func (SumTool) Name() string { return "sum_numbers" }
func (SumTool) Description() string {
	return "Sum a list of numbers. Example: sum_numbers(numbers=[1,2,3.5])"
}
func (SumTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{{Name: "numbers", Type: framework.ParamList, Required: true}}
}

func (SumTool) Invoke(ctx context.Context, args framework.Args) (any, error) {
	nums, err := args.Floats("numbers")
	if err != nil {
		return nil, err
	}
	return neumaierSum(nums), nil
}

func neumaierSum(nums []float64) float64 {
	var sum, comp float64
	for _, x := range nums {
		t := sum + x
		if math.Abs(sum) >= math.Abs(x) {
			comp += (sum - t) + x
		} else {
			comp += (x - t) + sum
		}
		sum = t
	}
	return sum + comp
}

// PowerTool computes base ** exponent.
type PowerTool struct{}

func (PowerTool) Name() string        { return "power" }
func (PowerTool) Description() string { return "Compute base ** exponent (supports floats)." }
func (PowerTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{
		{Name: "base", Type: framework.ParamNumber, Required: true},
		{Name: "exponent", Type: framework.ParamNumber, Required: true},
	}
}

func (PowerTool) Invoke(ctx context.Context, args framework.Args) (any, error) {
	base, err := args.Float("base")
	if err != nil {
		return nil, err
	}
	exp, err := args.Float("exponent")
	if err != nil {
		return nil, err
	}
	if base == 0 && exp < 0 {
		return nil, errDomain
	}
	res := math.Pow(base, exp)
	switch {
	case math.IsNaN(res) && !math.IsNaN(base) && !math.IsNaN(exp):
		return nil, errDomain
	case math.IsInf(res, 0) && !math.IsInf(base, 0) && !math.IsInf(exp, 0):
		return nil, errRange
	}
	return res, nil
}

// SqrtTool computes the square root of a non-negative number.
type SqrtTool struct{}

func (SqrtTool) Name() string { return "sqrt" }
func (SqrtTool) Description() string {
	return "Compute the square root of x (x must be non-negative)."
}
func (SqrtTool) Parameters() []framework.ToolParameter {
	return []framework.ToolParameter{{Name: "x", Type: framework.ParamNumber, Required: true}}
}

func (SqrtTool) Invoke(ctx context.Context, args framework.Args) (any, error) {
	x, err := args.Float("x")
	if err != nil {
		return nil, err
	}
	if x < 0 {
		return nil, errNegativeX
	}
	return math.Sqrt(x), nil
}
