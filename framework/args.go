package framework

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// Args carries the decoded named arguments of a tool call. Values are one of
// string, int64, float64, bool, Null, []any, map[string]any or *big.Int for
// integers that overflow int64.
type Args map[string]any

// nullValue is the explicit absent-value marker produced for null/None tokens.
type nullValue struct{}

func (nullValue) String() string { return "null" }

func (nullValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Null marks an argument that was passed explicitly as null. It is distinct
// from the key being absent from Args.
var Null any = nullValue{}

// IsNull reports whether v is the Null marker.
func IsNull(v any) bool {
	_, ok := v.(nullValue)
	return ok
}

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrWrongType       = errors.New("wrong argument type")
)

// Has reports whether name was supplied, including explicit nulls.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Args) lookup(name string) (any, error) {
	v, ok := a[name]
	if !ok || IsNull(v) {
		return nil, fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}
	return v, nil
}

// String returns a string argument.
func (a Args) String(name string) (string, error) {
	v, err := a.lookup(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrWrongType, name, v)
	}
	return s, nil
}

// Int returns an integer argument. Floats with no fractional part are
// accepted since models frequently emit 5.0 for 5.
func (a Args) Int(name string) (int64, error) {
	v, err := a.lookup(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
			return int64(n), nil
		}
	case *big.Int:
		if n.IsInt64() {
			return n.Int64(), nil
		}
		return 0, fmt.Errorf("%w: %s is out of range", ErrWrongType, name)
	}
	return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrWrongType, name, v)
}

// Float returns a numeric argument as float64.
func (a Args) Float(name string) (float64, error) {
	v, err := a.lookup(name)
	if err != nil {
		return 0, err
	}
	f, ok := ToFloat(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrWrongType, name, v)
	}
	return f, nil
}

// Bool returns a boolean argument.
func (a Args) Bool(name string) (bool, error) {
	v, err := a.lookup(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrWrongType, name, v)
	}
	return b, nil
}

// Floats returns a list argument whose elements are all numeric.
func (a Args) Floats(name string) ([]float64, error) {
	v, err := a.lookup(name)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list, got %T", ErrWrongType, name, v)
	}
	out := make([]float64, 0, len(list))
	for i, item := range list {
		f, ok := ToFloat(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be a number, got %T", ErrWrongType, name, i, item)
		}
		out = append(out, f)
	}
	return out, nil
}

// ToFloat converts any of the numeric argument representations to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	}
	return 0, false
}
