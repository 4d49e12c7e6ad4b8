package action

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/lexcodex/actloop/framework"
)

// Encode renders args in the canonical k=v form the literal grammar reads
// back, with keys sorted: a=1, b="x", c=true, d=null.
func Encode(args framework.Args) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+EncodeValue(args[k]))
	}
	return strings.Join(parts, ", ")
}

// FormatCall renders a complete action line, e.g. factorial(n=5).
func FormatCall(tool string, args framework.Args) string {
	return tool + "(" + Encode(args) + ")"
}

// EncodeValue renders a single argument value as a literal.
func EncodeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case *big.Int:
		return x.String()
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, EncodeValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, quote(k)+": "+EncodeValue(x[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case framework.Args:
		return EncodeValue(map[string]any(x))
	}
	if framework.IsNull(v) {
		return "null"
	}
	return quote(fmt.Sprint(v))
}

// FormatResult turns a tool's return value into observation text. Strings
// pass through untouched; everything else uses the literal form.
func FormatResult(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	}
	return EncodeValue(v)
}

// formatFloat always keeps a decimal point or exponent so the value reads
// back as a float: 3.0 not 3.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
