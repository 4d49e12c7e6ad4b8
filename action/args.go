package action

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lexcodex/actloop/framework"
)

// Strategy is one way of turning the raw text between a call's parentheses
// into named arguments.
type Strategy interface {
	Name() string
	Decode(raw string) (framework.Args, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc struct {
	Label string
	Fn    func(raw string) (framework.Args, error)
}

func (s StrategyFunc) Name() string { return s.Label }

func (s StrategyFunc) Decode(raw string) (framework.Args, error) { return s.Fn(raw) }

// LiteralStrategy reads the full argument grammar: numbers, strings,
// booleans, nulls, lists and mappings, as either k=v or "k": v pairs.
var LiteralStrategy Strategy = StrategyFunc{Label: "literal", Fn: parseLiteralArgs}

var quotedPair = regexp.MustCompile(`(\w+)\s*=\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')`)

// QuotedPairsStrategy scavenges key="value" and key='value' pairs and keeps
// them as strings. It succeeds only if at least one pair is found.
var QuotedPairsStrategy Strategy = StrategyFunc{Label: "quoted_pairs", Fn: func(raw string) (framework.Args, error) {
	matches := quotedPair.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return nil, errors.New("no quoted pairs found")
	}
	args := framework.Args{}
	for _, m := range matches {
		key := raw[m[2]:m[3]]
		var value string
		if m[4] >= 0 {
			value = raw[m[4]:m[5]]
		} else {
			value = raw[m[6]:m[7]]
		}
		args[key] = unescapeQuoted(value)
	}
	return args, nil
}}

// EmptyStrategy discards the arguments. It always succeeds and is the last
// resort of a lenient decoder.
var EmptyStrategy Strategy = StrategyFunc{Label: "empty", Fn: func(string) (framework.Args, error) {
	return framework.Args{}, nil
}}

func unescapeQuoted(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"', '\'', '\\':
				b.WriteByte(s[i])
			default:
				b.WriteByte('\\')
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Decoded is the outcome of a Decoder run.
type Decoded struct {
	Args     framework.Args
	Strategy string
	// Lossy is set when non-blank input was discarded by EmptyStrategy.
	Lossy bool
}

// Decoder tries its strategies in order and returns the first success. A
// panicking strategy counts as a failure.
type Decoder struct {
	strategies []Strategy
}

// DecoderOption customizes NewDecoder.
type DecoderOption func(*decoderOptions)

type decoderOptions struct {
	strict bool
}

// WithStrict drops EmptyStrategy so undecodable input surfaces as
// ErrUndecodable instead of an empty argument set.
func WithStrict(strict bool) DecoderOption {
	return func(o *decoderOptions) { o.strict = strict }
}

// NewDecoder returns the standard chain: literal, quoted pairs, then empty
// unless strict.
func NewDecoder(opts ...DecoderOption) *Decoder {
	var o decoderOptions
	for _, opt := range opts {
		opt(&o)
	}
	chain := []Strategy{LiteralStrategy, QuotedPairsStrategy}
	if !o.strict {
		chain = append(chain, EmptyStrategy)
	}
	return &Decoder{strategies: chain}
}

// NewDecoderWith builds a decoder from an explicit chain.
func NewDecoderWith(strategies ...Strategy) *Decoder {
	return &Decoder{strategies: append([]Strategy(nil), strategies...)}
}

// Strategies lists the chain by name.
func (d *Decoder) Strategies() []string {
	names := make([]string, 0, len(d.strategies))
	for _, s := range d.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Decode runs the chain over raw. Blank input always yields empty Args.
func (d *Decoder) Decode(raw string) (Decoded, error) {
	if strings.TrimSpace(raw) == "" {
		return Decoded{Args: framework.Args{}, Strategy: "blank"}, nil
	}
	var errs []error
	for _, s := range d.strategies {
		args, err := safeDecode(s, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if args == nil {
			args = framework.Args{}
		}
		return Decoded{Args: args, Strategy: s.Name(), Lossy: len(args) == 0}, nil
	}
	if len(errs) == 0 {
		return Decoded{}, fmt.Errorf("%w: no strategies configured", ErrUndecodable)
	}
	return Decoded{}, fmt.Errorf("%w: %w", ErrUndecodable, errors.Join(errs...))
}

func safeDecode(s Strategy, raw string) (args framework.Args, err error) {
	defer func() {
		if r := recover(); r != nil {
			args, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Decode(raw)
}
