package action

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/actloop/framework"
)

func testRegistry() *framework.ToolRegistry {
	reg := framework.NewToolRegistry()
	reg.Register(&framework.FuncTool{
		ToolName: "sqrt",
		Params:   []framework.ToolParameter{{Name: "x", Type: framework.ParamNumber, Required: true}},
		Fn: func(ctx context.Context, args framework.Args) (any, error) {
			return args["x"], nil
		},
	})
	reg.Register(&framework.FuncTool{
		ToolName: "search_internet",
		Params:   []framework.ToolParameter{{Name: "query", Type: framework.ParamString, Required: true}},
		Fn: func(ctx context.Context, args framework.Args) (any, error) {
			q, err := args.String("query")
			if err != nil {
				return nil, err
			}
			return "results for " + q, nil
		},
	})
	reg.Register(&framework.FuncTool{
		ToolName: "current_date",
		Fn: func(ctx context.Context, args framework.Args) (any, error) {
			return "2024-01-01 00:00:00", nil
		},
	})
	reg.Register(&framework.FuncTool{
		ToolName: "factorial",
		Params:   []framework.ToolParameter{{Name: "n", Type: framework.ParamNumber, Required: true}},
		Fn: func(ctx context.Context, args framework.Args) (any, error) {
			n, err := args.Int("n")
			if err != nil {
				return nil, err
			}
			if n < 0 {
				return nil, errors.New("n must be non-negative")
			}
			return new(big.Int).MulRange(1, n), nil
		},
	})
	reg.Register(&framework.FuncTool{
		ToolName: "explode",
		Fn: func(ctx context.Context, args framework.Args) (any, error) {
			panic("kaboom")
		},
	})
	return reg
}

func TestParseActionWithNumericArgument(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	d := p.Parse("<thought>need a root</thought>\n<action>sqrt(x=9)</action>")

	require.Equal(t, KindAction, d.Kind)
	assert.Equal(t, "sqrt", d.Tool)
	assert.Equal(t, framework.Args{"x": int64(9)}, d.Args)
	assert.Equal(t, "need a root", d.Thought)
	assert.Equal(t, "sqrt(x=9)", d.Call)
}

func TestParseActionMixedArguments(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	d := p.Parse(`<action>search_internet(query="go generics", limit=2)</action>`)

	require.Equal(t, KindAction, d.Kind)
	assert.Equal(t, framework.Args{"query": "go generics", "limit": int64(2)}, d.Args)
}

func TestParseUnknownTool(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	d := p.Parse("<action>unknown_tool(x=1)</action>")

	require.Equal(t, KindParseError, d.Kind)
	require.NotNil(t, d.Err)
	assert.ErrorIs(t, d.Err, ErrUnknownTool)
	assert.Equal(t, ReasonUnknownTool, d.Err.Reason)
	assert.Contains(t, d.Err.Error(), "unknown_tool")
	assert.Contains(t, d.Err.Error(), "sqrt")
}

func TestParseMalformedActionNeverPanics(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	inputs := []string{
		"<action>bad format (((</action>",
		"<action></action>",
		"<action>sqrt x=9</action>",
		"<action>(x=1)</action>",
		"<action>sq rt(x=1)</action>",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			d := p.Parse(in)
			require.Equal(t, KindParseError, d.Kind)
			assert.ErrorIs(t, d.Err, ErrMalformedAction)
			assert.Equal(t, ReasonMalformed, d.Err.Reason)
		})
	}
}

func TestParseMalformedCarriesOffendingText(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	d := p.Parse("<action>bad format (((</action>")
	assert.Equal(t, "could not parse action format: bad format (((", d.Err.Error())
}

func TestParsePrecedence(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)

	d := p.Parse("<clarification>which city?</clarification><action>sqrt(x=1)</action>")
	assert.Equal(t, KindClarification, d.Kind)
	assert.Equal(t, "which city?", d.Text)

	d = p.Parse("<action>sqrt(x=4)</action><final_answer>2</final_answer>")
	assert.Equal(t, KindAction, d.Kind)

	d = p.Parse("<thought>done</thought>\n<final_answer>\n  42\n</final_answer>")
	assert.Equal(t, KindFinalAnswer, d.Kind)
	assert.Equal(t, "42", d.Text)
	assert.Equal(t, "done", d.Thought)
	assert.True(t, d.IsTerminal())

	d = p.Parse("just chatting")
	assert.Equal(t, KindParseError, d.Kind)
	assert.ErrorIs(t, d.Err, ErrNoDecision)
	assert.Equal(t, "no valid action or final_answer tag found", d.Err.Error())
	assert.False(t, d.IsTerminal())
}

func TestParseUnclosedTagRunsToEnd(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	d := p.Parse("<thought>x</thought><action>sqrt(x=16)")
	require.Equal(t, KindAction, d.Kind)
	assert.Equal(t, framework.Args{"x": int64(16)}, d.Args)
}

func TestParseIgnoresTagNamesInProse(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)

	d := p.Parse("<thought>I must not use an <action> yet.</thought><final_answer>42</final_answer>")
	require.Equal(t, KindFinalAnswer, d.Kind)
	assert.Equal(t, "42", d.Text)
	assert.Equal(t, "I must not use an <action> yet.", d.Thought)

	d = p.Parse("<thought>ok</thought><final_answer>Use the <clarification> tag when unsure.</final_answer>")
	require.Equal(t, KindFinalAnswer, d.Kind)
	assert.Equal(t, "Use the <clarification> tag when unsure.", d.Text)

	d = p.Parse("<final_answer>Wrap calls as <action>name()</action> next time.</final_answer>")
	require.Equal(t, KindFinalAnswer, d.Kind)
	assert.Equal(t, "Wrap calls as <action>name()</action> next time.", d.Text)
}

func TestSplitTurnUnclosedThought(t *testing.T) {
	turn := SplitTurn("<thought>take the root\n<action>sqrt(x=16)</action>")
	assert.Equal(t, Turn{Thought: "take the root", Tag: TagAction, Body: "sqrt(x=16)"}, turn)

	turn = SplitTurn("<final_answer>ask with <clarification> if unsure")
	assert.Equal(t, TagFinalAnswer, turn.Tag)
	assert.Equal(t, "ask with <clarification> if unsure", turn.Body)

	assert.Empty(t, SplitTurn("<thought>only thinking</thought>").Tag)
}

func TestParseCallIgnoresTrailingText(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	for _, in := range []string{"factorial(n=5);", "factorial(n=5) # compute"} {
		d := p.ParseCall(in)
		require.Equal(t, KindAction, d.Kind, in)
		assert.Equal(t, framework.Args{"n": int64(5)}, d.Args)
		assert.Equal(t, "factorial(n=5)", d.Call)
	}

	d := p.Parse("<action>factorial(n=5);</action>")
	require.Equal(t, KindAction, d.Kind)
	assert.Equal(t, "factorial", d.Tool)
}

func TestParseZeroArgumentAndBlankArguments(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	for _, in := range []string{"current_date()", "current_date(   )", "current_date(\n\t)"} {
		d := p.ParseCall(in)
		require.Equal(t, KindAction, d.Kind, in)
		assert.Empty(t, d.Args)
		assert.NotNil(t, d.Args)
	}
}

func TestParseMultilineArguments(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	d := p.Parse("<action>search_internet(\n  query=\"a (nested) value\"\n)</action>")
	require.Equal(t, KindAction, d.Kind)
	assert.Equal(t, "a (nested) value", d.Args["query"])
}

func TestParseQuotedFallbackKeepsStrings(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	// The bare word makes the literal grammar fail; quoted pairs survive.
	d := p.ParseCall(`search_internet(query="weather", region=europe)`)
	require.Equal(t, KindAction, d.Kind)
	assert.Equal(t, framework.Args{"query": "weather"}, d.Args)
}

// Unparseable non-empty arguments are treated as no arguments at all in the
// lenient mode. The tool then fails on its own missing-argument check.
func TestParseLenientFallbackSwallowsGarbage(t *testing.T) {
	p := NewParser(testRegistry(), nil, nil)
	d := p.ParseCall("search_internet(what is the weather)")
	require.Equal(t, KindAction, d.Kind)
	assert.Empty(t, d.Args)

	obs := NewDispatcher(p.Registry(), nil, nil).Dispatch(context.Background(), "run", d)
	assert.True(t, obs.Failed)
	assert.Contains(t, obs.Text, "error executing tool 'search_internet'")
}

func TestParseStrictRejectsGarbage(t *testing.T) {
	p := NewParser(testRegistry(), NewDecoder(WithStrict(true)), nil)
	d := p.ParseCall("search_internet(what is the weather)")
	require.Equal(t, KindParseError, d.Kind)
	assert.ErrorIs(t, d.Err, ErrUndecodable)
	assert.Equal(t, ReasonBadArguments, d.Err.Reason)
	assert.Equal(t, "what is the weather", d.Err.Input)
}

func TestExtractTagAndWrap(t *testing.T) {
	body, ok := ExtractTag("pre <observation> 120 </observation> post", TagObservation)
	require.True(t, ok)
	assert.Equal(t, "120", body)

	_, ok = ExtractTag("nothing", TagObservation)
	assert.False(t, ok)

	assert.Equal(t, "<question>q</question>", Wrap(TagQuestion, "q"))
}

func ExampleParser_Parse() {
	reg := framework.NewToolRegistry()
	reg.Register(&framework.FuncTool{ToolName: "sqrt"})
	d := NewParser(reg, nil, nil).Parse("<thought>root</thought><action>sqrt(x=9)</action>")
	fmt.Println(d.Kind, d.Tool, Encode(d.Args))
	// Output: action sqrt x=9
}
