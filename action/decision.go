// Package action implements the text protocol between a model and its tools:
// it parses tagged model output into a Decision, decodes call arguments
// through an ordered chain of strategies, and dispatches actions against a
// framework.ToolRegistry.
package action

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lexcodex/actloop/framework"
)

// Kind tags the variant held by a Decision.
type Kind string

const (
	KindAction        Kind = "action"
	KindFinalAnswer   Kind = "final_answer"
	KindClarification Kind = "clarification"
	KindParseError    Kind = "parse_error"
)

// Decision is the structured reading of one model turn. Exactly one Kind is
// set; the fields that apply depend on it:
//
//	action         Tool, Args, Call
//	final_answer   Text
//	clarification  Text
//	parse_error    Err, Text (the offending input)
type Decision struct {
	Kind    Kind           `json:"kind"`
	Thought string         `json:"thought,omitempty"`
	Tool    string         `json:"tool,omitempty"`
	Args    framework.Args `json:"args,omitempty"`
	Call    string         `json:"call,omitempty"`
	Text    string         `json:"text,omitempty"`
	Err     *ParseError    `json:"error,omitempty"`
}

// IsTerminal reports whether the decision ends a reasoning loop.
func (d Decision) IsTerminal() bool {
	return d.Kind == KindFinalAnswer || d.Kind == KindClarification
}

// Parse error reasons.
const (
	ReasonMalformed    = "could not parse action format"
	ReasonUnknownTool  = "tool does not exist"
	ReasonBadArguments = "argument parsing error"
	ReasonNoTag        = "no valid action or final_answer tag found"
)

var (
	ErrMalformedAction = errors.New(ReasonMalformed)
	ErrUnknownTool     = errors.New(ReasonUnknownTool)
	ErrUndecodable     = errors.New(ReasonBadArguments)
	ErrNoDecision      = errors.New(ReasonNoTag)
)

// ParseError explains why model output could not be turned into an action.
// It unwraps to one of the Err* sentinels above.
type ParseError struct {
	Reason string   `json:"reason"`
	Input  string   `json:"input,omitempty"`
	Tool   string   `json:"tool,omitempty"`
	Known  []string `json:"known_tools,omitempty"`
	Cause  string   `json:"cause,omitempty"`
	err    error
}

func (e *ParseError) Error() string {
	switch e.Reason {
	case ReasonMalformed:
		return fmt.Sprintf("%s: %s", e.Reason, e.Input)
	case ReasonUnknownTool:
		return fmt.Sprintf("%s: '%s'. available tools: %s", e.Reason, e.Tool, strings.Join(e.Known, ", "))
	case ReasonBadArguments:
		if e.Cause != "" {
			return fmt.Sprintf("%s: %s (%s)", e.Reason, e.Input, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Reason, e.Input)
	default:
		return e.Reason
	}
}

func (e *ParseError) Unwrap() error { return e.err }

func parseFailure(thought, input string, pe *ParseError) Decision {
	return Decision{Kind: KindParseError, Thought: thought, Text: input, Err: pe}
}

func malformed(thought, input string) Decision {
	return parseFailure(thought, input, &ParseError{Reason: ReasonMalformed, Input: input, err: ErrMalformedAction})
}

func unknownTool(thought, input, tool string, known []string) Decision {
	return parseFailure(thought, input, &ParseError{
		Reason: ReasonUnknownTool,
		Input:  input,
		Tool:   tool,
		Known:  known,
		err:    ErrUnknownTool,
	})
}

func badArguments(thought, input, raw string, cause error) Decision {
	pe := &ParseError{Reason: ReasonBadArguments, Input: raw, err: ErrUndecodable}
	if cause != nil {
		pe.Cause = cause.Error()
	}
	return parseFailure(thought, input, pe)
}

func noDecision(thought, input string) Decision {
	return parseFailure(thought, input, &ParseError{Reason: ReasonNoTag, err: ErrNoDecision})
}
