package pattern

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrPlanDecode is returned when the planner output is not a JSON list of
// action strings.
var ErrPlanDecode = errors.New("planner did not return a valid JSON list")

var (
	fenceOpen  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	fenceClose = regexp.MustCompile("\r?\n?```$")
)

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ExtractJSONArray returns the outermost JSON array inside a string
// response, or an empty string when no brackets are present.
func ExtractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end >= start {
		return raw[start : end+1]
	}
	return ""
}

// ExtractPlan decodes planner output into its ordered action strings. The
// fenced body is tried first, then the outermost bracketed span.
func ExtractPlan(raw string) ([]string, error) {
	body := StripCodeFence(raw)
	steps, err := decodeSteps(body)
	if err == nil {
		return steps, nil
	}
	if inner := ExtractJSONArray(body); inner != "" && inner != body {
		if steps, innerErr := decodeSteps(inner); innerErr == nil {
			return steps, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrPlanDecode, err)
}

func decodeSteps(body string) ([]string, error) {
	var steps []string
	if err := json.Unmarshal([]byte(body), &steps); err != nil {
		return nil, err
	}
	if steps == nil {
		return nil, errors.New("plan is null")
	}
	return steps, nil
}
