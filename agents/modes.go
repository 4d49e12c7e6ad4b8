package agents

import (
	"fmt"
	"strings"

	"github.com/lexcodex/actloop/agents/pattern"
	"github.com/lexcodex/actloop/framework"
)

// ModeProfile documents an orchestration policy for the CLI and API.
type ModeProfile struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

const defaultMode = framework.ModeReAct

var modeProfiles = []ModeProfile{
	{
		Name:        framework.ModeReAct,
		Title:       "ReAct",
		Description: "Interleaves reasoning turns and single tool calls until the model gives a final answer.",
	},
	{
		Name:        framework.ModePlan,
		Title:       "Plan-Execute",
		Description: "Plans every tool call up front, runs them in order, then answers from the observations.",
	},
}

// Modes lists the supported policies, default first.
func Modes() []ModeProfile {
	return append([]ModeProfile(nil), modeProfiles...)
}

// NormalizeMode maps aliases and the empty string onto a known mode.
func NormalizeMode(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "":
		return defaultMode, nil
	case framework.ModeReAct:
		return framework.ModeReAct, nil
	case framework.ModePlan, "plan-execute", "plan_execute", "planner":
		return framework.ModePlan, nil
	}
	return "", fmt.Errorf("unknown agent mode %q (want %s or %s)", mode, framework.ModeReAct, framework.ModePlan)
}

// New constructs and initializes the agent for mode.
func New(mode string, model framework.LanguageModel, tools *framework.ToolRegistry, cfg *framework.Config) (framework.Agent, error) {
	name, err := NormalizeMode(mode)
	if err != nil {
		return nil, err
	}
	var agent framework.Agent
	switch name {
	case framework.ModePlan:
		agent = &pattern.PlanExecuteAgent{Model: model, Tools: tools}
	default:
		agent = &pattern.ReActAgent{Model: model, Tools: tools}
	}
	if err := agent.Initialize(cfg); err != nil {
		return nil, err
	}
	return agent, nil
}
