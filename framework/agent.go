package framework

import (
	"context"
	"log/slog"
)

// Agent modes selectable from configuration.
const (
	ModeReAct = "react"
	ModePlan  = "plan"
)

// Config contains per-agent configuration knobs supplied by the server or CLI.
// Agents store the pointer passed to Initialize so graph-building logic can
// reference shared defaults such as the model name or iteration cap.
type Config struct {
	Name          string
	Mode          string
	MaxIterations int
	Model         string
	Temperature   float64
	MaxTokens     int
	StrictArgs    bool
	Telemetry     Telemetry
	Logger        *slog.Logger
}

// LLMOptions builds per-call model options from the configuration.
func (c *Config) LLMOptions() *LLMOptions {
	if c == nil {
		return &LLMOptions{}
	}
	return &LLMOptions{
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}

// Log returns the configured logger or the process default.
func (c *Config) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Result captures the result of a node or agent execution.
type Result struct {
	NodeID  string         `json:"node_id"`
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   error          `json:"-"`
}

// Agent is implemented by both orchestration policies. BuildGraph is exposed
// so callers can inspect the workflow before calling Execute.
type Agent interface {
	Initialize(config *Config) error
	Execute(ctx context.Context, state *AgentState) (*Result, error)
	BuildGraph() (*Graph, error)
}
