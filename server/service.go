// Package server exposes the agent runtime over HTTP and JSON-RPC 2.0. Both
// transports share one Service; every run gets a fresh state.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lexcodex/actloop/action"
	"github.com/lexcodex/actloop/agents"
	"github.com/lexcodex/actloop/framework"
)

// ErrEmptyQuestion is returned for run requests without a question.
var ErrEmptyQuestion = errors.New("question must not be empty")

// RunRequest asks for one agent run.
type RunRequest struct {
	Question string `json:"question"`
	Mode     string `json:"mode,omitempty"`
}

// RunResponse reports a finished or aborted run.
type RunResponse struct {
	RunID        string           `json:"run_id"`
	Mode         string           `json:"mode,omitempty"`
	FinalAnswer  string           `json:"final_answer,omitempty"`
	Answered     bool             `json:"answered"`
	Error        string           `json:"error,omitempty"`
	History      []framework.Turn `json:"history,omitempty"`
	Observations []string         `json:"observations,omitempty"`
	Plan         []string         `json:"plan,omitempty"`
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Parameters  []framework.ToolParameter `json:"parameters"`
}

// DispatchResult pairs the parsed call with its observation. Observation is
// nil when the call did not parse.
type DispatchResult struct {
	Decision    action.Decision     `json:"decision"`
	Observation *action.Observation `json:"observation,omitempty"`
}

// Service implements the operations shared by the transports.
type Service struct {
	Runner     *agents.Runner
	Parser     *action.Parser
	Dispatcher *action.Dispatcher
	Logger     *slog.Logger
}

// NewService wires a parser and dispatcher over the runner's registry.
func NewService(runner *agents.Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		strict    bool
		telemetry framework.Telemetry
	)
	if runner.Config != nil {
		strict = runner.Config.StrictArgs
		telemetry = runner.Config.Telemetry
	}
	return &Service{
		Runner:     runner,
		Parser:     action.NewParser(runner.Tools, action.NewDecoder(action.WithStrict(strict)), logger),
		Dispatcher: action.NewDispatcher(runner.Tools, logger, telemetry),
		Logger:     logger,
	}
}

// Run answers one question. Aborted runs are reported in the response, not
// as an error.
func (s *Service) Run(ctx context.Context, req RunRequest) (RunResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return RunResponse{}, ErrEmptyQuestion
	}
	out := s.Runner.Run(ctx, req.Mode, req.Question)
	snap := out.Snapshot()
	resp := RunResponse{
		RunID:        out.RunID,
		Mode:         out.Mode,
		FinalAnswer:  out.FinalAnswer,
		Answered:     out.Answered,
		History:      snap.History,
		Observations: snap.Observations,
		Plan:         snap.Plan,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	return resp, nil
}

// Tools lists the registry in registration order.
func (s *Service) Tools() []ToolInfo {
	all := s.Parser.Registry().All()
	out := make([]ToolInfo, 0, len(all))
	for _, t := range all {
		params := t.Parameters()
		if params == nil {
			params = []framework.ToolParameter{}
		}
		out = append(out, ToolInfo{Name: t.Name(), Description: t.Description(), Parameters: params})
	}
	return out
}

// Parse reads one model turn.
func (s *Service) Parse(text string) action.Decision {
	return s.Parser.Parse(text)
}

// Dispatch parses a bare call such as `sqrt(x=9)` and runs it.
func (s *Service) Dispatch(ctx context.Context, call string) DispatchResult {
	decision := s.Parser.ParseCall(call)
	if decision.Kind != action.KindAction {
		return DispatchResult{Decision: decision}
	}
	obs := s.Dispatcher.Dispatch(ctx, "", decision)
	return DispatchResult{Decision: decision, Observation: &obs}
}
