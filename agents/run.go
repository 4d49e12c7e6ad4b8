package agents

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/lexcodex/actloop/framework"
)

// Outcome is the result of one guarded run. Err is set for aborted runs;
// FinalAnswer may still carry a message in that case (a failed plan).
type Outcome struct {
	RunID       string
	Mode        string
	FinalAnswer string
	Answered    bool
	Err         error
	State       *framework.AgentState
}

// Snapshot returns the serializable view of the run state.
func (o Outcome) Snapshot() framework.StateSnapshot {
	if o.State == nil {
		return framework.StateSnapshot{RunID: o.RunID}
	}
	return o.State.Snapshot()
}

// Runner owns the collaborators shared between runs. Each Run gets a fresh
// AgentState; only the registry is shared.
type Runner struct {
	Model  framework.LanguageModel
	Tools  *framework.ToolRegistry
	Config *framework.Config
}

// Run answers question with the agent for mode. It never panics.
func (r *Runner) Run(ctx context.Context, mode, question string) Outcome {
	state := framework.NewAgentState(question)
	cfg := r.config(mode)
	agent, err := New(mode, r.Model, r.Tools, cfg)
	if err != nil {
		return Outcome{RunID: state.ID(), Mode: mode, Err: err, State: state}
	}
	out := Run(ctx, agent, state, cfg.Log().With("mode", cfg.Mode))
	out.Mode = cfg.Mode
	return out
}

func (r *Runner) config(mode string) *framework.Config {
	var cfg framework.Config
	if r.Config != nil {
		cfg = *r.Config
	}
	if normalized, err := NormalizeMode(mode); err == nil {
		cfg.Mode = normalized
	}
	return &cfg
}

// Run executes agent against state, converting panics and errors into an
// Outcome. Aborted runs are logged at error level.
func Run(ctx context.Context, agent framework.Agent, state *framework.AgentState, logger *slog.Logger) (out Outcome) {
	if logger == nil {
		logger = slog.Default()
	}
	out = Outcome{RunID: state.ID(), State: state}
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("agent panic: %v", r)
			logger.Error("run aborted", "run", state.ID(), "err", out.Err, "stack", string(debug.Stack()))
		}
		out.FinalAnswer, out.Answered = state.FinalAnswer()
	}()

	logger.Info("run started", "run", state.ID(), "question", state.Question())
	_, err := agent.Execute(ctx, state)
	if err != nil {
		out.Err = err
		logger.Error("run aborted", "run", state.ID(), "err", err)
		return out
	}
	logger.Info("run finished", "run", state.ID(), "turns", state.Iterations())
	return out
}
