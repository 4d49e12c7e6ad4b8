package pattern

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexcodex/actloop/action"
	"github.com/lexcodex/actloop/framework"
)

// PlanExecuteAgent asks the model for a complete plan up front, runs every
// step in order, then asks the model once more to answer from the collected
// observations. A plan that does not decode ends the run immediately with the
// raw planner output surfaced as the final answer.
type PlanExecuteAgent struct {
	Model  framework.LanguageModel
	Tools  *framework.ToolRegistry
	Config *framework.Config

	parser     *action.Parser
	dispatcher *action.Dispatcher
}

// Initialize configures the agent.
func (a *PlanExecuteAgent) Initialize(cfg *framework.Config) error {
	if cfg == nil {
		cfg = &framework.Config{}
	}
	a.Config = cfg
	if a.Tools == nil {
		a.Tools = framework.NewToolRegistry()
	}
	logger := cfg.Log().With("agent", "plan")
	a.parser = action.NewParser(a.Tools, action.NewDecoder(action.WithStrict(cfg.StrictArgs)), logger)
	a.dispatcher = action.NewDispatcher(a.Tools, logger, cfg.Telemetry)
	return nil
}

// Execute runs the planner workflow. A plan decode failure is reported as an
// error wrapping ErrPlanDecode after the final answer has been recorded.
func (a *PlanExecuteAgent) Execute(ctx context.Context, state *framework.AgentState) (*framework.Result, error) {
	if a.parser == nil {
		if err := a.Initialize(a.Config); err != nil {
			return nil, err
		}
	}
	graph, plan, err := a.buildGraph()
	if err != nil {
		return nil, err
	}
	if a.Config.Telemetry != nil {
		graph.SetTelemetry(a.Config.Telemetry)
	}
	result, err := graph.Execute(ctx, state)
	if err != nil {
		return result, err
	}
	if plan.decodeErr != nil {
		return result, plan.decodeErr
	}
	return result, nil
}

// BuildGraph builds the plan → execute → answer pipeline with a plan → done
// edge taken when the plan fails to decode.
func (a *PlanExecuteAgent) BuildGraph() (*framework.Graph, error) {
	graph, _, err := a.buildGraph()
	return graph, err
}

func (a *PlanExecuteAgent) buildGraph() (*framework.Graph, *planNode, error) {
	if a.Model == nil {
		return nil, nil, fmt.Errorf("plan-execute agent missing model")
	}
	if a.parser == nil {
		return nil, nil, fmt.Errorf("plan-execute agent not initialized")
	}
	graph := framework.NewGraph()
	plan := &planNode{id: "plan", agent: a}
	exec := &executeNode{id: "execute", agent: a}
	answer := &answerNode{id: "answer", agent: a}
	done := framework.NewTerminalNode("done")

	for _, node := range []framework.Node{plan, exec, answer, done} {
		if err := graph.AddNode(node); err != nil {
			return nil, nil, err
		}
	}
	if err := graph.SetStart(plan.ID()); err != nil {
		return nil, nil, err
	}
	planned := func(result *framework.Result, state *framework.AgentState) bool {
		_, answered := state.FinalAnswer()
		return !answered
	}
	failed := func(result *framework.Result, state *framework.AgentState) bool {
		return !planned(result, state)
	}
	if err := graph.AddEdge(plan.ID(), exec.ID(), planned); err != nil {
		return nil, nil, err
	}
	if err := graph.AddEdge(plan.ID(), done.ID(), failed); err != nil {
		return nil, nil, err
	}
	if err := graph.AddEdge(exec.ID(), answer.ID(), nil); err != nil {
		return nil, nil, err
	}
	if err := graph.AddEdge(answer.ID(), done.ID(), nil); err != nil {
		return nil, nil, err
	}
	return graph, plan, nil
}

func (a *PlanExecuteAgent) options() *framework.LLMOptions {
	return a.Config.LLMOptions()
}

type planNode struct {
	id        string
	agent     *PlanExecuteAgent
	decodeErr error
}

func (n *planNode) ID() string               { return n.id }
func (n *planNode) Type() framework.NodeType { return framework.NodeTypeLLM }

// Execute prompts the model for a JSON list of action strings.
func (n *planNode) Execute(ctx context.Context, state *framework.AgentState) (*framework.Result, error) {
	state.EnterPhase(framework.PhasePlanning)
	logger := n.agent.Config.Log()
	prompt, err := PlannerPrompt(n.agent.Tools.All(), state.Question())
	if err != nil {
		return nil, err
	}
	state.AppendTurn(framework.RoleHuman, prompt)
	resp, err := n.agent.Model.Generate(ctx, prompt, n.agent.options())
	if err != nil {
		return nil, fmt.Errorf("planner model call: %w", err)
	}
	raw := strings.TrimSpace(resp.Text)
	state.AppendTurn(framework.RoleAI, raw)

	steps, err := ExtractPlan(raw)
	if err != nil {
		n.decodeErr = err
		msg := fmt.Sprintf("Error: Planner did not return a valid JSON list. Output: %s", raw)
		logger.Error("plan decode failed", "run", state.ID(), "err", err)
		if setErr := state.SetFinalAnswer(msg); setErr != nil {
			return nil, setErr
		}
		return &framework.Result{NodeID: n.id, Success: false, Error: err}, nil
	}
	if err := state.SetPlan(steps); err != nil {
		return nil, err
	}
	logger.Info("plan generated", "run", state.ID(), "steps", len(steps))
	return &framework.Result{NodeID: n.id, Success: true, Data: map[string]any{"plan": steps}}, nil
}

type executeNode struct {
	id    string
	agent *PlanExecuteAgent
}

func (n *executeNode) ID() string               { return n.id }
func (n *executeNode) Type() framework.NodeType { return framework.NodeTypeTool }

// Execute dispatches every plan step in order. Step failures become
// observations and never stop the loop.
func (n *executeNode) Execute(ctx context.Context, state *framework.AgentState) (*framework.Result, error) {
	state.EnterPhase(framework.PhaseExecuting)
	logger := n.agent.Config.Log()
	plan := state.Plan()
	failures := 0
	for i, step := range plan {
		logger.Info("executing plan step", "run", state.ID(), "step", i+1, "of", len(plan), "call", step)
		text, ok := n.runStep(ctx, state.ID(), step)
		if !ok {
			failures++
			logger.Warn("plan step failed", "run", state.ID(), "step", i+1, "observation", text)
		}
		state.AppendObservation(text)
	}
	return &framework.Result{
		NodeID:  n.id,
		Success: true,
		Data:    map[string]any{"steps": len(plan), "failures": failures},
	}, nil
}

func (n *executeNode) runStep(ctx context.Context, taskID, step string) (string, bool) {
	decision := n.agent.parser.ParseCall(step)
	if decision.Kind == action.KindParseError {
		switch decision.Err.Reason {
		case action.ReasonMalformed:
			return fmt.Sprintf("Error: Could not parse action format: %s", step), false
		case action.ReasonUnknownTool:
			return fmt.Sprintf("Error: Tool '%s' not found.", decision.Err.Tool), false
		default:
			return fmt.Sprintf("Error: %s", decision.Err), false
		}
	}
	obs := n.agent.dispatcher.Dispatch(ctx, taskID, decision)
	return obs.Text, !obs.Failed
}

type answerNode struct {
	id    string
	agent *PlanExecuteAgent
}

func (n *answerNode) ID() string               { return n.id }
func (n *answerNode) Type() framework.NodeType { return framework.NodeTypeLLM }

// Execute synthesizes the final answer from the observation log.
func (n *answerNode) Execute(ctx context.Context, state *framework.AgentState) (*framework.Result, error) {
	state.EnterPhase(framework.PhaseAnswering)
	prompt, err := FinalAnswerPrompt(state.Question(), state.Observations())
	if err != nil {
		return nil, err
	}
	state.AppendTurn(framework.RoleHuman, prompt)
	resp, err := n.agent.Model.Generate(ctx, prompt, n.agent.options())
	if err != nil {
		return nil, fmt.Errorf("final answer model call: %w", err)
	}
	answer := strings.TrimSpace(resp.Text)
	state.AppendTurn(framework.RoleAI, answer)
	if err := state.SetFinalAnswer(answer); err != nil {
		return nil, err
	}
	n.agent.Config.Log().Info("final answer", "run", state.ID(), "answer", answer)
	return &framework.Result{NodeID: n.id, Success: true, Data: map[string]any{"answer": answer}}, nil
}
