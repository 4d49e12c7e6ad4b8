package pattern

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexcodex/actloop/action"
	"github.com/lexcodex/actloop/framework"
)

// DefaultMaxIterations bounds the reasoning loop when the config leaves it
// unset.
const DefaultMaxIterations = 10

// ErrIterationLimitExceeded aborts a ReAct run that would need more
// reasoning turns than configured.
var ErrIterationLimitExceeded = errors.New("iteration limit exceeded")

// ReActAgent implements the Reason+Act pattern over the tagged text
// protocol: each reasoning turn yields one decision, actions are dispatched
// and their observations fed back as the next conversational turn.
type ReActAgent struct {
	Model  framework.LanguageModel
	Tools  *framework.ToolRegistry
	Config *framework.Config

	maxIterations int
	parser        *action.Parser
	dispatcher    *action.Dispatcher
}

// Initialize wires configuration.
func (a *ReActAgent) Initialize(config *framework.Config) error {
	if config == nil {
		config = &framework.Config{}
	}
	a.Config = config
	if config.MaxIterations <= 0 {
		a.maxIterations = DefaultMaxIterations
	} else {
		a.maxIterations = config.MaxIterations
	}
	if a.Tools == nil {
		a.Tools = framework.NewToolRegistry()
	}
	logger := config.Log().With("agent", "react")
	a.parser = action.NewParser(a.Tools, action.NewDecoder(action.WithStrict(config.StrictArgs)), logger)
	a.dispatcher = action.NewDispatcher(a.Tools, logger, config.Telemetry)
	return nil
}

// MaxIterations reports the reasoning-turn ceiling in effect.
func (a *ReActAgent) MaxIterations() int { return a.maxIterations }

// Execute runs the task through the workflow graph.
func (a *ReActAgent) Execute(ctx context.Context, state *framework.AgentState) (*framework.Result, error) {
	if a.parser == nil {
		if err := a.Initialize(a.Config); err != nil {
			return nil, err
		}
	}
	graph, err := a.BuildGraph()
	if err != nil {
		return nil, err
	}
	if cfg := a.Config; cfg != nil && cfg.Telemetry != nil {
		graph.SetTelemetry(cfg.Telemetry)
	}
	return graph.Execute(ctx, state)
}

// BuildGraph constructs the ReAct workflow:
//
//	reason -> act     on an action
//	reason -> reason  on a parse error, after feeding the error back
//	reason -> done    on a final answer or clarification
//	act    -> reason
func (a *ReActAgent) BuildGraph() (*framework.Graph, error) {
	if a.Model == nil {
		return nil, fmt.Errorf("react agent missing language model")
	}
	if a.parser == nil {
		return nil, fmt.Errorf("react agent not initialized")
	}
	run := &reactRun{}
	graph := framework.NewGraph()
	// The reason node is entered once more than the ceiling so it can abort.
	graph.SetMaxNodeVisits(a.maxIterations + 2)
	reason := &reactReasonNode{id: "reason", agent: a, run: run}
	act := &reactActNode{id: "act", agent: a, run: run}
	done := framework.NewTerminalNode("done")

	for _, node := range []framework.Node{reason, act, done} {
		if err := graph.AddNode(node); err != nil {
			return nil, err
		}
	}
	if err := graph.SetStart(reason.ID()); err != nil {
		return nil, err
	}
	if err := graph.AddEdge(reason.ID(), act.ID(), decisionIs(action.KindAction)); err != nil {
		return nil, err
	}
	if err := graph.AddEdge(reason.ID(), reason.ID(), decisionIs(action.KindParseError)); err != nil {
		return nil, err
	}
	if err := graph.AddEdge(reason.ID(), done.ID(), decisionIs(action.KindFinalAnswer, action.KindClarification)); err != nil {
		return nil, err
	}
	if err := graph.AddEdge(act.ID(), reason.ID(), nil); err != nil {
		return nil, err
	}
	return graph, nil
}

func decisionIs(kinds ...action.Kind) framework.ConditionFunc {
	return func(result *framework.Result, state *framework.AgentState) bool {
		got, _ := result.Data["kind"].(action.Kind)
		for _, k := range kinds {
			if got == k {
				return true
			}
		}
		return false
	}
}

// reactRun carries the pending action from the reason node to the act node
// within one execution.
type reactRun struct {
	pending action.Decision
}

type reactReasonNode struct {
	id    string
	agent *ReActAgent
	run   *reactRun
}

func (n *reactReasonNode) ID() string               { return n.id }
func (n *reactReasonNode) Type() framework.NodeType { return framework.NodeTypeLLM }

// Execute performs one reasoning turn: one model call over the conversation,
// parsed into a decision.
func (n *reactReasonNode) Execute(ctx context.Context, state *framework.AgentState) (*framework.Result, error) {
	if used := state.Iterations(); used >= n.agent.maxIterations {
		return nil, fmt.Errorf("%w: %d reasoning turns", ErrIterationLimitExceeded, used)
	}
	turn := state.IncrementIterations()
	state.EnterPhase(framework.PhaseReasoning)
	logger := n.agent.Config.Log()

	messages, err := n.ensureMessages(state)
	if err != nil {
		return nil, err
	}
	opts := n.agent.Config.LLMOptions()
	opts.Stop = append(opts.Stop, "<"+action.TagObservation+">")
	resp, err := n.agent.Model.Chat(ctx, messages, opts)
	if err != nil {
		return nil, fmt.Errorf("reasoning model call: %w", err)
	}
	state.AppendTurn(framework.RoleAI, resp.Text)

	decision := n.agent.parser.Parse(resp.Text)
	logger.Debug("reasoning turn", "run", state.ID(), "turn", turn, "decision", string(decision.Kind), "thought", decision.Thought)
	switch decision.Kind {
	case action.KindFinalAnswer, action.KindClarification:
		if err := state.SetFinalAnswer(decision.Text); err != nil {
			return nil, err
		}
		logger.Info("run finished", "run", state.ID(), "kind", string(decision.Kind), "turns", turn)
	case action.KindAction:
		n.run.pending = decision
	case action.KindParseError:
		logger.Warn("unparseable model output", "run", state.ID(), "turn", turn, "err", decision.Err)
		state.AppendTurn(framework.RoleHuman, parseFeedback(decision.Err))
	}
	return &framework.Result{
		NodeID:  n.id,
		Success: decision.Kind != action.KindParseError,
		Data:    map[string]any{"kind": decision.Kind, "decision": decision},
	}, nil
}

// ensureMessages seeds an empty conversation with the system instruction and
// the question. A conversation that does not open with a system turn gets
// the instruction prepended to the outgoing messages only.
func (n *reactReasonNode) ensureMessages(state *framework.AgentState) ([]framework.Message, error) {
	messages := state.Messages()
	if len(messages) > 0 && messages[0].Role == framework.RoleSystem {
		return messages, nil
	}
	system, err := ReActSystemPrompt(n.agent.Tools.All())
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		state.AppendTurn(framework.RoleSystem, system)
		state.AppendTurn(framework.RoleHuman, action.Wrap(action.TagQuestion, state.Question()))
		return state.Messages(), nil
	}
	return append([]framework.Message{{Role: framework.RoleSystem, Content: system}}, messages...), nil
}

func parseFeedback(err *action.ParseError) string {
	return action.Wrap(action.TagObservation, fmt.Sprintf(
		"Error: %s. Reply with a <thought> followed by exactly one <action>, <clarification> or <final_answer>.", err))
}

type reactActNode struct {
	id    string
	agent *ReActAgent
	run   *reactRun
}

func (n *reactActNode) ID() string               { return n.id }
func (n *reactActNode) Type() framework.NodeType { return framework.NodeTypeTool }

// Execute dispatches the pending action and feeds the observation back.
func (n *reactActNode) Execute(ctx context.Context, state *framework.AgentState) (*framework.Result, error) {
	state.EnterPhase(framework.PhaseActing)
	decision := n.run.pending
	n.run.pending = action.Decision{}
	obs := n.agent.dispatcher.Dispatch(ctx, state.ID(), decision)
	state.AppendObservation(obs.Text)
	state.AppendTurn(framework.RoleHuman, action.Wrap(action.TagObservation, obs.Text))
	return &framework.Result{
		NodeID:  n.id,
		Success: !obs.Failed,
		Data:    map[string]any{"tool": obs.Tool, "observation": obs.Text},
	}, nil
}
