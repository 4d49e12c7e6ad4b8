package framework

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Phase names a state of an orchestrator state machine.
type Phase string

const (
	PhasePlanning  Phase = "planning"
	PhaseExecuting Phase = "executing"
	PhaseAnswering Phase = "answering"
	PhaseReasoning Phase = "reasoning"
	PhaseActing    Phase = "acting"
	PhaseDone      Phase = "done"
)

var (
	ErrAnswerAlreadySet = errors.New("final answer already set")
	ErrPlanAlreadySet   = errors.New("plan already set")
)

// Turn is one entry of the conversational history. IDs are ULIDs so turns
// sort by creation time even after being shipped over the wire.
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Message returns the turn in the shape language models consume.
func (t Turn) Message() Message {
	return Message{Role: t.Role, Content: t.Content}
}

// AgentState is the per-run blackboard. Every run owns its own instance; the
// only thing shared between runs is the ToolRegistry. All logs are
// append-only and the final answer may be set exactly once.
type AgentState struct {
	mu           sync.RWMutex
	id           string
	question     string
	history      []Turn
	observations []string
	plan         []string
	planSet      bool
	finalAnswer  string
	answered     bool
	phase        Phase
	phases       []Phase
	iterations   int
}

// NewAgentState starts a run for question.
func NewAgentState(question string) *AgentState {
	return &AgentState{
		id:       uuid.NewString(),
		question: question,
		history:  make([]Turn, 0),
	}
}

// ID is the run identifier used for log and telemetry correlation.
func (s *AgentState) ID() string { return s.id }

// Question returns the original user input.
func (s *AgentState) Question() string { return s.question }

// AppendTurn records a conversational turn and returns it.
func (s *AgentState) AppendTurn(role, content string) Turn {
	turn := Turn{
		ID:        ulid.Make().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turn)
	return turn
}

// History returns a copy of the conversation so far.
func (s *AgentState) History() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Turn(nil), s.history...)
}

// Messages returns the history as model messages.
func (s *AgentState) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, 0, len(s.history))
	for _, t := range s.history {
		out = append(out, t.Message())
	}
	return out
}

// AppendObservation adds to the flat observation log.
func (s *AgentState) AppendObservation(obs string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = append(s.observations, obs)
}

// Observations returns a copy of the observation log.
func (s *AgentState) Observations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.observations...)
}

// SetPlan stores the plan. It can only be called once per run.
func (s *AgentState) SetPlan(steps []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.planSet {
		return ErrPlanAlreadySet
	}
	s.plan = append([]string(nil), steps...)
	s.planSet = true
	return nil
}

// Plan returns a copy of the plan.
func (s *AgentState) Plan() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.plan...)
}

// SetFinalAnswer records the terminal answer. A second call fails with
// ErrAnswerAlreadySet and leaves the first answer in place.
func (s *AgentState) SetFinalAnswer(answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answered {
		return ErrAnswerAlreadySet
	}
	s.finalAnswer = answer
	s.answered = true
	return nil
}

// FinalAnswer returns the answer and whether one has been set.
func (s *AgentState) FinalAnswer() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalAnswer, s.answered
}

// EnterPhase moves the state machine to phase and records the transition.
func (s *AgentState) EnterPhase(phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = phase
	s.phases = append(s.phases, phase)
}

// Phase returns the current phase.
func (s *AgentState) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Phases returns every phase entered so far, in order.
func (s *AgentState) Phases() []Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Phase(nil), s.phases...)
}

// Visited reports whether the run ever entered phase.
func (s *AgentState) Visited(phase Phase) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.phases {
		if p == phase {
			return true
		}
	}
	return false
}

// IncrementIterations bumps the reasoning-turn counter and returns it.
func (s *AgentState) IncrementIterations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iterations++
	return s.iterations
}

// Iterations returns the number of reasoning turns taken.
func (s *AgentState) Iterations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iterations
}

// StateSnapshot is the serializable view of a run used by the API surfaces.
type StateSnapshot struct {
	RunID        string   `json:"run_id"`
	Question     string   `json:"question"`
	History      []Turn   `json:"history,omitempty"`
	Observations []string `json:"observations,omitempty"`
	Plan         []string `json:"plan,omitempty"`
	FinalAnswer  string   `json:"final_answer,omitempty"`
	Phases       []Phase  `json:"phases,omitempty"`
	Iterations   int      `json:"iterations"`
}

// Snapshot copies the state.
func (s *AgentState) Snapshot() StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StateSnapshot{
		RunID:        s.id,
		Question:     s.question,
		History:      append([]Turn(nil), s.history...),
		Observations: append([]string(nil), s.observations...),
		Plan:         append([]string(nil), s.plan...),
		FinalAnswer:  s.finalAnswer,
		Phases:       append([]Phase(nil), s.phases...),
		Iterations:   s.iterations,
	}
}
