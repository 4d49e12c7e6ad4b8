package framework

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentStateFinalAnswerSetOnce(t *testing.T) {
	state := NewAgentState("what is 5!?")
	_, ok := state.FinalAnswer()
	assert.False(t, ok)

	require.NoError(t, state.SetFinalAnswer("120"))
	assert.ErrorIs(t, state.SetFinalAnswer("other"), ErrAnswerAlreadySet)

	answer, ok := state.FinalAnswer()
	assert.True(t, ok)
	assert.Equal(t, "120", answer)
}

func TestAgentStatePlanSetOnce(t *testing.T) {
	state := NewAgentState("q")
	steps := []string{"a()", "b()"}
	require.NoError(t, state.SetPlan(steps))
	steps[0] = "mutated"
	assert.Equal(t, []string{"a()", "b()"}, state.Plan())
	assert.ErrorIs(t, state.SetPlan(nil), ErrPlanAlreadySet)
}

func TestAgentStateHistoryIsAppendOnlyCopy(t *testing.T) {
	state := NewAgentState("q")
	first := state.AppendTurn(RoleSystem, "sys")
	second := state.AppendTurn(RoleHuman, "hi")
	assert.NotEmpty(t, first.ID)
	assert.Less(t, first.ID, second.ID)

	history := state.History()
	history[0].Content = "changed"
	assert.Equal(t, "sys", state.History()[0].Content)

	msgs := state.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{Role: RoleHuman, Content: "hi"}, msgs[1])
}

func TestAgentStatePhases(t *testing.T) {
	state := NewAgentState("q")
	state.EnterPhase(PhaseReasoning)
	state.EnterPhase(PhaseActing)
	state.EnterPhase(PhaseReasoning)
	state.EnterPhase(PhaseDone)

	assert.Equal(t, PhaseDone, state.Phase())
	assert.True(t, state.Visited(PhaseActing))
	assert.False(t, state.Visited(PhaseExecuting))
	assert.Len(t, state.Phases(), 4)
}

func TestAgentStateSnapshotJSON(t *testing.T) {
	state := NewAgentState("q")
	state.AppendObservation("obs")
	_ = state.SetFinalAnswer("done")
	data, err := json.Marshal(state.Snapshot())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, state.ID(), decoded["run_id"])
	assert.Equal(t, "done", decoded["final_answer"])
	assert.Equal(t, []any{"obs"}, decoded["observations"])
}

func TestJSONFileTelemetryWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	sink, err := NewJSONFileTelemetry(path)
	require.NoError(t, err)

	var seen int
	mux := MultiplexTelemetry{Sinks: []Telemetry{sink, nil, TelemetryFunc(func(Event) { seen++ })}}
	mux.Emit(Event{Type: EventToolCall, TaskID: "run-1", Message: "factorial(n=5)"})
	mux.Emit(Event{Type: EventToolResult, TaskID: "run-1", Message: "120"})
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"type":"tool_call"`)
	assert.Equal(t, 2, seen)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 3, EstimateTokens("abcdefghi"))
	assert.Equal(t, 2, EstimateMessageTokens([]Message{{Content: "abcd"}, {Content: "e"}}))
}
