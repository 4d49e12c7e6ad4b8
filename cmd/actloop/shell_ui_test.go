package main

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/actloop/agents"
	"github.com/lexcodex/actloop/framework"
)

type stubRunner struct {
	modes     []string
	questions []string
	outcome   agents.Outcome
}

func (r *stubRunner) Run(_ context.Context, mode, question string) agents.Outcome {
	r.modes = append(r.modes, mode)
	r.questions = append(r.questions, question)
	return r.outcome
}

func typeLine(m *shellModel, line string) tea.Cmd {
	m.input.SetValue(line)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestShellModeCommand(t *testing.T) {
	m := newShellModel(&stubRunner{}, "", "")
	assert.Equal(t, "react", m.mode)

	typeLine(m, "mode plan")
	assert.Equal(t, "plan", m.mode)
	assert.Equal(t, "mode set to plan", m.statusLine)

	typeLine(m, "mode swarm")
	assert.Equal(t, "plan", m.mode)
	assert.Contains(t, m.statusLine, "usage")
}

func TestShellRunsQuestion(t *testing.T) {
	state := framework.NewAgentState("2+2?")
	state.AppendTurn(framework.RoleAI, "<thought>easy</thought><final_answer>4</final_answer>")
	require.NoError(t, state.SetFinalAnswer("4"))
	r := &stubRunner{outcome: agents.Outcome{RunID: state.ID(), Mode: framework.ModeReAct, FinalAnswer: "4", Answered: true, State: state}}
	m := newShellModel(r, "react", "gpt-test")

	cmd := typeLine(m, "2+2?")
	require.NotNil(t, cmd)
	assert.True(t, m.running)
	assert.Empty(t, m.input.Value())

	typeLine(m, "another")
	assert.Equal(t, "a run is in progress", m.statusLine)

	msg := m.runQuestion("2+2?")
	require.NotNil(t, msg)
	out := r.Run(context.Background(), "react", "2+2?")
	m.Update(runFinishedMsg{Question: "2+2?", Outcome: out})
	assert.False(t, m.running)
	assert.Contains(t, m.statusLine, "finished")
	view := m.View()
	assert.Contains(t, view, "mode: react")
	assert.Contains(t, view, "easy")
	assert.Contains(t, view, "4")
}

func TestShellShowsErrors(t *testing.T) {
	m := newShellModel(&stubRunner{}, "plan", "")
	m.running = true
	m.Update(runFinishedMsg{Outcome: agents.Outcome{RunID: "r", Err: errors.New("model unreachable")}})
	assert.Contains(t, m.View(), "model unreachable")
}

func TestShellQuitAndClear(t *testing.T) {
	m := newShellModel(&stubRunner{}, "react", "")
	m.lines = []string{"old"}
	typeLine(m, "clear")
	assert.Empty(t, m.lines)

	m.input.SetValue("quit")
	cmd := m.handleSubmitted()
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
