package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/actloop/agents"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	questionStyle = lipgloss.NewStyle().Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(14)
	entryStyles   = map[entryKind]lipgloss.Style{
		entryThought:       lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		entryAction:        lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		entryPlan:          lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		entryObservation:   lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		entryFeedback:      lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		entryAnswer:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		entryClarification: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		entryError:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
)

const maxInputHistory = 200

type questionRunner interface {
	Run(ctx context.Context, mode, question string) agents.Outcome
}

type shellModel struct {
	runner     questionRunner
	mode       string
	modelName  string
	timeout    time.Duration
	input      textinput.Model
	spinner    spinner.Model
	transcript viewport.Model
	lines      []string
	history    []string
	running    bool
	started    time.Time
	statusLine string
	width      int
	height     int
}

type runFinishedMsg struct {
	Question string
	Outcome  agents.Outcome
	Took     time.Duration
}

func newShellModel(r questionRunner, mode, modelName string) *shellModel {
	txt := textinput.New()
	txt.Placeholder = "Ask a question, or: mode react|plan, clear, quit"
	txt.Focus()
	txt.CharLimit = 2048

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	if mode == "" {
		mode = "react"
	}
	return &shellModel{
		runner:     r,
		mode:       mode,
		modelName:  modelName,
		input:      txt,
		spinner:    spin,
		transcript: viewport.New(80, 20),
	}
}

func (m *shellModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if cmd := m.handleSubmitted(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = msg.Width
		m.transcript.Height = max(3, msg.Height-4)
		m.input.Width = max(10, msg.Width-4)
		m.refreshTranscript()
	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case runFinishedMsg:
		m.running = false
		for _, e := range transcript(msg.Outcome) {
			m.appendEntry(e)
		}
		m.statusLine = fmt.Sprintf("run %s finished in %s", shortID(msg.Outcome.RunID), msg.Took.Round(time.Millisecond))
		m.refreshTranscript()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *shellModel) handleSubmitted() tea.Cmd {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return nil
	}
	if m.running {
		m.statusLine = "a run is in progress"
		return nil
	}
	m.input.SetValue("")
	m.history = append(m.history, value)
	if len(m.history) > maxInputHistory {
		m.history = m.history[len(m.history)-maxInputHistory:]
	}
	verb, rest, _ := strings.Cut(value, " ")
	switch verb {
	case "quit", "exit":
		return tea.Quit
	case "clear":
		m.lines = nil
		m.statusLine = ""
		m.refreshTranscript()
		return nil
	case "mode":
		switch strings.TrimSpace(rest) {
		case "react", "plan":
			m.mode = strings.TrimSpace(rest)
			m.statusLine = "mode set to " + m.mode
		default:
			m.statusLine = "usage: mode react|plan"
		}
		return nil
	}
	return m.runQuestion(value)
}

func (m *shellModel) runQuestion(question string) tea.Cmd {
	m.running = true
	m.started = time.Now()
	m.statusLine = ""
	m.lines = append(m.lines, questionStyle.Render("> "+question))
	m.refreshTranscript()
	r, mode, timeout := m.runner, m.mode, m.timeout
	run := func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		out := r.Run(ctx, mode, question)
		return runFinishedMsg{Question: question, Outcome: out, Took: time.Since(start)}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m *shellModel) appendEntry(e transcriptEntry) {
	style, ok := entryStyles[e.Kind]
	if !ok {
		style = lipgloss.NewStyle()
	}
	m.lines = append(m.lines, labelStyle.Render(string(e.Kind))+style.Render(e.Content))
}

func (m *shellModel) refreshTranscript() {
	m.transcript.SetContent(strings.Join(m.lines, "\n"))
	m.transcript.GotoBottom()
}

func (m *shellModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("actloop | mode: %s | model: %s", m.mode, orDefault(m.modelName, "default"))))
	b.WriteString("\n")
	b.WriteString(m.transcript.View())
	b.WriteString("\n")
	status := m.statusLine
	if m.running {
		status = fmt.Sprintf("%s thinking (%s)", m.spinner.View(), time.Since(m.started).Round(time.Second))
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
