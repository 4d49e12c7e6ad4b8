package main

import (
	"fmt"
	"strings"

	"github.com/lexcodex/actloop/action"
	"github.com/lexcodex/actloop/agents"
	"github.com/lexcodex/actloop/framework"
)

type entryKind string

const (
	entryQuestion      entryKind = "question"
	entryThought       entryKind = "thought"
	entryAction        entryKind = "action"
	entryObservation   entryKind = "observation"
	entryFeedback      entryKind = "feedback"
	entryPlan          entryKind = "plan"
	entryAnswer        entryKind = "answer"
	entryClarification entryKind = "clarification"
	entryError         entryKind = "error"
)

type transcriptEntry struct {
	Kind    entryKind
	Content string
}

// transcript flattens a finished run into displayable entries. The question
// itself is not included.
func transcript(out agents.Outcome) []transcriptEntry {
	var entries []transcriptEntry
	if out.State != nil {
		if out.Mode == framework.ModePlan {
			entries = planTranscript(out.State)
		} else {
			entries = reactTranscript(out.State)
		}
	}
	if out.Answered && !hasTerminal(entries) {
		entries = append(entries, transcriptEntry{Kind: entryAnswer, Content: out.FinalAnswer})
	}
	if out.Err != nil {
		entries = append(entries, transcriptEntry{Kind: entryError, Content: out.Err.Error()})
	}
	return entries
}

func hasTerminal(entries []transcriptEntry) bool {
	for _, e := range entries {
		if e.Kind == entryAnswer || e.Kind == entryClarification {
			return true
		}
	}
	return false
}

func reactTranscript(state *framework.AgentState) []transcriptEntry {
	var entries []transcriptEntry
	for _, turn := range state.History() {
		switch turn.Role {
		case framework.RoleAI:
			split := action.SplitTurn(turn.Content)
			if split.Thought != "" {
				entries = append(entries, transcriptEntry{Kind: entryThought, Content: split.Thought})
			}
			switch split.Tag {
			case action.TagClarification:
				entries = append(entries, transcriptEntry{Kind: entryClarification, Content: split.Body})
			case action.TagAction:
				entries = append(entries, transcriptEntry{Kind: entryAction, Content: split.Body})
			case action.TagFinalAnswer:
				entries = append(entries, transcriptEntry{Kind: entryAnswer, Content: split.Body})
			}
		case framework.RoleHuman:
			body, ok := action.ExtractTag(turn.Content, action.TagObservation)
			if !ok {
				continue
			}
			kind := entryObservation
			if strings.HasPrefix(body, "Error: ") && strings.Contains(body, "Reply with a <thought>") {
				kind = entryFeedback
			}
			entries = append(entries, transcriptEntry{Kind: kind, Content: body})
		}
	}
	return entries
}

func planTranscript(state *framework.AgentState) []transcriptEntry {
	plan := state.Plan()
	obs := state.Observations()
	entries := make([]transcriptEntry, 0, 2*len(plan))
	for i, step := range plan {
		entries = append(entries, transcriptEntry{Kind: entryPlan, Content: fmt.Sprintf("%d. %s", i+1, step)})
		if i < len(obs) {
			entries = append(entries, transcriptEntry{Kind: entryObservation, Content: obs[i]})
		}
	}
	return entries
}
