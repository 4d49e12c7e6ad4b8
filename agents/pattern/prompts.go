package pattern

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/lexcodex/actloop/framework"
)

var reactSystemTemplate = template.Must(template.New("react_system").Parse(`You are an efficient problem-solving assistant. Follow the "Thought-Action-Observation" cycle to answer questions using the available tools.

Core principles:
1. Thought (<thought>): analyze what you know and decide what to do next.
2. Action (<action>): call exactly one of the available tools.
3. Observation (<observation>): the system replies with the tool result. Use it to guide your next thought.
4. Clarification (<clarification>): if the question is ambiguous and the tools cannot resolve it, ask the user for more information.
5. Final answer (<final_answer>): once you have enough information, give the answer.

Output format. Wrap every step in these tags:
- <question>: the user's original question (provided by the system).
- <thought>: your reasoning.
- <action>: the tool call, written as tool_name(param_name="value", number=1).
- <observation>: the tool result (provided by the system, never write it yourself).
- <clarification>: a question back to the user.
- <final_answer>: your final answer.

Example:

<question>Where is the hometown of this year's Australian Open men's champion?</question>
<thought>"This year" is relative. I need the current date before searching.</thought>
<action>current_date()</action>
<observation>2024-05-20 10:00:00</observation>
<thought>It is 2024. I will search for the 2024 champion and his hometown in one query.</thought>
<action>search_internet(query="hometown of 2024 Australian Open men's champion Sinner")</action>
<observation>Search results for "hometown of 2024 Australian Open men's champion Sinner": Jannik Sinner's hometown is Sesto, in the South Tyrol region of Italy.</observation>
<thought>I have the answer.</thought>
<final_answer>This year's (2024) Australian Open men's champion is Sinner, and his hometown is Sesto, South Tyrol, Italy.</final_answer>

Instructions:
- Resolve vague time references such as "today" or "this year" with the current_date tool instead of asking the user.
- Combine related lookups into one tool call when you can.
- Every reply contains a <thought> followed by exactly one <action>, <clarification> or <final_answer>.
- After an <action>, stop and wait for the <observation>.
- Strings are double-quoted; numbers, true/false and null are written bare; lists use [ ].

Available tools:
{{.ToolList}}
`))

var plannerTemplate = template.Must(template.New("planner").Parse(`You are a planning assistant. Break the user's question into an ordered list of tool calls that gathers everything needed to answer it.

Available tools:
{{.ToolList}}

Rules:
- Reply with a JSON array of strings and nothing else.
- Each string is one tool call written as tool_name(param="value", number=1).
- Use only the tools listed above.
- Steps run in order and cannot see each other's results, so every call must be complete on its own.
- If no tool is needed, reply with [].

Example:
["current_date()", "search_internet(query=\"2024 Australian Open men's champion hometown\")"]

Question: {{.Question}}
`))

var finalAnswerTemplate = template.Must(template.New("final_answer").Parse(`You are answering a question using the results of tool calls made on your behalf.

Tool results:
{{.History}}

Question: {{.Question}}

Answer the question directly using the results above. If the results are not enough, say what is missing.
`))

// ToolList renders tools one per line as "- name(params): description".
func ToolList(tools []framework.Tool) string {
	if len(tools) == 0 {
		return "(no tools available)"
	}
	var b strings.Builder
	for i, tool := range tools {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(tool.Name())
		b.WriteByte('(')
		for j, p := range tool.Parameters() {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name)
			if p.Type != "" {
				b.WriteString(": ")
				b.WriteString(p.Type)
			}
		}
		b.WriteString("): ")
		b.WriteString(tool.Description())
	}
	return b.String()
}

// ObservationHistory numbers observations as "Step i Observation: ..." lines.
func ObservationHistory(observations []string) string {
	if len(observations) == 0 {
		return "(no tool calls were made)"
	}
	lines := make([]string, 0, len(observations))
	for i, obs := range observations {
		lines = append(lines, fmt.Sprintf("Step %d Observation: %s", i+1, obs))
	}
	return strings.Join(lines, "\n")
}

func render(tmpl *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}

// ReActSystemPrompt renders the system instruction for the reasoning loop.
func ReActSystemPrompt(tools []framework.Tool) (string, error) {
	return render(reactSystemTemplate, struct{ ToolList string }{ToolList(tools)})
}

// PlannerPrompt renders the single-shot planning prompt.
func PlannerPrompt(tools []framework.Tool, question string) (string, error) {
	return render(plannerTemplate, struct{ ToolList, Question string }{ToolList(tools), question})
}

// FinalAnswerPrompt renders the synthesis prompt over collected observations.
func FinalAnswerPrompt(question string, observations []string) (string, error) {
	return render(finalAnswerTemplate, struct{ History, Question string }{ObservationHistory(observations), question})
}
