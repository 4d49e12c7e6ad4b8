package action

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/lexcodex/actloop/framework"
)

// Protocol tags.
const (
	TagThought       = "thought"
	TagAction        = "action"
	TagFinalAnswer   = "final_answer"
	TagClarification = "clarification"
	TagObservation   = "observation"
	TagQuestion      = "question"
)

// callPattern matches name(args) at the start of the call. The argument
// capture runs from the first "(" to the last ")" and may span lines; text
// after the last ")" is ignored.
var callPattern = regexp.MustCompile(`(?s)^\s*([A-Za-z0-9_]+)\((.*)\)`)

// decisionTags in precedence order.
var decisionTags = []string{TagClarification, TagAction, TagFinalAnswer}

// Parser converts model output into Decisions against a fixed registry.
type Parser struct {
	registry *framework.ToolRegistry
	decoder  *Decoder
	logger   *slog.Logger
}

// NewParser returns a parser. A nil decoder selects the lenient default chain
// and a nil logger the process default.
func NewParser(registry *framework.ToolRegistry, decoder *Decoder, logger *slog.Logger) *Parser {
	if decoder == nil {
		decoder = NewDecoder()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = framework.NewToolRegistry()
	}
	return &Parser{registry: registry, decoder: decoder, logger: logger}
}

// Registry exposes the registry the parser validates tool names against.
func (p *Parser) Registry() *framework.ToolRegistry { return p.registry }

// Parse reads one model turn. Clarification wins over action, action over
// final answer; a turn with none of them is a parse error.
func (p *Parser) Parse(text string) Decision {
	turn := SplitTurn(text)
	switch turn.Tag {
	case TagClarification:
		return Decision{Kind: KindClarification, Thought: turn.Thought, Text: turn.Body}
	case TagAction:
		d := p.parseCall(turn.Body)
		d.Thought = turn.Thought
		if d.Err != nil {
			d.Err.Input = firstNonEmpty(d.Err.Input, turn.Body)
		}
		return d
	case TagFinalAnswer:
		return Decision{Kind: KindFinalAnswer, Thought: turn.Thought, Text: turn.Body}
	}
	return noDecision(turn.Thought, text)
}

// Turn is one model turn split into its thought and decision segment. Tag
// is empty when the turn carries no decision tag.
type Turn struct {
	Thought string
	Tag     string
	Body    string
}

// SplitTurn locates the thought and the decision segment of a model turn.
// Decision tags are only looked for outside the thought. Closed pairs win
// over open tags, and a pair nested inside another decision pair is prose.
// Only when no decision pair is closed does the earliest open tag run to the
// end of the text.
func SplitTurn(text string) Turn {
	var turn Turn
	rest := text
	if start, bodyStart, bodyEnd, end, ok := findTag(text, TagThought); ok {
		if bodyEnd < 0 {
			bodyEnd = len(text)
			for _, tag := range decisionTags {
				if i := strings.Index(text[bodyStart:], "<"+tag+">"); i >= 0 && bodyStart+i < bodyEnd {
					bodyEnd = bodyStart + i
				}
			}
			end = bodyEnd
		}
		turn.Thought = strings.TrimSpace(text[bodyStart:bodyEnd])
		rest = text[:start] + "\n" + text[end:]
	}

	type span struct {
		tag                            string
		start, bodyStart, bodyEnd, end int
	}
	var closed []span
	for _, tag := range decisionTags {
		if start, bodyStart, bodyEnd, end, ok := findTag(rest, tag); ok && bodyEnd >= 0 {
			closed = append(closed, span{tag, start, bodyStart, bodyEnd, end})
		}
	}
	for _, s := range closed {
		nested := false
		for _, outer := range closed {
			if outer.tag != s.tag && outer.start < s.start && s.end <= outer.end {
				nested = true
				break
			}
		}
		if !nested {
			turn.Tag = s.tag
			turn.Body = strings.TrimSpace(rest[s.bodyStart:s.bodyEnd])
			return turn
		}
	}

	first := -1
	for _, tag := range decisionTags {
		if start, bodyStart, _, _, ok := findTag(rest, tag); ok && (first < 0 || start < first) {
			first = start
			turn.Tag = tag
			turn.Body = strings.TrimSpace(rest[bodyStart:])
		}
	}
	return turn
}

// findTag locates the first <tag> in text and its closing </tag>. bodyEnd
// and end are -1 when the tag is never closed.
func findTag(text, tag string) (start, bodyStart, bodyEnd, end int, ok bool) {
	open := "<" + tag + ">"
	start = strings.Index(text, open)
	if start < 0 {
		return 0, 0, 0, 0, false
	}
	bodyStart = start + len(open)
	closeTag := "</" + tag + ">"
	i := strings.Index(text[bodyStart:], closeTag)
	if i < 0 {
		return start, bodyStart, -1, -1, true
	}
	bodyEnd = bodyStart + i
	return start, bodyStart, bodyEnd, bodyEnd + len(closeTag), true
}

// ParseCall reads a bare name(args) line, as produced by a planner step.
func (p *Parser) ParseCall(call string) Decision {
	return p.parseCall(call)
}

func (p *Parser) parseCall(call string) Decision {
	m := callPattern.FindStringSubmatch(call)
	if m == nil {
		return malformed("", strings.TrimSpace(call))
	}
	name, raw := m[1], m[2]
	if _, ok := p.registry.Get(name); !ok {
		return unknownTool("", call, name, p.registry.Names())
	}
	decoded, err := p.decoder.Decode(raw)
	if err != nil {
		return badArguments("", call, raw, err)
	}
	if decoded.Lossy && strings.TrimSpace(raw) != "" {
		p.logger.Warn("action arguments discarded", "tool", name, "raw", raw)
	}
	return Decision{
		Kind: KindAction,
		Tool: name,
		Args: decoded.Args,
		Call: strings.TrimSpace(m[0]),
	}
}

// ExtractTag returns the trimmed body of the first <tag>...</tag> block in
// text. A block left open at the end of the text runs to the end.
func ExtractTag(text, tag string) (string, bool) {
	open := "<" + tag + ">"
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	if end := strings.Index(rest, "</"+tag+">"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

// Wrap renders body inside a protocol tag.
func Wrap(tag, body string) string {
	return "<" + tag + ">" + body + "</" + tag + ">"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
