package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lexcodex/actloop/framework"
)

// InstrumentedModel wraps a LanguageModel and emits telemetry for prompts and responses.
type InstrumentedModel struct {
	Inner     framework.LanguageModel
	Telemetry framework.Telemetry
	Debug     bool
}

func NewInstrumentedModel(inner framework.LanguageModel, telemetry framework.Telemetry, debug bool) *InstrumentedModel {
	return &InstrumentedModel{Inner: inner, Telemetry: telemetry, Debug: debug}
}

func (m *InstrumentedModel) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	m.emitPrompt(ctx, "generate", map[string]any{
		"model":            modelFromOptions(options),
		"prompt_chars":     len(prompt),
		"prompt_preview":   clip(prompt, 1024),
		"estimated_tokens": framework.EstimateTokens(prompt),
	}, map[string]any{"prompt": clip(prompt, 8192)})
	start := time.Now()
	resp, err := m.Inner.Generate(ctx, prompt, options)
	m.emitResponse(ctx, "generate", resp, err, time.Since(start))
	return resp, err
}

func (m *InstrumentedModel) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	base, debug := chatMeta(messages, options)
	m.emitPrompt(ctx, "chat", base, debug)
	start := time.Now()
	resp, err := m.Inner.Chat(ctx, messages, options)
	m.emitResponse(ctx, "chat", resp, err, time.Since(start))
	return resp, err
}

func chatMeta(messages []framework.Message, options *framework.LLMOptions) (map[string]any, map[string]any) {
	roles := make([]string, 0, len(messages))
	preview := make([]map[string]any, 0, min(len(messages), 20))
	for i, msg := range messages {
		roles = append(roles, msg.Role)
		if i < 20 {
			preview = append(preview, map[string]any{
				"role":    msg.Role,
				"content": clip(msg.Content, 512),
			})
		}
	}
	base := map[string]any{
		"model":            modelFromOptions(options),
		"message_count":    len(messages),
		"estimated_tokens": framework.EstimateMessageTokens(messages),
		"roles":            roles,
		"messages_preview": preview,
	}
	if options != nil && len(options.Stop) > 0 {
		base["stop"] = options.Stop
	}
	debug := map[string]any{}
	if len(messages) > 0 {
		full := make([]map[string]any, 0, len(messages))
		for _, msg := range messages {
			full = append(full, map[string]any{
				"role":    msg.Role,
				"content": clip(msg.Content, 8192),
			})
		}
		debug["messages"] = full
	}
	return base, debug
}

func (m *InstrumentedModel) emitPrompt(ctx context.Context, kind string, base, debugFields map[string]any) {
	if m == nil || m.Telemetry == nil {
		return
	}
	runID, runMeta := runInfo(ctx)
	metadata := map[string]any{"kind": kind}
	for k, v := range base {
		metadata[k] = v
	}
	for k, v := range runMeta {
		metadata[k] = v
	}
	if m.Debug {
		for k, v := range debugFields {
			metadata[k] = v
		}
	}
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventModelPrompt,
		TaskID:    runID,
		Timestamp: time.Now().UTC(),
		Message:   fmt.Sprintf("llm %s prompt", kind),
		Metadata:  metadata,
	})
}

func (m *InstrumentedModel) emitResponse(ctx context.Context, kind string, resp *framework.LLMResponse, err error, took time.Duration) {
	if m == nil || m.Telemetry == nil {
		return
	}
	runID, runMeta := runInfo(ctx)
	metadata := map[string]any{
		"kind":        kind,
		"duration_ms": took.Milliseconds(),
	}
	for k, v := range runMeta {
		metadata[k] = v
	}
	if resp != nil {
		metadata["finish_reason"] = resp.FinishReason
		metadata["text_preview"] = clip(resp.Text, 1024)
		metadata["usage"] = resp.Usage
		if resp.Usage == nil {
			metadata["estimated_tokens"] = framework.EstimateTokens(resp.Text)
		}
	}
	if err != nil {
		metadata["error"] = err.Error()
	}
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventModelResponse,
		TaskID:    runID,
		Timestamp: time.Now().UTC(),
		Message:   fmt.Sprintf("llm %s response", kind),
		Metadata:  metadata,
	})
}

func modelFromOptions(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	return ""
}

func runInfo(ctx context.Context) (string, map[string]any) {
	run, ok := framework.RunContextFrom(ctx)
	if !ok {
		return "", nil
	}
	meta := map[string]any{}
	if run.Question != "" {
		meta["question_preview"] = clip(run.Question, 1024)
	}
	return run.ID, meta
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
