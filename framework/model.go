package framework

import "context"

// Conversation roles. Human and AI map onto the user/assistant roles every
// chat API understands.
const (
	RoleSystem = "system"
	RoleHuman  = "user"
	RoleAI     = "assistant"
)

// LLMOptions configures language model calls. Keeping the options struct inside
// the framework avoids hard-coding provider specific fields in agent code.
type LLMOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Stop        []string
	TopP        float64
}

// LLMResponse is the result of a language model invocation.
type LLMResponse struct {
	Text         string         `json:"text,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Usage        map[string]int `json:"usage,omitempty"`
}

// Message is used for chat-like interactions.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LanguageModel is the model collaborator: a rendered prompt or an ordered
// list of role-tagged messages in, text out.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string, options *LLMOptions) (*LLMResponse, error)
	Chat(ctx context.Context, messages []Message, options *LLMOptions) (*LLMResponse, error)
}
