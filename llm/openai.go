package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lexcodex/actloop/framework"
)

// DefaultOpenAIEndpoint is used when no endpoint is configured.
const DefaultOpenAIEndpoint = "https://api.openai.com/v1"

// OpenAIClient implements framework.LanguageModel for any server speaking the
// OpenAI Chat Completions API.
type OpenAIClient struct {
	Endpoint string
	Model    string
	APIKey   string
	Logger   *slog.Logger
	client   *http.Client
}

// NewOpenAIClient builds a client. endpoint may or may not end in /v1.
func NewOpenAIClient(endpoint, apiKey, model string) *OpenAIClient {
	if endpoint == "" {
		endpoint = DefaultOpenAIEndpoint
	}
	return &OpenAIClient{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Model:    model,
		APIKey:   apiKey,
		client:   &http.Client{Timeout: 3 * time.Minute},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends prompt as a single user message.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	return c.Chat(ctx, []framework.Message{{Role: framework.RoleHuman, Content: prompt}}, options)
}

// Chat implements chat style conversation.
func (c *OpenAIClient) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	req := c.buildRequest(messages, options)
	headers := map[string]string{}
	if c.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.APIKey
	}
	body, err := postJSON(ctx, c.httpClient(), "openai", c.completionsURL(), headers, req, logger(c.Logger))
	if err != nil {
		return nil, err
	}
	var resp chatResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}
	out := &framework.LLMResponse{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
	}
	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 {
		out.Usage = map[string]int{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}

func (c *OpenAIClient) buildRequest(messages []framework.Message, options *framework.LLMOptions) chatRequest {
	req := chatRequest{Model: c.Model}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if options == nil {
		return req
	}
	if options.Model != "" {
		req.Model = options.Model
	}
	t := options.Temperature
	req.Temperature = &t
	req.MaxTokens = options.MaxTokens
	req.TopP = options.TopP
	req.Stop = options.Stop
	return req
}

func (c *OpenAIClient) completionsURL() string {
	if strings.HasSuffix(c.Endpoint, "/v1") {
		return c.Endpoint + "/chat/completions"
	}
	return c.Endpoint + "/v1/chat/completions"
}

func (c *OpenAIClient) httpClient() *http.Client {
	if c.client == nil {
		c.client = &http.Client{Timeout: 60 * time.Second}
	}
	return c.client
}
