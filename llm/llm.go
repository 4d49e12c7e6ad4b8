// Package llm holds the language model clients: an OpenAI-compatible chat
// client, an Ollama client, and a telemetry wrapper around either.
package llm

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lexcodex/actloop/framework"
	"github.com/lexcodex/actloop/internal/config"
)

// New builds the client selected by cfg.Provider.
func New(cfg config.ModelConfig, logger *slog.Logger) (framework.LanguageModel, error) {
	var httpClient *http.Client
	if cfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	switch cfg.Provider {
	case "", config.ProviderOpenAI:
		c := NewOpenAIClient(cfg.Endpoint, cfg.APIKey, cfg.Name)
		c.Logger = logger
		if httpClient != nil {
			c.client = httpClient
		}
		return c, nil
	case config.ProviderOllama:
		c := NewClient(cfg.Endpoint, cfg.Name)
		c.Logger = logger
		if httpClient != nil {
			c.client = httpClient
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
}
