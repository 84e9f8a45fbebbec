package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/dmaciel/parley/internal/config"
)

// NewClient creates an OpenAI-compatible chat client from configuration.
func NewClient(cfg config.LLMConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}
