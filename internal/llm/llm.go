// Package llm builds the inference provider selected by configuration.
package llm

import (
	"fmt"

	"github.com/linnemanlabs/argus/internal/cfg"
	"github.com/linnemanlabs/argus/internal/llm/claude"
	"github.com/linnemanlabs/argus/internal/llm/ollama"
	"github.com/linnemanlabs/argus/internal/triage"
)

// New returns the configured provider and the model name requests should use.
func New(c *cfg.Config) (triage.Provider, string, error) {
	switch c.Provider {
	case cfg.ProviderOllama:
		return ollama.New(c.OllamaURL, c.InferenceTimeout()), c.Model, nil
	case cfg.ProviderClaude:
		return claude.New(claude.Options{
			APIKey:  c.ClaudeAPIKey,
			Model:   c.ClaudeModel,
			Timeout: c.InferenceTimeout(),
		}), c.ClaudeModel, nil
	default:
		return nil, "", fmt.Errorf("unknown inference provider %q", c.Provider)
	}
}
