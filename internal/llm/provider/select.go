package provider

import (
	"fmt"

	"github.com/aixgo-dev/reviewmesh/internal/llm/inference"
	"github.com/aixgo-dev/reviewmesh/pkg/config"
)

// FromConfig builds the Provider named by cfg.Provider. "ollama" is the
// self-hosted backend wired through LocalProvider; "mock" exists for
// local development.
func FromConfig(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider requires openai_key or OPENAI_API_KEY")
		}
		return NewOpenAIProvider(cfg.OpenAIKey, openaiBaseURL), nil
	case "ollama":
		svc, err := inference.NewOllamaService("")
		if err != nil {
			return nil, fmt.Errorf("start ollama inference service: %w", err)
		}
		return NewLocalProvider(svc, "ollama"), nil
	case "mock":
		return NewLocalProvider(inference.NewMockInferenceService(cfg.DefaultModel), "mock"), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
