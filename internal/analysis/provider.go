package analysis

import (
	"context"

	"bodycheck/internal/config"
)

// New builds the gateway for the configured provider. The returned close
// function releases the provider client.
func New(ctx context.Context, cfg config.Config) (*Gateway, func(), error) {
	if err := cfg.RequireProviderKey(); err != nil {
		return nil, nil, err
	}
	if cfg.AIProvider == "openai" {
		return NewGateway(NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel), cfg.AnalysisTimeout), func() {}, nil
	}
	gen, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, nil, err
	}
	return NewGateway(gen, cfg.AnalysisTimeout), func() { gen.Close() }, nil
}
