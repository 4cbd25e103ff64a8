package assistant

import (
	"context"
	"fmt"
	"strings"

	"pharmastore/internal/config"
)

// NewModel picks the provider named by cfg.AIProvider. It returns a nil
// Model and no error when no provider is configured.
func NewModel(ctx context.Context, cfg config.Config) (Model, error) {
	switch strings.ToLower(cfg.AIProvider) {
	case "":
		return nil, nil
	case "openai":
		m, err := NewOpenAIModel(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "gemini":
		m, err := NewGeminiModel(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}
