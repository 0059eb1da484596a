package analysis

import (
	"net/http"

	"intake/internal/infra"
	"intake/internal/providers/genai"
	"intake/internal/providers/openai"
)

// NewModel builds the model client selected by cfg.ModelProvider. Gemini is
// the fallback for any provider name other than openai.
func NewModel(cfg *infra.Config, logger *infra.Logger) (Model, error) {
	httpClient := &http.Client{Timeout: cfg.ModelTimeout}
	if cfg.ModelProvider == infra.ProviderOpenAI {
		return openai.NewClient(openai.Options{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			HTTPClient: httpClient,
		}), nil
	}
	return genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
}
