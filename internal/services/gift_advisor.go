package services

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GiftAdvisor turns a free-text description of a recipient into gift ideas.
type GiftAdvisor interface {
	Suggest(ctx context.Context, description string) (string, error)
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	giftSystemPrompt   = "You are a gift expert. Format your answers clearly."
	giftTemperature    = 0.7
	defaultGeminiModel = "gemini-1.5-flash"
)

// buildGiftPrompt asks for five ideas with a short description each.
func buildGiftPrompt(description string) string {
	var b strings.Builder
	b.WriteString("You help people choose gifts. The user is looking for: ")
	b.WriteString(strings.TrimSpace(description))
	b.WriteString("\n\nGive 5 gift ideas in this format:\n\n")
	b.WriteString("1. [Name]\n- Description (1-2 sentences)\n\n")
	b.WriteString("... and so on for all 5 ideas.\n\n")
	b.WriteString("Take current trends, practicality and the budget into account.")
	return b.String()
}

// AdvisorConfig selects and configures a backend.
type AdvisorConfig struct {
	Provider     string
	APIKey       string
	BaseURL      string
	Model        string
	GeminiAPIKey string
	Timeout      time.Duration
}

// NewGiftAdvisor builds the configured backend. It returns nil, nil when no
// credentials are set, which disables the gift feature.
func NewGiftAdvisor(ctx context.Context, cfg AdvisorConfig) (GiftAdvisor, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, nil
		}
		return NewOpenAIAdvisor(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case ProviderGemini:
		key := cfg.GeminiAPIKey
		if key == "" {
			key = cfg.APIKey
		}
		if key == "" {
			return nil, nil
		}
		model := cfg.Model
		if !strings.HasPrefix(model, "gemini") && !strings.HasPrefix(model, "models/gemini") {
			model = defaultGeminiModel
		}
		advisor, err := NewGeminiAdvisor(ctx, key, model)
		if err != nil {
			return nil, err
		}
		return advisor, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
