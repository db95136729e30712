package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAdvisor asks Google's Gemini models for gift ideas.
type GeminiAdvisor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiAdvisor(ctx context.Context, apiKey, model string) (*GeminiAdvisor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetTemperature(giftTemperature)
	m.SystemInstruction = genai.NewUserContent(genai.Text(giftSystemPrompt))
	return &GeminiAdvisor{client: client, model: m}, nil
}

func (g *GeminiAdvisor) Suggest(ctx context.Context, description string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildGiftPrompt(description)))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("gemini returned an empty answer")
	}
	return out, nil
}

func (g *GeminiAdvisor) Close() error {
	return g.client.Close()
}
