package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	generativelanguage "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

const systemInstruction = `You are a personal finance advisor for users in the Philippines.
All amounts are in Philippine pesos. Be specific and practical: name the
actual categories and merchants from the data, not generic advice.
Respond with a single JSON object and nothing else.`

// GeminiClient implements Generator over the Generative Language API.
// Model selection is left to the dispatcher; one client serves all the
// configured model ids.
type GeminiClient struct {
	svc *generativelanguage.Service
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	svc, err := generativelanguage.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create Generative Language service: %w", err)
	}
	return &GeminiClient{svc: svc}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, model, prompt string, history []Turn) (string, error) {
	contents := make([]*generativelanguage.Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, &generativelanguage.Content{
			Role:  turn.Role,
			Parts: []*generativelanguage.Part{{Text: turn.Text}},
		})
	}
	contents = append(contents, &generativelanguage.Content{
		Role:  "user",
		Parts: []*generativelanguage.Part{{Text: prompt}},
	})

	req := &generativelanguage.GenerateContentRequest{
		Contents: contents,
		SystemInstruction: &generativelanguage.Content{
			Parts: []*generativelanguage.Part{{Text: systemInstruction}},
		},
		GenerationConfig: &generativelanguage.GenerationConfig{
			Temperature:     0.7,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 8192,
		},
	}

	resp, err := c.svc.Models.GenerateContent("models/"+model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty generation response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", errors.New("generation response has no text parts")
	}
	return sb.String(), nil
}
