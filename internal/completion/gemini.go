package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// geminiBackend calls the Gemini API through the genai SDK.
type geminiBackend struct {
	client *genai.Client
}

func newGeminiBackend(ctx context.Context, apiKey string, httpClient *http.Client) (*geminiBackend, error) {
	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &geminiBackend{client: gi}, nil
}

func (g *geminiBackend) Generate(ctx context.Context, prompt Prompt) (string, error) {
	temperature := prompt.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		MaxOutputTokens:   int32(prompt.MaxTokens), //nolint:gosec // validated positive and small
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}},
	}

	resp, err := g.client.Models.GenerateContent(ctx, prompt.Model, genai.Text(prompt.User), cfg)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Code: apiErr.Code, Body: apiErr.Message}
		}
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}
