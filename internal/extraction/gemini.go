package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiGenerator talks to the Google Gemini API.
type geminiGenerator struct {
	apiKey string
	model  string
}

func (g *geminiGenerator) generate(ctx context.Context, prompt string, imageData []byte, mimeType string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(0.1)

	// genai wants the bare image format, not the full MIME type.
	format := "jpeg"
	if strings.HasPrefix(mimeType, "image/") {
		format = strings.TrimPrefix(mimeType, "image/")
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(format, imageData))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("unexpected response format from Gemini")
}
