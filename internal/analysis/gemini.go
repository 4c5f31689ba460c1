package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini generates reports with a Gemini model constrained by ReportSchema.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client error: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string, images []Image) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.0)
	model.SetTopK(1)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = ReportSchema()

	parts := []genai.Part{genai.Text(prompt)}
	for _, img := range images {
		parts = append(parts, genai.Text(fmt.Sprintf("[%s]", img.Label)))
		parts = append(parts, genai.ImageData(strings.TrimPrefix(img.MIME, "image/"), img.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}

	var result strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if txt, ok := part.(genai.Text); ok {
					result.WriteString(string(txt))
				}
			}
		}
	}
	if result.Len() == 0 {
		return "", errors.New("gemini returned no text")
	}
	return result.String(), nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// ModelInfo describes one model available to the API key.
type ModelInfo struct {
	Name    string
	Methods []string
}

// ListModels pages through every model the key can use.
func (g *Gemini) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	iter := g.client.ListModels(ctx)
	for {
		m, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		models = append(models, ModelInfo{Name: m.Name, Methods: m.SupportedGenerationMethods})
	}
	return models, nil
}
