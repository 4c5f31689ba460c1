package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI generates reports with an OpenAI chat model in JSON object mode.
// The schema travels in the prompt since the request only pins the format.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAI) Generate(ctx context.Context, prompt string, images []Image) (string, error) {
	schema, err := json.Marshal(JSONSchema(ReportSchema()))
	if err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}

	content := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt + "\n\nJSON Schema:\n" + string(schema),
	}}
	for _, img := range images {
		content = append(content, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: fmt.Sprintf("[%s]", img.Label)})
		content = append(content, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", img.MIME, base64.StdEncoding.EncodeToString(img.Data)),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, MultiContent: content}},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
