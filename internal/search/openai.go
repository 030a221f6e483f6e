package search

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

const openAISystemPrompt = "You are a helpful assistant that searches the internet for current information."

// OpenAI runs searches through an OpenAI search-preview chat model.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates the provider. baseURL overrides the API endpoint when
// non-empty.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Search(ctx context.Context, query string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openAISystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return "", &APIError{Message: "OpenAI API error", Details: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{Message: "OpenAI API error", Details: "no response from OpenAI"}
	}
	return resp.Choices[0].Message.Content, nil
}
