package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	chatModel = openai.GPT4oMini
	// Replies are spoken aloud, so output is kept short.
	maxReplyTokens = 150
	temperature    = 0.7
)

type openaiGenerator struct {
	client *openai.Client
}

// NewOpenAIGenerator returns a Generator backed by the hosted chat
// completion endpoint, pairing the fixed persona with the caller transcript.
func NewOpenAIGenerator(client *openai.Client) Generator {
	return &openaiGenerator{client: client}
}

func (g *openaiGenerator) Generate(ctx context.Context, transcript string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: TravelGuidePersona},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
		MaxTokens:   maxReplyTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
