package tts

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

const (
	speechModel = openai.TTSModel1
	speechVoice = openai.VoiceNova
)

type openaiSynthesizer struct {
	client *openai.Client
}

// NewOpenAISynthesizer returns a Synthesizer backed by the hosted speech
// endpoint with a fixed model and voice.
func NewOpenAISynthesizer(client *openai.Client) Synthesizer {
	return &openaiSynthesizer{client: client}
}

func (s *openaiSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: speechModel,
		Input: text,
		Voice: speechVoice,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return audio, nil
}
