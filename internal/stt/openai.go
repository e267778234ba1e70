package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const transcribeModel = openai.Whisper1

type openaiTranscriber struct {
	client *openai.Client
}

// NewOpenAITranscriber returns a Transcriber backed by the hosted
// transcription endpoint. The audio is uploaded as a multipart file part;
// the filename extension tells the provider the container format.
func NewOpenAITranscriber(client *openai.Client) Transcriber {
	return &openaiTranscriber{client: client}
}

func (t *openaiTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    transcribeModel,
		FilePath: filenameForMIME(mimeType),
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return resp.Text, nil
}

// filenameForMIME maps a media type to the synthetic filename attached to
// the upload. Unknown types fall back to webm, matching the request default.
func filenameForMIME(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "audio/mpeg", "audio/mp3":
		return "audio.mp3"
	case "audio/mp4", "audio/x-m4a", "audio/m4a":
		return "audio.m4a"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "audio.wav"
	case "audio/ogg", "application/ogg":
		return "audio.ogg"
	case "audio/flac", "audio/x-flac":
		return "audio.flac"
	default:
		return "audio.webm"
	}
}
