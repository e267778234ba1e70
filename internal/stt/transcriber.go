package stt

import (
	"context"
)

// DefaultMIMEType is assumed when the caller does not label the audio.
const DefaultMIMEType = "audio/webm"

// Transcriber abstracts speech-to-text backends.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
