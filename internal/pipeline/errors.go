package pipeline

import (
	"errors"
	"fmt"
)

// Stage names carried by upstream failures.
const (
	StageTranscription = "transcription"
	StageGeneration    = "ai-response"
	StageSynthesis     = "speech-synthesis"
)

// Validation failures. The messages are the user-visible error strings.
var (
	ErrNoAudio           = errors.New("No audio data provided")
	ErrInvalidAudio      = errors.New("Invalid base64 audio data")
	ErrMissingCredential = errors.New("OpenAI API key not configured")
)

// UpstreamError marks a non-success response from one of the three outbound
// calls. It keeps the stage identity and wraps the raw upstream error.
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsBadRequest reports whether err maps to HTTP 400.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrNoAudio) || errors.Is(err, ErrInvalidAudio)
}
