package tts

import "context"

// Synthesizer abstracts text-to-speech backends. The returned bytes are the
// raw encoded audio exactly as the upstream produced it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
