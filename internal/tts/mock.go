package tts

import "context"

// MockSynthesizer returns canned output and records invocations.
type MockSynthesizer struct {
	Audio []byte
	Err   error
	Calls int
}

func (m *MockSynthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Audio, nil
}
