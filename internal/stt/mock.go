package stt

import "context"

// MockTranscriber returns canned output and records invocations.
type MockTranscriber struct {
	Text  string
	Err   error
	Calls int
}

func (m *MockTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
