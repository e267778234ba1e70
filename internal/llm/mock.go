package llm

import "context"

// MockGenerator returns canned output and records invocations.
type MockGenerator struct {
	Reply string
	Err   error
	Calls int
}

func (m *MockGenerator) Generate(_ context.Context, _ string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}
