package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the LLM Client interface.
// Responses are served in order; once exhausted the last one repeats.
// A Handler, when set, takes precedence.
type MockClient struct {
	Responses []string
	Err       error
	Handler   func(req Request) (string, error)

	mu    sync.Mutex
	Calls []Request // records requests sent
}

// Complete records the call and returns the next scripted response.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.Calls)
	m.Calls = append(m.Calls, req)

	if m.Handler != nil {
		content, err := m.Handler(req)
		if err != nil {
			return nil, err
		}
		return &Response{Content: content, Provider: "mock"}, nil
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &Response{Provider: "mock"}, nil
	}
	if n >= len(m.Responses) {
		n = len(m.Responses) - 1
	}
	return &Response{Content: m.Responses[n], Provider: "mock"}, nil
}

// CallCount returns how many requests were made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
