package llm

import "context"

// MockClient is a test double for the LLM Client interface.
type MockClient struct {
	Response *Response
	Err      error
	Systems  []string // records system prompts sent
	Calls    []string // records user messages sent
}

// Chat records the call and returns the mock response.
func (m *MockClient) Chat(ctx context.Context, system, user string) (*Response, error) {
	m.Systems = append(m.Systems, system)
	m.Calls = append(m.Calls, user)
	return m.Response, m.Err
}
