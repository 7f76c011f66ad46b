package ai

import "context"

// MockAIClient is a mock implementation of service.CompletionClient for testing
type MockAIClient struct {
	GenerateFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	Calls      int
	LastSystem string
	LastUser   string
}

func NewMockAIClient() *MockAIClient {
	return &MockAIClient{}
}

func (m *MockAIClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.Calls++
	m.LastSystem = systemPrompt
	m.LastUser = userPrompt
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, systemPrompt, userPrompt)
	}

	// Default mock behavior: a fixed reply
	return "Thanks for reaching out. I'll get back to you shortly.", nil
}
