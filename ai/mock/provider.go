package mock

import "github.com/poiesic/vitalit/ai"

// MockProvider is a test double for ai.Provider aggregating mock services.
type MockProvider struct {
	MockEmbedder  *MockEmbedder
	MockChatModel *MockChatModel
}

// NewMockProvider creates a provider backed by default mock services.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		MockEmbedder:  NewMockEmbedder(),
		MockChatModel: NewMockChatModel(),
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.MockEmbedder
}

// ChatModel returns the mock chat model.
func (p *MockProvider) ChatModel() ai.ChatModel {
	return p.MockChatModel
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
