package mock

import (
	"context"

	"github.com/poiesic/vitalit/ai"
)

// MockChatModel is a test double for ai.ChatModel.
type MockChatModel struct {
	// ReplyFunc is called by Reply if set.
	ReplyFunc func(ctx context.Context, systemPrompt string, turns []ai.Turn) (string, error)

	// LastSystemPrompt records the most recent system prompt for assertions.
	LastSystemPrompt string

	callCount int
}

// NewMockChatModel creates a mock chat model that echoes a canned reply.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Reply returns the injected behavior's answer, or a fixed reply.
func (m *MockChatModel) Reply(ctx context.Context, systemPrompt string, turns []ai.Turn) (string, error) {
	m.callCount++
	m.LastSystemPrompt = systemPrompt

	if m.ReplyFunc != nil {
		return m.ReplyFunc(ctx, systemPrompt, turns)
	}
	return "mock reply", nil
}

// CallCount returns the number of times Reply was called.
func (m *MockChatModel) CallCount() int {
	return m.callCount
}
