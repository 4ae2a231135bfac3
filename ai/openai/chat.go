package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/vitalit/ai"
	"github.com/poiesic/vitalit/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatModel implements ai.ChatModel using OpenAI-compatible chat APIs.
type ChatModel struct {
	client *openai.LLM
	logger *slog.Logger
}

// newChatModel is an internal constructor that returns the concrete type.
func newChatModel(config *ai.Config) (*ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		client: client,
		logger: slog.Default().With("component", "openai-chat"),
	}, nil
}

// NewChatModel creates a new chat model using the provided configuration.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	return newChatModel(config)
}

// Reply generates an assistant answer for the system prompt and history.
func (m *ChatModel) Reply(ctx context.Context, systemPrompt string, turns []ai.Turn) (string, error) {
	messages := make([]llms.MessageContent, 0, len(turns)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, turn := range turns {
		role := llms.ChatMessageTypeHuman
		if turn.Role == ai.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}

	m.logger.Debug("requesting chat completion", "turns", len(turns))

	resp, err := m.client.GenerateContent(ctx, messages)
	if err != nil {
		m.logger.Error("chat completion failed", "err", err)
		return "", fmt.Errorf("%w: %v", core.ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat model returned no choices", core.ErrProvider)
	}

	return resp.Choices[0].Content, nil
}
