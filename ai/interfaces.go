package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Callers must validate the vector length against Dimension; the
	// embedder itself reports provider output as-is.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed vector length the configured model
	// declares for its embeddings.
	Dimension() int
}

// TurnRole identifies the author of a conversation turn.
type TurnRole int

const (
	// RoleUser represents the human user.
	RoleUser TurnRole = iota + 1
	// RoleAssistant represents the assistant.
	RoleAssistant
)

// Turn is one message in a conversation history.
type Turn struct {
	Role    TurnRole
	Content string
}

// ChatModel produces an assistant reply grounded in a system prompt and a
// conversation history. It is the collaborator boundary for the chat side
// of the pipeline; prompt construction happens upstream.
type ChatModel interface {
	// Reply returns the assistant's answer for the given system prompt
	// and ordered conversation turns.
	Reply(ctx context.Context, systemPrompt string, turns []Turn) (string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. Providers are constructed fully initialized at
// process start and passed by reference into pipeline components; there
// is no lazy construction behind the interface.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ChatModel returns the conversational model service.
	ChatModel() ChatModel

	// Close releases resources held by the provider and its services.
	Close() error
}
