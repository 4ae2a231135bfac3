package prompt

import (
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/vitalit/ai"
)

// DefaultMaxTurns bounds conversation history per session.
const DefaultMaxTurns = 20

// Session owns the bounded conversation history for one conversation.
// When the cap is reached, the oldest turns are dropped from the front.
// Safe for concurrent use.
type Session struct {
	id       string
	maxTurns int
	turns    []ai.Turn
	mu       sync.Mutex
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxTurns overrides the history cap. Values below 1 are ignored.
func WithMaxTurns(max int) SessionOption {
	return func(s *Session) {
		if max >= 1 {
			s.maxTurns = max
		}
	}
}

// NewSession creates a session with a generated conversation id.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:       uuid.NewString(),
		maxTurns: DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the conversation id.
func (s *Session) ID() string {
	return s.id
}

// Append records a turn, evicting the oldest when over the cap.
func (s *Session) Append(role ai.TurnRole, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, ai.Turn{Role: role, Content: content})
	if len(s.turns) > s.maxTurns {
		s.turns = s.turns[len(s.turns)-s.maxTurns:]
	}
}

// Turns returns a copy of the history in order.
func (s *Session) Turns() []ai.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ai.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the current history length.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
