package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is a two-party message thread. The participant pair is fixed
// for the conversation's lifetime and stored normalized (ParticipantA < ParticipantB)
// so that one unique constraint covers the unordered pair. Conversations are
// never deleted.
type Conversation struct {
	ID           uuid.UUID `json:"id"`
	ParticipantA uuid.UUID `json:"participant_a"`
	ParticipantB uuid.UUID `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizePair orders two actor ids so (a, t) and (t, a) map to the same pair.
func NormalizePair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if strings.Compare(x.String(), y.String()) > 0 {
		return y, x
	}
	return x, y
}

// HasParticipant reports whether the actor is one of the two participants.
func (c *Conversation) HasParticipant(actorID uuid.UUID) bool {
	return c.ParticipantA == actorID || c.ParticipantB == actorID
}

// Counterpart returns the other participant's id.
func (c *Conversation) Counterpart(actorID uuid.UUID) uuid.UUID {
	if c.ParticipantA == actorID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// Message is immutable once created. ReadAt is set when the recipient views it.
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

const MaxMessageLength = 5000

var (
	ErrEmptyMessage   = errors.New("message content is required")
	ErrMessageTooLong = errors.New("message content exceeds 5000 characters")
)

// ValidateMessageContent trims the content and enforces the 1-5000 character
// bound. Boundary validation only; the access evaluator never sees malformed input.
func ValidateMessageContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if len([]rune(content)) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return content, nil
}

// ConversationSummary is the list-view projection: the thread plus the last
// message and how many of the counterpart's messages are still unread.
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	UnreadCount  int          `json:"unread_count"`
}
