// Package session owns the per-user conversation collections: the message
// and session data model, title derivation, and the persisted store.
//
// Persistence model: one flat JSON document mapping username to session
// list, wholly rewritten on every mutation. Cross-process consistency is
// last-writer-wins, guarded by an advisory file lock via
// [github.com/gofrs/flock]. The in-memory view and the persisted file are
// equal after every mutating operation.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Valid message roles. The model role covers both streamed chat replies
// and generated-image captions.
const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// TitleSentinel is the title of a freshly created session. It is rewritten
// exactly once, on the session's first completed exchange.
const TitleSentinel = "New Conversation"

// ImageTitle is the title given to a session whose first exchange carried
// an attached image.
const ImageTitle = "Image Analysis"

// WelcomeText seeds every new session so the message list is never empty.
const WelcomeText = "Hello. I am **Hara AI 1.0**. How can I assist you today?"

// titleMax bounds the derived title length before the ellipsis is added.
const titleMax = 30

// Message is a single conversation entry. A message is immutable once
// Streaming becomes false; while streaming, only Content may change.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"` // data URI or image URL
	Timestamp time.Time `json:"timestamp"`
	Streaming bool      `json:"isStreaming,omitempty"`
}

// ChatSession is one conversation owned by a single user. Messages is never
// empty: a session is seeded with a welcome message at creation.
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewChatSession creates a session for username seeded with the welcome
// message and the sentinel title.
func NewChatSession(username string) ChatSession {
	now := time.Now()
	return ChatSession{
		ID:     uuid.New(),
		UserID: username,
		Title:  TitleSentinel,
		Messages: []Message{{
			ID:        uuid.New(),
			Role:      RoleModel,
			Content:   WelcomeText,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. Callers that hand sessions across goroutine
// boundaries clone first so the store's view cannot be mutated externally.
func (s ChatSession) Clone() ChatSession {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}

// DeriveTitle rewrites the sentinel title after the first completed
// exchange and is a no-op on every later exchange. An exchange that
// carried an image gets the fixed image label; otherwise the title is a
// truncated prefix of the user's text.
func (s *ChatSession) DeriveTitle(userText string, hadImage bool) {
	if s.Title != TitleSentinel {
		return
	}
	if hadImage {
		s.Title = ImageTitle
		return
	}
	s.Title = TruncateTitle(userText)
}

// TruncateTitle shortens text to the title limit, appending an ellipsis
// marker when the text was longer. Truncation is rune-safe.
func TruncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMax {
		return text
	}
	return string(runes[:titleMax]) + "..."
}

// ContextHistory returns the messages eligible as model context: only
// finished messages with non-empty content. Stale placeholders and empty
// turns never reach the provider.
func (s ChatSession) ContextHistory() []Message {
	out := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Streaming || strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
