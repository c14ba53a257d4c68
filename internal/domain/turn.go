package domain

import (
	"time"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	// RoleUser marks a question typed by the visitor.
	RoleUser Role = "user"
	// RoleAssistant marks an answer or notice produced by the assistant.
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message in the transcript. Turns are never mutated after creation.
type ConversationTurn struct {
	ID           string        `json:"id"`
	Role         Role          `json:"role"`
	Text         string        `json:"text"`
	CreatedAt    time.Time     `json:"created_at"`
	RelatedItems []ContentItem `json:"related_items,omitempty"`
}

// IsUser reports whether the turn was authored by the visitor.
func (t ConversationTurn) IsUser() bool {
	return t.Role == RoleUser
}
