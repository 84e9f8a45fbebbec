package history

import (
	"fmt"
	"time"
)

// Role tags the speaker of a message.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleHuman, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single utterance in a conversation. Content is opaque to this
// package. Messages are values and are never mutated once appended.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage builds a Message, rejecting unknown roles.
func NewMessage(role Role, content string) (Message, error) {
	if !role.Valid() {
		return Message{}, fmt.Errorf("history: unknown message role %q", role)
	}
	return Message{Role: role, Content: content, CreatedAt: time.Now()}, nil
}
