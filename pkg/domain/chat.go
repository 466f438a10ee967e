package domain

import "time"

// LastMessage is the preview attached to a conversation.
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a chat thread summary from the conversations endpoint.
type Conversation struct {
	ID               int64        `json:"id"`
	Request          int64        `json:"request,omitempty"`
	OtherParticipant *User        `json:"other_participant,omitempty"`
	LastMessage      *LastMessage `json:"last_message,omitempty"`
	UnreadCount      int          `json:"unread_count"`
}

// ChatMessage is a single message in a thread.
type ChatMessage struct {
	ID        int64      `json:"id"`
	FromUser  int64      `json:"from_user"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
