package domain

import "time"

// MessageType classifies ticket messages.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// Message is a ticket conversation entry. Append-only; never mutated after
// creation apart from the read marker. Ordering is creation time per ticket.
type Message struct {
	ID         string
	TicketID   string
	SenderID   string
	SenderRole Role
	Content    string
	Type       MessageType
	Read       bool
	CreatedAt  time.Time
}

// ChatMessage is a live-session message. Append-only.
type ChatMessage struct {
	ID         string
	SessionID  string
	SenderID   string
	SenderName string
	SenderRole Role
	Content    string
	CreatedAt  time.Time
}
