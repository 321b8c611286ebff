package dto

import (
	"time"

	"github.com/command-center/helpdesk/internal/domain"
)

// CreateSessionRequest opens a live session.
type CreateSessionRequest struct {
	Type     string  `json:"type"`
	TicketID *string `json:"ticket_id,omitempty"`
}

// SessionResponse is the public session shape.
type SessionResponse struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customer_id"`
	AgentID         *string    `json:"agent_id,omitempty"`
	TicketID        *string    `json:"ticket_id,omitempty"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
}

// ChatMessageResponse is the public chat message shape.
type ChatMessageResponse struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	SenderRole string    `json:"sender_role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// MediaTokenRequest asks for a media room capability token.
type MediaTokenRequest struct {
	RoomName        string `json:"room_name"`
	ParticipantName string `json:"participant_name"`
}

// NewSessionResponse maps the domain record.
func NewSessionResponse(session *domain.Session) SessionResponse {
	return SessionResponse{
		ID:              session.ID,
		CustomerID:      session.CustomerID,
		AgentID:         session.AgentID,
		TicketID:        session.TicketID,
		Type:            string(session.Type),
		Status:          string(session.Status),
		StartedAt:       session.StartedAt,
		EndedAt:         session.EndedAt,
		DurationSeconds: session.DurationSeconds,
	}
}

// NewChatMessageResponse maps the domain record.
func NewChatMessageResponse(message *domain.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:         message.ID,
		SessionID:  message.SessionID,
		SenderID:   message.SenderID,
		SenderName: message.SenderName,
		SenderRole: string(message.SenderRole),
		Content:    message.Content,
		CreatedAt:  message.CreatedAt,
	}
}
