package dto

import (
	"time"

	"github.com/command-center/helpdesk/internal/domain"
)

// CreateTicketRequest is the ticket creation payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
	Category    string `json:"category,omitempty"`
}

// UpdateTicketRequest is a partial update; absent fields stay unchanged.
type UpdateTicketRequest struct {
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
	AgentID  *string `json:"agent_id,omitempty"`
}

// AssignTicketRequest routes a ticket to an agent.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// CreateMessageRequest appends to a ticket conversation.
type CreateMessageRequest struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// TicketResponse is the public ticket shape.
type TicketResponse struct {
	ID                    string     `json:"id"`
	CustomerID            string     `json:"customer_id"`
	AgentID               *string    `json:"agent_id,omitempty"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Status                string     `json:"status"`
	Priority              string     `json:"priority"`
	Category              string     `json:"category"`
	Confidence            float64    `json:"confidence"`
	Breached              bool       `json:"breached"`
	ResponseTimeMinutes   *float64   `json:"response_time_minutes,omitempty"`
	ResolutionTimeMinutes *float64   `json:"resolution_time_minutes,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	ResolvedAt            *time.Time `json:"resolved_at,omitempty"`
}

// MessageResponse is the public message shape.
type MessageResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	SenderID   string    `json:"sender_id"`
	SenderRole string    `json:"sender_role"`
	Content    string    `json:"content"`
	Type       string    `json:"type"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEntryResponse is the public audit trail shape.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicketResponse maps the domain record.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                    ticket.ID,
		CustomerID:            ticket.CustomerID,
		AgentID:               ticket.AgentID,
		Title:                 ticket.Title,
		Description:           ticket.Description,
		Status:                string(ticket.Status),
		Priority:              string(ticket.Priority),
		Category:              ticket.Category,
		Confidence:            ticket.Confidence,
		Breached:              ticket.Breached,
		ResponseTimeMinutes:   ticket.ResponseTimeMinutes,
		ResolutionTimeMinutes: ticket.ResolutionTimeMinutes,
		CreatedAt:             ticket.CreatedAt,
		UpdatedAt:             ticket.UpdatedAt,
		ResolvedAt:            ticket.ResolvedAt,
	}
}

// NewMessageResponse maps the domain record.
func NewMessageResponse(message *domain.Message) MessageResponse {
	return MessageResponse{
		ID:         message.ID,
		TicketID:   message.TicketID,
		SenderID:   message.SenderID,
		SenderRole: string(message.SenderRole),
		Content:    message.Content,
		Type:       string(message.Type),
		Read:       message.Read,
		CreatedAt:  message.CreatedAt,
	}
}

// NewAuditEntryResponse maps the domain record.
func NewAuditEntryResponse(entry *domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        entry.ID,
		TicketID:  entry.TicketID,
		ActorID:   entry.ActorID,
		Action:    string(entry.Action),
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		CreatedAt: entry.CreatedAt,
	}
}
