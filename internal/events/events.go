package events

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/command-center/helpdesk/internal/domain"
)

// ChannelKind namespaces realtime channels so ticket and session ids can
// never collide.
type ChannelKind string

const (
	ChannelTicket  ChannelKind = "ticket"
	ChannelSession ChannelKind = "chat"
)

// Channel is the typed address of a realtime room.
type Channel struct {
	Kind ChannelKind
	ID   string
}

// TicketChannel addresses the room for one ticket.
func TicketChannel(ticketID string) Channel {
	return Channel{Kind: ChannelTicket, ID: ticketID}
}

// SessionChannel addresses the room for one live session.
func SessionChannel(sessionID string) Channel {
	return Channel{Kind: ChannelSession, ID: sessionID}
}

// String renders the wire form, e.g. "ticket:<id>" or "chat:<id>".
func (c Channel) String() string {
	return string(c.Kind) + ":" + c.ID
}

// ParseChannel parses the wire form back into a typed channel. Unknown kinds
// and empty ids are rejected.
func ParseChannel(s string) (Channel, bool) {
	kind, id, found := strings.Cut(s, ":")
	if !found || id == "" {
		return Channel{}, false
	}
	switch ChannelKind(kind) {
	case ChannelTicket, ChannelSession:
		return Channel{Kind: ChannelKind(kind), ID: id}, true
	}
	return Channel{}, false
}

// EventType enumerates the closed set of domain events.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketMessageAdded EventType = "ticket_message_added"
	EventSessionCreated     EventType = "session_created"
	EventSessionJoined      EventType = "session_joined"
	EventSessionEnded       EventType = "session_ended"
	EventChatMessageSent    EventType = "chat_message"
	EventTicketsRefresh     EventType = "tickets_refresh"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by the state machines. Payload is
// always one of the typed payload structs below; events never carry
// free-form maps.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Channel   Channel   `json:"-"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with id and timestamp.
func New(eventType EventType, channel Channel, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Channel:   channel,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket *domain.Ticket `json:"ticket"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Ticket    *domain.Ticket      `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Ticket  *domain.Ticket `json:"ticket"`
	AgentID string         `json:"agent_id"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	Message *domain.Message `json:"message"`
}

// SessionCreatedPayload payload.
type SessionCreatedPayload struct {
	Session *domain.Session `json:"session"`
}

// SessionJoinedPayload payload.
type SessionJoinedPayload struct {
	Session *domain.Session `json:"session"`
	AgentID string          `json:"agent_id"`
}

// SessionEndedPayload payload.
type SessionEndedPayload struct {
	Session *domain.Session `json:"session"`
}

// ChatMessagePayload payload. BestEffort marks a message broadcast despite a
// persistence failure; delivery is preferred over dropping it.
type ChatMessagePayload struct {
	Message    *domain.ChatMessage `json:"message"`
	BestEffort bool                `json:"best_effort,omitempty"`
}

// TicketsRefreshPayload signals list views to reload. Intentionally empty:
// any ticket change invalidates every list view.
type TicketsRefreshPayload struct{}
