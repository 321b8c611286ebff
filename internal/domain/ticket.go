package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidTicketStatus reports whether s names a known lifecycle state.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidTicketPriority reports whether p names a known priority.
func ValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// ResponseTimeMinutes, ResolutionTimeMinutes and ResolvedAt are exactly-once
// fields: computed on the first qualifying transition, never recomputed.
type Ticket struct {
	ID                    string
	CustomerID            string
	AgentID               *string
	Title                 string
	Description           string
	Status                TicketStatus
	Priority              TicketPriority
	Category              string
	Confidence            float64
	Breached              bool
	ResponseTimeMinutes   *float64
	ResolutionTimeMinutes *float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
	ResolvedAt            *time.Time
}
