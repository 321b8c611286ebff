package domain

import "time"

// AuditAction classifies recorded ticket mutations.
type AuditAction string

const (
	AuditStatusChanged   AuditAction = "status_changed"
	AuditPriorityChanged AuditAction = "priority_changed"
	AuditAssigned        AuditAction = "assigned"
)

// AuditEntry is an append-only trail record for ticket mutations, readable
// by admins holding audit:read.
type AuditEntry struct {
	ID        string
	TicketID  string
	ActorID   string
	Action    AuditAction
	OldValue  string
	NewValue  string
	CreatedAt time.Time
}
