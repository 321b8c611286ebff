package domain

import "time"

// SessionType is the live-interaction medium of a session.
type SessionType string

const (
	SessionTypeChat  SessionType = "chat"
	SessionTypeVoice SessionType = "voice"
	SessionTypeVideo SessionType = "video"
)

// ValidSessionType reports whether t names a known session type.
func ValidSessionType(t SessionType) bool {
	switch t {
	case SessionTypeChat, SessionTypeVoice, SessionTypeVideo:
		return true
	}
	return false
}

// SessionStatus enumerates the session lifecycle. Ended is terminal.
type SessionStatus string

const (
	SessionStatusWaiting SessionStatus = "waiting"
	SessionStatusActive  SessionStatus = "active"
	SessionStatusEnded   SessionStatus = "ended"
)

// Session is a live chat/voice/video interaction between a customer and an
// agent. DurationSeconds is an exactly-once field set at the transition into
// ended, equal to EndedAt-StartedAt in seconds.
type Session struct {
	ID              string
	CustomerID      string
	AgentID         *string
	TicketID        *string
	Type            SessionType
	Status          SessionStatus
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationSeconds *float64
}

// Ended reports whether the session reached its terminal state.
func (s *Session) Ended() bool {
	return s.Status == SessionStatusEnded
}
