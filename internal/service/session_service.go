package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/domain"
	"github.com/command-center/helpdesk/internal/events"
	"github.com/command-center/helpdesk/internal/repository"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

// SessionService owns the live-session lifecycle: waiting → active → ended,
// with ended terminal. Transitions on one session are serialized on a
// per-session lock.
type SessionService struct {
	sessions   repository.SessionRepository
	chat       repository.ChatMessageRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	locks      *entityLocks
	now        func() time.Time
}

// SessionDependencies bundles collaborators for the session service.
type SessionDependencies struct {
	SessionRepo repository.SessionRepository
	ChatRepo    repository.ChatMessageRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewSessionService constructs the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	return &SessionService{
		sessions:   deps.SessionRepo,
		chat:       deps.ChatRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		locks:      newEntityLocks(),
		now:        time.Now,
	}
}

// Create opens a waiting session. Only customers start sessions; agents
// join existing ones.
func (s *SessionService) Create(ctx context.Context, identity *domain.Identity, sessionType domain.SessionType, ticketID *string) (*domain.Session, error) {
	if !domain.ValidSessionType(sessionType) {
		return nil, apperrors.NewValidationError("invalid session type", map[string]any{"type": sessionType})
	}
	if identity.Role != domain.RoleCustomer {
		return nil, apperrors.NewForbidden("only customers can create sessions")
	}

	session := &domain.Session{
		CustomerID: identity.ID,
		TicketID:   ticketID,
		Type:       sessionType,
		Status:     domain.SessionStatusWaiting,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.New(
		events.EventSessionCreated,
		events.SessionChannel(session.ID),
		actorOf(identity),
		events.SessionCreatedPayload{Session: session},
	))
	return session, nil
}

// ListActive returns waiting and active sessions visible to the identity:
// customers their own, agents those assigned to them, admins everything.
func (s *SessionService) ListActive(ctx context.Context, identity *domain.Identity) ([]domain.Session, error) {
	filter := repository.SessionFilter{
		Statuses: []domain.SessionStatus{domain.SessionStatusWaiting, domain.SessionStatusActive},
	}
	switch identity.Role {
	case domain.RoleAdmin:
	case domain.RoleAgent:
		agentID := identity.ID
		filter.AgentID = &agentID
	default:
		customerID := identity.ID
		filter.CustomerID = &customerID
	}
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sessions, nil
}

// Join moves a waiting session to active and records the joining agent.
// Legal only from waiting or active; joining an ended session is an invalid
// transition. Idempotent for repeat joiners: the first observed agent is
// kept, later joiners are admitted without overwriting agentId.
func (s *SessionService) Join(ctx context.Context, identity *domain.Identity, sessionID string) (*domain.Session, error) {
	if identity.Role == domain.RoleCustomer || identity.Role == domain.RoleMember {
		return nil, apperrors.NewForbidden("only agents can join sessions")
	}

	release := s.locks.acquire(sessionID)
	defer release()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Ended() {
		return nil, apperrors.NewInvalidTransition("session has ended", map[string]any{"id": sessionID})
	}

	if session.AgentID == nil {
		agentID := identity.ID
		session.AgentID = &agentID
	}
	session.Status = domain.SessionStatusActive

	// agent_id coalesces in storage too: first assignment observed wins
	// even if two joins race across processes.
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.New(
		events.EventSessionJoined,
		events.SessionChannel(session.ID),
		actorOf(identity),
		events.SessionJoinedPayload{Session: session, AgentID: identity.ID},
	))
	return session, nil
}

// End terminates the session and stamps durationSeconds exactly once.
// Ending an already-ended session is a no-op returning the stored record.
func (s *SessionService) End(ctx context.Context, identity *domain.Identity, sessionID string) (*domain.Session, error) {
	release := s.locks.acquire(sessionID)
	defer release()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if identity.Role == domain.RoleCustomer && session.CustomerID != identity.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if session.Ended() {
		return session, nil
	}

	endedAt := s.now()
	seconds := endedAt.Sub(session.StartedAt).Seconds()
	if seconds < 0 {
		seconds = 0
	}
	session.Status = domain.SessionStatusEnded
	session.EndedAt = &endedAt
	session.DurationSeconds = &seconds

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.New(
		events.EventSessionEnded,
		events.SessionChannel(session.ID),
		actorOf(identity),
		events.SessionEndedPayload{Session: session},
	))
	return session, nil
}

// Get loads a session for entitled callers.
func (s *SessionService) Get(ctx context.Context, identity *domain.Identity, sessionID string) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessSession(identity, session) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return session, nil
}

// SendChatMessage persists a chat message and fans it out to the session
// room. Persistence happens-before the broadcast; if the write fails the
// event is still emitted, flagged best-effort, because dropping a
// user-visible message is worse than re-delivering one. The per-session
// lock serializes persist+publish pairs so room delivery order matches
// commit order.
func (s *SessionService) SendChatMessage(ctx context.Context, identity *domain.Identity, sessionID, content string) error {
	release := s.locks.acquire(sessionID)
	defer release()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if !auth.CanAccessSession(identity, session) {
		return apperrors.NewForbidden("access denied")
	}
	if session.Ended() {
		return apperrors.NewInvalidTransition("session has ended", map[string]any{"id": sessionID})
	}

	message := &domain.ChatMessage{
		SessionID:  session.ID,
		SenderID:   identity.ID,
		SenderName: identity.Name,
		SenderRole: identity.Role,
		Content:    content,
	}
	bestEffort := false
	if err := s.chat.Create(ctx, message); err != nil {
		bestEffort = true
		message.CreatedAt = s.now()
		s.logger.Warn("chat message persistence failed; broadcasting anyway",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	s.publish(ctx, events.New(
		events.EventChatMessageSent,
		events.SessionChannel(session.ID),
		actorOf(identity),
		events.ChatMessagePayload{Message: message, BestEffort: bestEffort},
	))
	return nil
}

// ChatHistory lists persisted chat messages for entitled callers.
func (s *SessionService) ChatHistory(ctx context.Context, identity *domain.Identity, sessionID string) ([]domain.ChatMessage, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessSession(identity, session) {
		return nil, apperrors.NewForbidden("access denied")
	}
	messages, err := s.chat.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return messages, nil
}

// AuthorizeChannel implements realtime channel authorization for session
// rooms.
func (s *SessionService) AuthorizeChannel(ctx context.Context, identity *domain.Identity, channel events.Channel) error {
	session, err := s.load(ctx, channel.ID)
	if err != nil {
		return err
	}
	if !auth.CanAccessSession(identity, session) {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}

func (s *SessionService) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("session", map[string]any{"id": sessionID})
		}
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

func (s *SessionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
