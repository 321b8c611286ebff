package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/config"
	"github.com/command-center/helpdesk/internal/domain"
	"github.com/command-center/helpdesk/internal/events"
	"github.com/command-center/helpdesk/internal/repository"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

// Urgency keywords feeding the confidence score.
var urgencyKeywords = regexp.MustCompile(`(?i)urgent|critical|important|issue|problem|error|bug|broken`)

// scoreConfidence derives the triage confidence from the description:
// base 0.70, +0.10 for descriptions over 50 characters, +0.15 when an
// urgency keyword appears, clamped to [0.70, 0.95].
func scoreConfidence(description string) float64 {
	confidence := 0.70
	if len(description) > 50 {
		confidence += 0.10
	}
	if urgencyKeywords.MatchString(description) {
		confidence += 0.15
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

// TicketService owns the ticket lifecycle. All mutations of a single ticket
// are serialized on a per-ticket lock; the authorization gate has already
// run by the time a method is entered, so the critical section holds only
// the state mutation and event construction.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.MessageRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	sla        config.SLAConfig
	locks      *entityLocks
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.MessageRepository
	AuditRepo   repository.AuditRepository
	Dispatcher  events.Dispatcher
	SLA         config.SLAConfig
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
		sla:        deps.SLA,
		locks:      newEntityLocks(),
		now:        time.Now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    string
}

// TicketUpdateInput describes a partial ticket update. Nil fields are left
// unchanged.
type TicketUpdateInput struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
	AgentID  *string
}

// TicketListFilter describes listing parameters from the caller.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// Create opens a new ticket for the identity, scores its confidence, and
// records a system message.
func (s *TicketService) Create(ctx context.Context, identity *domain.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidTicketPriority(priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = "general"
	}

	ticket := &domain.Ticket{
		CustomerID:  identity.ID,
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		Category:    category,
		Confidence:  scoreConfidence(description),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	systemMsg := &domain.Message{
		TicketID:   ticket.ID,
		SenderID:   identity.ID,
		SenderRole: identity.Role,
		Content:    fmt.Sprintf("Ticket created: %s", ticket.Title),
		Type:       domain.MessageTypeSystem,
	}
	if err := s.messages.Create(ctx, systemMsg); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.New(
		events.EventTicketCreated,
		events.TicketChannel(ticket.ID),
		actorOf(identity),
		events.TicketCreatedPayload{Ticket: ticket},
	))
	return ticket, nil
}

// Get loads a ticket with its conversation, enforcing ownership for
// customers. Agents and admins may read any ticket.
func (s *TicketService) Get(ctx context.Context, identity *domain.Identity, ticketID string) (*domain.Ticket, []domain.Message, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !auth.CanAccessTicket(identity, ticket) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	messages, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, messages, nil
}

// List returns tickets visible to the identity. Customers see their own;
// agents and admins see everything.
func (s *TicketService) List(ctx context.Context, identity *domain.Identity, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	switch identity.Role {
	case domain.RoleAgent, domain.RoleAdmin:
	default:
		customerID := identity.ID
		repoFilter.CustomerID = &customerID
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Assign routes the ticket to an agent. The first assignment stamps
// responseTimeMinutes; repeated assignment keeps the first value.
func (s *TicketService) Assign(ctx context.Context, identity *domain.Identity, ticketID, agentID string) (*domain.Ticket, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, apperrors.NewValidationError("agent_id required", nil)
	}

	release := s.locks.acquire(ticketID)
	defer release()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldAgent := ""
	if ticket.AgentID != nil {
		oldAgent = *ticket.AgentID
	}
	ticket.AgentID = &agentID
	ticket.Status = domain.TicketStatusAssigned

	if ticket.ResponseTimeMinutes == nil {
		minutes := s.now().Sub(ticket.CreatedAt).Minutes()
		if minutes < 0 {
			minutes = 0
		}
		ticket.ResponseTimeMinutes = &minutes
		if s.sla.ResponseMinutes > 0 && minutes > float64(s.sla.ResponseMinutes) {
			ticket.Breached = true
		}
	}

	// The repository coalesces response_time_minutes, so a lost race on a
	// replica still keeps the first writer's value.
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordAudit(ctx, identity, ticket.ID, domain.AuditAssigned, oldAgent, agentID)
	s.publish(ctx, events.New(
		events.EventTicketAssigned,
		events.TicketChannel(ticket.ID),
		actorOf(identity),
		events.TicketAssignedPayload{Ticket: ticket, AgentID: agentID},
	))
	return ticket, nil
}

// Update applies a partial update. The first transition into resolved stamps
// resolvedAt and resolutionTimeMinutes exactly once; a repeated resolve is
// benign and returns the stored values untouched.
func (s *TicketService) Update(ctx context.Context, identity *domain.Identity, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if input.Status != nil && !domain.ValidTicketStatus(*input.Status) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
	}
	if input.Priority != nil && !domain.ValidTicketPriority(*input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}

	release := s.locks.acquire(ticketID)
	defer release()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessTicket(identity, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	oldStatus := ticket.Status
	if input.Status != nil {
		ticket.Status = *input.Status
	}
	if input.Priority != nil {
		oldPriority := ticket.Priority
		ticket.Priority = *input.Priority
		if oldPriority != ticket.Priority {
			s.recordAudit(ctx, identity, ticket.ID, domain.AuditPriorityChanged, string(oldPriority), string(ticket.Priority))
		}
	}
	if input.AgentID != nil && identity.Role != domain.RoleCustomer {
		ticket.AgentID = input.AgentID
	}

	if ticket.Status == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		now := s.now()
		ticket.ResolvedAt = &now
		minutes := now.Sub(ticket.CreatedAt).Minutes()
		if minutes < 0 {
			minutes = 0
		}
		ticket.ResolutionTimeMinutes = &minutes
		if s.sla.ResolutionMinutes > 0 && minutes > float64(s.sla.ResolutionMinutes) {
			ticket.Breached = true
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if oldStatus != ticket.Status {
		s.recordAudit(ctx, identity, ticket.ID, domain.AuditStatusChanged, string(oldStatus), string(ticket.Status))
	}

	s.publish(ctx, events.New(
		events.EventTicketUpdated,
		events.TicketChannel(ticket.ID),
		actorOf(identity),
		events.TicketUpdatedPayload{Ticket: ticket, OldStatus: oldStatus},
	))
	return ticket, nil
}

// AddMessage appends a conversation message. The first message from a
// non-customer on an open ticket advances it to in-progress as a side
// effect.
func (s *TicketService) AddMessage(ctx context.Context, identity *domain.Identity, ticketID, content string, msgType domain.MessageType) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	release := s.locks.acquire(ticketID)
	defer release()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessTicket(identity, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}

	if ticket.Status == domain.TicketStatusOpen && identity.Role != domain.RoleCustomer {
		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusInProgress
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.recordAudit(ctx, identity, ticket.ID, domain.AuditStatusChanged, string(oldStatus), string(ticket.Status))
		s.publish(ctx, events.New(
			events.EventTicketUpdated,
			events.TicketChannel(ticket.ID),
			actorOf(identity),
			events.TicketUpdatedPayload{Ticket: ticket, OldStatus: oldStatus},
		))
	}

	message := &domain.Message{
		TicketID:   ticket.ID,
		SenderID:   identity.ID,
		SenderRole: identity.Role,
		Content:    content,
		Type:       msgType,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.New(
		events.EventTicketMessageAdded,
		events.TicketChannel(ticket.ID),
		actorOf(identity),
		events.TicketMessageAddedPayload{Message: message},
	))
	return message, nil
}

// Messages lists the conversation for callers entitled to the ticket.
func (s *TicketService) Messages(ctx context.Context, identity *domain.Identity, ticketID string) ([]domain.Message, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessTicket(identity, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	messages, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return messages, nil
}

// MarkMessagesRead flags every message not sent by the reader as read.
func (s *TicketService) MarkMessagesRead(ctx context.Context, identity *domain.Identity, ticketID string) error {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if !auth.CanAccessTicket(identity, ticket) {
		return apperrors.NewForbidden("access denied")
	}
	return apperrors.MapError(s.messages.MarkRead(ctx, ticket.ID, identity.ID))
}

// AuditTrail lists recorded mutations for a ticket. The audit:read scope is
// enforced at the route gate.
func (s *TicketService) AuditTrail(ctx context.Context, ticketID string, limit, offset int) ([]domain.AuditEntry, error) {
	entries, err := s.audit.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// AuthorizeChannel implements realtime channel authorization for ticket
// rooms.
func (s *TicketService) AuthorizeChannel(ctx context.Context, identity *domain.Identity, channel events.Channel) error {
	ticket, err := s.load(ctx, channel.ID)
	if err != nil {
		return err
	}
	if !auth.CanAccessTicket(identity, ticket) {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) recordAudit(ctx context.Context, identity *domain.Identity, ticketID string, action domain.AuditAction, oldValue, newValue string) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		TicketID: ticketID,
		ActorID:  identity.ID,
		Action:   action,
		OldValue: oldValue,
		NewValue: newValue,
	}
	// Audit is trail, not source of truth; a failed write never undoes the
	// transition.
	_ = s.audit.Create(ctx, entry)
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorOf(identity *domain.Identity) events.Actor {
	return events.Actor{ID: identity.ID, Role: identity.Role}
}
