package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/command-center/helpdesk/internal/api/dto"
	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/domain"
	"github.com/command-center/helpdesk/internal/service"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

// TicketsHandler serves the ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Create(c.UserContext(), identity, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
		Category:    req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	filter := service.TicketListFilter{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	for _, raw := range splitQuery(c.Query("status")) {
		status := domain.TicketStatus(raw)
		if !domain.ValidTicketStatus(status) {
			return apperrors.NewValidationError("unknown status: "+raw, nil)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range splitQuery(c.Query("priority")) {
		priority := domain.TicketPriority(raw)
		if !domain.ValidTicketPriority(priority) {
			return apperrors.NewValidationError("unknown priority: "+raw, nil)
		}
		filter.Priorities = append(filter.Priorities, priority)
	}

	tickets, err := h.service.List(c.UserContext(), identity, filter)
	if err != nil {
		return err
	}

	out := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": out, "count": len(out)})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	ticket, messages, err := h.service.Get(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}

	msgs := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, dto.NewMessageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket":   dto.NewTicketResponse(ticket),
		"messages": msgs,
	}})
}

// Update PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketUpdateInput{AgentID: req.AgentID}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		if !domain.ValidTicketStatus(status) {
			return apperrors.NewValidationError("unknown status: "+*req.Status, nil)
		}
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		if !domain.ValidTicketPriority(priority) {
			return apperrors.NewValidationError("unknown priority: "+*req.Priority, nil)
		}
		input.Priority = &priority
	}

	ticket, err := h.service.Update(c.UserContext(), identity, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AgentID) == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}

	ticket, err := h.service.Assign(c.UserContext(), identity, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	msgType := domain.MessageTypeText
	if req.Type != "" {
		msgType = domain.MessageType(req.Type)
	}
	message, err := h.service.AddMessage(c.UserContext(), identity, c.Params("id"), req.Content, msgType)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewMessageResponse(message)})
}

// Messages GET /tickets/:id/messages.
func (h *TicketsHandler) Messages(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	messages, err := h.service.Messages(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, dto.NewMessageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": out, "count": len(out)})
}

// MarkRead POST /tickets/:id/messages/read.
func (h *TicketsHandler) MarkRead(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	if err := h.service.MarkMessagesRead(c.UserContext(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"marked": true}})
}

// AuditTrail GET /tickets/:id/audit.
func (h *TicketsHandler) AuditTrail(c *fiber.Ctx) error {
	entries, err := h.service.AuditTrail(c.UserContext(), c.Params("id"), queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		return err
	}
	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, dto.NewAuditEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": out, "count": len(out)})
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
