package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/command-center/helpdesk/internal/api/dto"
	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/domain"
	"github.com/command-center/helpdesk/internal/service"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

// SessionsHandler serves the live session endpoints.
type SessionsHandler struct {
	service *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessionService *service.SessionService) *SessionsHandler {
	return &SessionsHandler{service: sessionService}
}

// Create POST /sessions.
func (h *SessionsHandler) Create(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	session, err := h.service.Create(c.UserContext(), identity, domain.SessionType(req.Type), req.TicketID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// ListActive GET /sessions/active.
func (h *SessionsHandler) ListActive(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	sessions, err := h.service.ListActive(c.UserContext(), identity)
	if err != nil {
		return err
	}
	out := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, dto.NewSessionResponse(&sessions[i]))
	}
	return c.JSON(fiber.Map{"data": out, "count": len(out)})
}

// Get GET /sessions/:id.
func (h *SessionsHandler) Get(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	session, err := h.service.Get(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// Join POST /sessions/:id/join.
func (h *SessionsHandler) Join(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	session, err := h.service.Join(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// End POST /sessions/:id/end.
func (h *SessionsHandler) End(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	session, err := h.service.End(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// ChatHistory GET /sessions/:id/chat.
func (h *SessionsHandler) ChatHistory(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	messages, err := h.service.ChatHistory(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, dto.NewChatMessageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": out, "count": len(out)})
}
