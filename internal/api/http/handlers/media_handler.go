package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/command-center/helpdesk/internal/api/dto"
	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/service"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

// MediaHandler issues media room capability tokens.
type MediaHandler struct {
	service *service.MediaService
}

// NewMediaHandler constructs handler.
func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{service: mediaService}
}

// Token POST /media/token.
func (h *MediaHandler) Token(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.MediaTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.RoomName) == "" {
		return apperrors.NewValidationError("room_name required", nil)
	}
	participant := strings.TrimSpace(req.ParticipantName)
	if participant == "" {
		participant = identity.Name
	}

	token, err := h.service.IssueToken(c.UserContext(), identity, req.RoomName, participant)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": token})
}
