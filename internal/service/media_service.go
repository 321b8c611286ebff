package service

import (
	"context"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/config"
	"github.com/command-center/helpdesk/internal/domain"
	apperrors "github.com/command-center/helpdesk/pkg/util"
)

// MediaService authorizes callers for a media room and signs capability
// tokens for the external media server. The media plane itself is outside
// this service; the token and url are handed through verbatim.
type MediaService struct {
	sessions *SessionService
	cfg      config.LiveKitConfig
	now      func() time.Time
}

// NewMediaService constructs the service.
func NewMediaService(sessions *SessionService, cfg config.LiveKitConfig) *MediaService {
	return &MediaService{sessions: sessions, cfg: cfg, now: time.Now}
}

// MediaToken is the issued capability plus connection details.
type MediaToken struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	RoomName string `json:"room_name"`
}

// videoGrant mirrors the media server's grant claim shape.
type videoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type mediaClaims struct {
	Name  string     `json:"name"`
	Video videoGrant `json:"video"`
	jwt.RegisteredClaims
}

// IssueToken authorizes the identity for the room and signs a token. Room
// names are session ids; the caller must be a party to that session.
func (s *MediaService) IssueToken(ctx context.Context, identity *domain.Identity, roomName, participantName string) (*MediaToken, error) {
	roomName = strings.TrimSpace(roomName)
	participantName = strings.TrimSpace(participantName)
	if roomName == "" || participantName == "" {
		return nil, apperrors.NewValidationError("room_name and participant_name are required", nil)
	}

	session, err := s.sessions.load(ctx, roomName)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessSession(identity, session) {
		return nil, apperrors.NewForbidden("access denied")
	}

	now := s.now()
	claims := &mediaClaims{
		Name: participantName,
		Video: videoGrant{
			Room:           roomName,
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.APIKey,
			Subject:   identity.ID,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(6 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.APISecret))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	return &MediaToken{Token: signed, URL: s.cfg.URL, RoomName: roomName}, nil
}
