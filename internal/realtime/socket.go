package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/domain"
	"github.com/command-center/helpdesk/internal/events"
)

// ChannelAuthorizer decides whether an identity may subscribe to a channel.
type ChannelAuthorizer interface {
	AuthorizeChannel(ctx context.Context, identity *domain.Identity, channel events.Channel) error
}

// ChatSender persists and fans out a chat message on a live session.
type ChatSender interface {
	SendChatMessage(ctx context.Context, identity *domain.Identity, sessionID, content string) error
}

// SocketHandler terminates websocket connections and bridges them into the
// room registry. It owns no domain state; join authorization and chat
// persistence are delegated.
type SocketHandler struct {
	authMw   *auth.AuthMiddleware
	registry *Registry
	tickets  ChannelAuthorizer
	sessions ChannelAuthorizer
	chat     ChatSender
	logger   *zap.Logger
}

// NewSocketHandler constructs the handler.
func NewSocketHandler(authMw *auth.AuthMiddleware, registry *Registry, tickets, sessions ChannelAuthorizer, chat ChatSender, logger *zap.Logger) *SocketHandler {
	return &SocketHandler{
		authMw:   authMw,
		registry: registry,
		tickets:  tickets,
		sessions: sessions,
		chat:     chat,
		logger:   logger,
	}
}

// Upgrade gates the HTTP→websocket upgrade.
func (h *SocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

type inboundFrame struct {
	Action    string `json:"action"`
	Channel   string `json:"channel,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type outboundFrame struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Channel   string       `json:"channel,omitempty"`
	Actor     events.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   any          `json:"payload"`
}

const connSendBuffer = 32

// wsConn adapts one websocket to the registry's Conn interface. Send never
// blocks; a full buffer drops the event for this connection only.
//
// A broadcast holding a pre-disconnect membership snapshot may call Send
// after close, so both run under the mutex: after close Send reports false
// instead of writing to a closed channel.
type wsConn struct {
	id     string
	mu     sync.Mutex
	send   chan events.Event
	closed bool
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(event events.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Handle runs one websocket connection: a writer goroutine drains the send
// buffer while the read loop processes join/leave/chat frames. The token
// travels as a query parameter because browsers cannot set headers on
// websocket dials.
func (h *SocketHandler) Handle(ws *websocket.Conn) {
	identity, err := h.authMw.IdentityFromToken(ws.Query("token"))
	if err != nil {
		_ = ws.WriteJSON(fiber.Map{"error": "authentication required"})
		_ = ws.Close()
		return
	}

	conn := &wsConn{id: uuid.NewString(), send: make(chan events.Event, connSendBuffer)}
	h.registry.Connect(conn)

	done := make(chan struct{})
	defer func() {
		h.registry.Disconnect(conn)
		conn.close()
		<-done
		_ = ws.Close()
	}()
	go h.writeLoop(ws, conn, done)

	h.logger.Debug("socket connected", zap.String("conn_id", conn.ID()), zap.String("user_id", identity.ID))

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		h.handleFrame(identity, conn, frame)
	}
}

func (h *SocketHandler) writeLoop(ws *websocket.Conn, conn *wsConn, done chan<- struct{}) {
	defer close(done)
	for event := range conn.send {
		frame := outboundFrame{
			ID:        event.ID,
			Type:      string(event.Type),
			Actor:     event.Actor,
			Timestamp: event.Timestamp,
			Payload:   event.Payload,
		}
		if event.Channel.ID != "" {
			frame.Channel = event.Channel.String()
		}
		if err := ws.WriteJSON(frame); err != nil {
			return
		}
	}
}

func (h *SocketHandler) handleFrame(identity *domain.Identity, conn *wsConn, frame inboundFrame) {
	ctx := context.Background()

	switch frame.Action {
	case "join":
		channel, ok := events.ParseChannel(frame.Channel)
		if !ok {
			return
		}
		if err := h.authorizeChannel(ctx, identity, channel); err != nil {
			h.logger.Debug("join denied",
				zap.String("user_id", identity.ID),
				zap.String("channel", channel.String()),
				zap.Error(err),
			)
			return
		}
		h.registry.Join(channel, conn)
	case "leave":
		channel, ok := events.ParseChannel(frame.Channel)
		if !ok {
			return
		}
		h.registry.Leave(channel, conn)
	case "chat":
		if frame.SessionID == "" || frame.Content == "" {
			return
		}
		if err := h.chat.SendChatMessage(ctx, identity, frame.SessionID, frame.Content); err != nil {
			h.logger.Warn("chat message rejected",
				zap.String("user_id", identity.ID),
				zap.String("session_id", frame.SessionID),
				zap.Error(err),
			)
		}
	}
}

func (h *SocketHandler) authorizeChannel(ctx context.Context, identity *domain.Identity, channel events.Channel) error {
	switch channel.Kind {
	case events.ChannelTicket:
		return h.tickets.AuthorizeChannel(ctx, identity, channel)
	default:
		return h.sessions.AuthorizeChannel(ctx, identity, channel)
	}
}
