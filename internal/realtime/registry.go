package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/command-center/helpdesk/internal/events"
	"github.com/command-center/helpdesk/internal/observability"
)

// Conn is a live connection handle. Send must not block; implementations
// buffer and report false when the event had to be dropped.
type Conn interface {
	ID() string
	Send(event events.Event) bool
}

// Registry maps channels to the set of currently subscribed connections.
// Membership is in-memory and per-process; clients rejoin after reconnect.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[events.Channel]map[Conn]struct{}
	conns   map[Conn]map[events.Channel]struct{}
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		rooms:   make(map[events.Channel]map[Conn]struct{}),
		conns:   make(map[Conn]map[events.Channel]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Connect registers a connection for global broadcasts. Idempotent.
func (r *Registry) Connect(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[conn]; !ok {
		r.conns[conn] = make(map[events.Channel]struct{})
	}
}

// Join subscribes the connection to a channel. Connections unknown to the
// registry are registered implicitly.
func (r *Registry) Join(channel events.Channel, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[channel]
	if !ok {
		room = make(map[Conn]struct{})
		r.rooms[channel] = room
	}
	room[conn] = struct{}{}
	joined, ok := r.conns[conn]
	if !ok {
		joined = make(map[events.Channel]struct{})
		r.conns[conn] = joined
	}
	joined[channel] = struct{}{}
}

// Leave removes the connection from a channel.
func (r *Registry) Leave(channel events.Channel, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(channel, conn)
}

func (r *Registry) leaveLocked(channel events.Channel, conn Conn) {
	if room, ok := r.rooms[channel]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(r.rooms, channel)
		}
	}
	if joined, ok := r.conns[conn]; ok {
		delete(joined, channel)
	}
}

// Disconnect removes the connection from every channel it joined and from
// the global set. Called on transport close, not lazily on broadcast.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for channel := range r.conns[conn] {
		r.leaveLocked(channel, conn)
	}
	delete(r.conns, conn)
}

// Broadcast delivers the event to every connection currently joined to the
// channel. Membership is snapshotted before delivery, so a join or leave
// racing the broadcast never corrupts the iteration.
func (r *Registry) Broadcast(channel events.Channel, event events.Event) {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.rooms[channel]))
	for conn := range r.rooms[channel] {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	r.deliver(string(channel.Kind), targets, event)
}

// BroadcastGlobal delivers the event to every connected handle regardless of
// room membership. Used for list-refresh notifications.
func (r *Registry) BroadcastGlobal(event events.Event) {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.conns))
	for conn := range r.conns {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	r.deliver("global", targets, event)
}

func (r *Registry) deliver(kind string, targets []Conn, event events.Event) {
	delivered := 0
	for _, conn := range targets {
		if conn.Send(event) {
			delivered++
			continue
		}
		r.metrics.RecordDrop(kind)
		r.logger.Warn("event dropped for slow connection",
			zap.String("conn_id", conn.ID()),
			zap.String("event_type", string(event.Type)),
		)
	}
	r.metrics.RecordDelivery(kind, delivered)
}

// Members returns the current subscriber count for a channel.
func (r *Registry) Members(channel events.Channel) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[channel])
}

// Connections returns the number of connected handles.
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
