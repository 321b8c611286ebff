package realtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/command-center/helpdesk/internal/events"
)

// Fanout routes domain events to the rooms entitled to see them. It is the
// only consumer of the dispatcher; the state machines never talk to the
// registry directly.
type Fanout struct {
	registry *Registry
	logger   *zap.Logger
}

// RegisterFanout subscribes the fanout to every routed event type.
func RegisterFanout(dispatcher events.Dispatcher, registry *Registry, logger *zap.Logger) *Fanout {
	f := &Fanout{registry: registry, logger: logger}

	dispatcher.Subscribe(events.EventTicketCreated, f.handleTicketChange)
	dispatcher.Subscribe(events.EventTicketUpdated, f.handleTicketChange)
	dispatcher.Subscribe(events.EventTicketAssigned, f.handleTicketChange)
	dispatcher.Subscribe(events.EventTicketMessageAdded, f.handleChannelOnly)
	dispatcher.Subscribe(events.EventSessionCreated, f.handleChannelOnly)
	dispatcher.Subscribe(events.EventSessionJoined, f.handleChannelOnly)
	dispatcher.Subscribe(events.EventSessionEnded, f.handleChannelOnly)
	dispatcher.Subscribe(events.EventChatMessageSent, f.handleChannelOnly)
	return f
}

// handleChannelOnly delivers to the event's own channel.
func (f *Fanout) handleChannelOnly(_ context.Context, event events.Event) error {
	f.registry.Broadcast(event.Channel, event)
	return nil
}

// handleTicketChange delivers to the ticket's channel and then tells every
// connected client to refresh its list views. Any ticket change invalidates
// all list views; the broad invalidation is deliberate.
func (f *Fanout) handleTicketChange(_ context.Context, event events.Event) error {
	f.registry.Broadcast(event.Channel, event)
	refresh := events.New(events.EventTicketsRefresh, events.Channel{}, event.Actor, events.TicketsRefreshPayload{})
	f.registry.BroadcastGlobal(refresh)
	return nil
}
