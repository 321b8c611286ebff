package realtime

import (
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/command-center/helpdesk/internal/events"
	"github.com/command-center/helpdesk/internal/observability"
)

// fakeConn records received events; full=true simulates a saturated buffer.
type fakeConn struct {
	id   string
	mu   sync.Mutex
	got  []events.Event
	full bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event events.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.got = append(c.got, event)
	return true
}

func (c *fakeConn) received() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Event, len(c.got))
	copy(out, c.got)
	return out
}

func newTestRegistry() *Registry {
	return NewRegistry(zap.NewNop(), observability.NewMetrics())
}

func ticketEvent(ticketID string) events.Event {
	return events.New(events.EventTicketUpdated, events.TicketChannel(ticketID), events.Actor{ID: "a-1"}, nil)
}

func TestBroadcastReachesRoomOnly(t *testing.T) {
	registry := newTestRegistry()
	inRoom := &fakeConn{id: "c-1"}
	outside := &fakeConn{id: "c-2"}

	registry.Connect(inRoom)
	registry.Connect(outside)
	registry.Join(events.TicketChannel("t-1"), inRoom)

	registry.Broadcast(events.TicketChannel("t-1"), ticketEvent("t-1"))

	if len(inRoom.received()) != 1 {
		t.Fatal("member did not receive the event")
	}
	if len(outside.received()) != 0 {
		t.Fatal("non-member received a room event")
	}
}

func TestBroadcastGlobal(t *testing.T) {
	registry := newTestRegistry()
	a := &fakeConn{id: "c-1"}
	b := &fakeConn{id: "c-2"}
	registry.Connect(a)
	registry.Connect(b)
	registry.Join(events.TicketChannel("t-1"), a)

	refresh := events.New(events.EventTicketsRefresh, events.Channel{}, events.Actor{}, events.TicketsRefreshPayload{})
	registry.BroadcastGlobal(refresh)

	if len(a.received()) != 1 || len(b.received()) != 1 {
		t.Fatal("global broadcast must reach every connection")
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	registry := newTestRegistry()
	conn := &fakeConn{id: "c-1"}
	channel := events.TicketChannel("t-1")

	registry.Join(channel, conn)
	registry.Leave(channel, conn)
	registry.Broadcast(channel, ticketEvent("t-1"))

	if len(conn.received()) != 0 {
		t.Fatal("left connection still received events")
	}
	if registry.Members(channel) != 0 {
		t.Fatal("empty room not removed")
	}
}

func TestDisconnectCleansEverything(t *testing.T) {
	registry := newTestRegistry()
	conn := &fakeConn{id: "c-1"}

	registry.Connect(conn)
	registry.Join(events.TicketChannel("t-1"), conn)
	registry.Join(events.SessionChannel("s-1"), conn)

	registry.Disconnect(conn)

	if registry.Connections() != 0 {
		t.Fatal("connection still registered after disconnect")
	}
	if registry.Members(events.TicketChannel("t-1")) != 0 || registry.Members(events.SessionChannel("s-1")) != 0 {
		t.Fatal("room membership survived disconnect")
	}

	registry.Broadcast(events.TicketChannel("t-1"), ticketEvent("t-1"))
	if len(conn.received()) != 0 {
		t.Fatal("disconnected connection received an event")
	}
}

func TestSlowConnectionDropsWithoutBlocking(t *testing.T) {
	registry := newTestRegistry()
	slow := &fakeConn{id: "slow", full: true}
	fast := &fakeConn{id: "fast"}
	channel := events.TicketChannel("t-1")

	registry.Join(channel, slow)
	registry.Join(channel, fast)
	registry.Broadcast(channel, ticketEvent("t-1"))

	if len(fast.received()) != 1 {
		t.Fatal("a slow peer must not affect delivery to others")
	}
	if len(slow.received()) != 0 {
		t.Fatal("saturated connection should have dropped the event")
	}
}

func TestBroadcastDuringMembershipChurn(t *testing.T) {
	registry := newTestRegistry()
	channel := events.TicketChannel("t-1")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		conn := &fakeConn{id: "c"}
		wg.Add(2)
		go func() {
			defer wg.Done()
			registry.Join(channel, conn)
			registry.Leave(channel, conn)
			registry.Disconnect(conn)
		}()
		go func() {
			defer wg.Done()
			registry.Broadcast(channel, ticketEvent("t-1"))
		}()
	}
	wg.Wait()

	if registry.Members(channel) != 0 {
		t.Fatalf("members after churn = %d", registry.Members(channel))
	}
}
