package realtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/command-center/helpdesk/internal/events"
)

func TestWsConnSendAfterClose(t *testing.T) {
	conn := &wsConn{id: "c-1", send: make(chan events.Event, connSendBuffer)}

	if !conn.Send(ticketEvent("t-1")) {
		t.Fatal("send on an open connection should succeed")
	}

	conn.close()
	conn.close() // repeat close is a no-op

	if conn.Send(ticketEvent("t-1")) {
		t.Fatal("send after close must report a drop, not deliver")
	}
}

// A broadcast can snapshot room membership just before a connection
// disconnects and closes its send channel. The late Send must degrade to a
// drop; a panic here takes down the whole process.
func TestBroadcastRacingDisconnectAndClose(t *testing.T) {
	registry := newTestRegistry()
	channel := events.TicketChannel("t-1")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				registry.Broadcast(channel, ticketEvent("t-1"))
				registry.BroadcastGlobal(ticketEvent("t-1"))
			}
		}
	}()

	// Tiny buffers keep connections saturated so late sends actually hit
	// the closed-channel path.
	for i := 0; i < 200; i++ {
		conn := &wsConn{id: fmt.Sprintf("c-%d", i), send: make(chan events.Event, 1)}
		registry.Connect(conn)
		registry.Join(channel, conn)
		registry.Disconnect(conn)
		conn.close()
	}

	close(stop)
	wg.Wait()

	if registry.Connections() != 0 || registry.Members(channel) != 0 {
		t.Fatal("registry not empty after churn")
	}
}
