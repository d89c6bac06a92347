package transport

import (
	"context"
	"testing"
	"time"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func TestMemorySendDelivers(t *testing.T) {
	bus := NewMemoryBus()
	a := bus.NewMemory("a")
	b := bus.NewMemory("b")

	ctx := context.Background()
	msg := protocol.Message{Phase: protocol.Prepare, View: 1}
	if err := a.Send(ctx, "b", msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-b.Inbox():
		if got.Phase != protocol.Prepare || got.View != 1 {
			t.Fatalf("got %+v, want phase=Prepare view=1", got)
		}
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}
}

func TestMemorySendUnknownNode(t *testing.T) {
	bus := NewMemoryBus()
	a := bus.NewMemory("a")
	if err := a.Send(context.Background(), "ghost", protocol.Message{}); err == nil {
		t.Fatal("sending to an unregistered node must error")
	}
}

func TestMemoryBroadcastReachesEveryoneIncludingSelf(t *testing.T) {
	bus := NewMemoryBus()
	nodes := []*Memory{bus.NewMemory("a"), bus.NewMemory("b"), bus.NewMemory("c")}

	if err := nodes[0].Broadcast(context.Background(), protocol.Message{Phase: protocol.NewView}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	for _, n := range nodes {
		select {
		case <-n.Inbox():
		case <-time.After(time.Second):
			t.Fatal("broadcast did not reach every node, including the sender")
		}
	}
}

func TestMemoryClientRespond(t *testing.T) {
	bus := NewMemoryBus()
	replica := bus.NewMemory("r0")
	client := bus.NewMemory("client1")

	ack := protocol.Message{Phase: protocol.ClientAck}
	if err := replica.ClientRespond(context.Background(), "client1", ack); err != nil {
		t.Fatalf("ClientRespond: %v", err)
	}

	select {
	case got := <-client.Inbox():
		if got.Phase != protocol.ClientAck {
			t.Fatalf("got phase %v, want ClientAck", got.Phase)
		}
	case <-time.After(time.Second):
		t.Fatal("ack never arrived at client")
	}
}
