package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// Memory is an in-process Transport backed by Go channels. It is grounded
// on the teacher's multi-validator test harness, which wired several
// Engines together without touching a real network; it gives the test
// suite the same determinism without libp2p's async peer discovery.
type Memory struct {
	self protocol.NodeID
	bus  *MemoryBus
	in   chan protocol.Message
}

// MemoryBus is the shared fabric a set of Memory transports register with.
type MemoryBus struct {
	mu    sync.Mutex
	nodes map[protocol.NodeID]chan protocol.Message
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{nodes: make(map[protocol.NodeID]chan protocol.Message)}
}

// NewMemory registers a new node on the bus and returns its Transport.
func (b *MemoryBus) NewMemory(self protocol.NodeID) *Memory {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan protocol.Message, 1024)
	b.nodes[self] = ch
	return &Memory{self: self, bus: b, in: ch}
}

func (m *Memory) Inbox() <-chan protocol.Message { return m.in }

func (m *Memory) Send(ctx context.Context, to protocol.NodeID, msg protocol.Message) error {
	m.bus.mu.Lock()
	ch, ok := m.bus.nodes[to]
	m.bus.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: unknown node %q", to)
	}
	select {
	case ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Broadcast(ctx context.Context, msg protocol.Message) error {
	m.bus.mu.Lock()
	targets := make([]chan protocol.Message, 0, len(m.bus.nodes))
	for _, ch := range m.bus.nodes {
		targets = append(targets, ch)
	}
	m.bus.mu.Unlock()
	for _, ch := range targets {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) ClientRespond(ctx context.Context, clientID protocol.NodeID, msg protocol.Message) error {
	return m.Send(ctx, clientID, msg)
}

func (m *Memory) Close() error { return nil }
