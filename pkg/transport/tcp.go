package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
	"github.com/hotstuffd/hotstuffd/pkg/wire"
)

// dialAttempts/dialBackoff mirror the original reference client and
// network's reconnect policy: three attempts, 200ms apart, then give up.
const (
	dialAttempts = 3
	dialBackoff  = 200 * time.Millisecond
)

// TCP is the raw-socket Transport implementing the spec's exact framing: a
// u32 big-endian length prefix followed by a gob-encoded Message.
type TCP struct {
	self      protocol.NodeID
	addrs     AddressBook
	in        chan protocol.Message
	listener  net.Listener
	mu        sync.Mutex
	conns     map[protocol.NodeID]net.Conn
	clientIDs map[protocol.NodeID]net.Conn
	closed    chan struct{}
}

// NewTCP starts listening on the address book's entry for self and returns
// a ready-to-use Transport. Accepting and framing happen on a background
// goroutine; call Close to stop it.
func NewTCP(self protocol.NodeID, addrs AddressBook) (*TCP, error) {
	ln, err := net.Listen("tcp", addrs[self])
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addrs[self], err)
	}
	t := &TCP{
		self:      self,
		addrs:     addrs,
		in:        make(chan protocol.Message, 1024),
		listener:  ln,
		conns:     make(map[protocol.NodeID]net.Conn),
		clientIDs: make(map[protocol.NodeID]net.Conn),
		closed:    make(chan struct{}),
	}
	go t.acceptLoop()
	return t, nil
}

func (t *TCP) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.closed:
				return
			default:
				continue
			}
		}
		go t.readLoop(conn)
	}
}

func (t *TCP) readLoop(conn net.Conn) {
	for {
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		msg, err := wire.Decode(payload)
		if err != nil {
			continue
		}
		if msg.Cmd != nil {
			t.mu.Lock()
			t.clientIDs[msg.Cmd.ClientID] = conn
			t.mu.Unlock()
		}
		t.in <- msg
	}
}

func (t *TCP) Inbox() <-chan protocol.Message { return t.in }

func (t *TCP) dial(to protocol.NodeID) (net.Conn, error) {
	t.mu.Lock()
	if conn, ok := t.conns[to]; ok {
		t.mu.Unlock()
		return conn, nil
	}
	t.mu.Unlock()

	addr, ok := t.addrs[to]
	if !ok {
		return nil, fmt.Errorf("transport: unknown node %q", to)
	}
	var lastErr error
	for attempt := 0; attempt < dialAttempts; attempt++ {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			t.mu.Lock()
			t.conns[to] = conn
			t.mu.Unlock()
			go t.readLoop(conn)
			return conn, nil
		}
		lastErr = err
		time.Sleep(dialBackoff)
	}
	return nil, fmt.Errorf("transport: dial %s: %w", addr, lastErr)
}

func (t *TCP) Send(ctx context.Context, to protocol.NodeID, msg protocol.Message) error {
	if to == t.self {
		select {
		case t.in <- msg:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	conn, err := t.dial(to)
	if err != nil {
		return err
	}
	payload, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	return wire.WriteFrame(conn, payload)
}

func (t *TCP) Broadcast(ctx context.Context, msg protocol.Message) error {
	var firstErr error
	for id := range t.addrs {
		if err := t.Send(ctx, id, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *TCP) ClientRespond(ctx context.Context, clientID protocol.NodeID, msg protocol.Message) error {
	t.mu.Lock()
	conn, ok := t.clientIDs[clientID]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("transport: no connection for client %q", clientID)
	}
	payload, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	return wire.WriteFrame(conn, payload)
}

func (t *TCP) Close() error {
	close(t.closed)
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.conns {
		c.Close()
	}
	return t.listener.Close()
}
