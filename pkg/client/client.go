// Package client implements the command-line driver that submits Commands
// to the replica set and waits for F+1 replies, mirroring the reference
// client's broadcast-and-wait protocol. Every reply that arrives without an
// error is counted; replies are not compared with one another.
package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
	"github.com/hotstuffd/hotstuffd/pkg/wire"
)

const (
	dialAttempts = 3
	dialBackoff  = 200 * time.Millisecond
)

// Client holds one connection per replica it has talked to and reuses them
// across commands.
type Client struct {
	id      protocol.NodeID
	addrs   map[protocol.NodeID]string
	timeout time.Duration

	mu    sync.Mutex
	conns map[protocol.NodeID]net.Conn
}

func New(id protocol.NodeID, addrs map[protocol.NodeID]string, timeout time.Duration) *Client {
	return &Client{id: id, addrs: addrs, timeout: timeout, conns: make(map[protocol.NodeID]net.Conn)}
}

func (c *Client) connect(to protocol.NodeID) (net.Conn, error) {
	c.mu.Lock()
	if conn, ok := c.conns[to]; ok {
		c.mu.Unlock()
		return conn, nil
	}
	c.mu.Unlock()

	addr, ok := c.addrs[to]
	if !ok {
		return nil, fmt.Errorf("client: unknown replica %q", to)
	}

	var lastErr error
	for attempt := 0; attempt < dialAttempts; attempt++ {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			c.mu.Lock()
			c.conns[to] = conn
			c.mu.Unlock()
			return conn, nil
		}
		lastErr = err
		time.Sleep(dialBackoff)
	}
	return nil, fmt.Errorf("client: connect to %s: %w", addr, lastErr)
}

// sendCmd submits cmd to one replica and waits for its reply.
func (c *Client) sendCmd(to protocol.NodeID, cmd protocol.Command) (protocol.Message, error) {
	conn, err := c.connect(to)
	if err != nil {
		return protocol.Message{}, err
	}

	payload, err := wire.Encode(protocol.Message{Cmd: &cmd, Sender: c.id})
	if err != nil {
		return protocol.Message{}, err
	}
	if err := wire.WriteFrame(conn, payload); err != nil {
		return protocol.Message{}, err
	}

	reply, err := wire.ReadFrame(conn)
	if err != nil {
		return protocol.Message{}, err
	}
	return wire.Decode(reply)
}

// BroadcastCmd fans cmd out to every known replica and returns once at
// least accept replies have arrived or every replica has answered or
// failed, the same first-completed-until-quorum wait the reference client
// performs.
func (c *Client) BroadcastCmd(ctx context.Context, cmd protocol.Command, accept int) []protocol.Message {
	type result struct {
		msg protocol.Message
		err error
	}
	results := make(chan result, len(c.addrs))
	for to := range c.addrs {
		to := to
		go func() {
			msg, err := c.sendCmd(to, cmd)
			results <- result{msg, err}
		}()
	}

	var replies []protocol.Message
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pending := len(c.addrs)
	for pending > 0 && len(replies) < accept {
		select {
		case r := <-results:
			pending--
			if r.err == nil {
				replies = append(replies, r.msg)
			}
		case <-ctx.Done():
			return replies
		}
	}
	return replies
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, conn := range c.conns {
		conn.Close()
	}
}
