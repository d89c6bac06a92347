// Package transport defines the network port every replica talks through,
// plus three implementations: an in-memory one for deterministic tests, a
// raw-TCP one implementing the spec's exact wire framing, and a
// libp2p/gossipsub one adapted from the teacher's p2p layer.
package transport

import (
	"context"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// AddressBook maps every replica and client ID known to the network to its
// dial address ("host:port" for TCP, a multiaddr for libp2p).
type AddressBook map[protocol.NodeID]string

// Transport is the port a Replica drives; nothing above this interface
// should know whether messages travel over TCP, libp2p, or an in-memory
// channel.
type Transport interface {
	// Send delivers msg to exactly one recipient (self-delivery, if to is
	// this transport's own ID, must not touch the network).
	Send(ctx context.Context, to protocol.NodeID, msg protocol.Message) error

	// Broadcast delivers msg to every replica in the address book,
	// including self.
	Broadcast(ctx context.Context, msg protocol.Message) error

	// Inbox is the channel every message addressed to this node — from
	// peers or clients — arrives on.
	Inbox() <-chan protocol.Message

	// ClientRespond replies to a client connection that submitted a
	// command, by client ID.
	ClientRespond(ctx context.Context, clientID protocol.NodeID, msg protocol.Message) error

	Close() error
}
