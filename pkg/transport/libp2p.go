package transport

import (
	"bufio"
	"context"
	"fmt"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	p2pproto "github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
	"github.com/hotstuffd/hotstuffd/pkg/wire"
)

const (
	consensusTopic = "hotstuffd-consensus"
	unicastProto   = p2pproto.ID("/hotstuffd/unicast/1.0.0")
)

// LibP2P is the gossipsub-based Transport adapted from the teacher's p2p
// layer: broadcasts ride a single gossipsub topic, point-to-point Send and
// ClientRespond open a direct stream.
type LibP2P struct {
	h    host.Host
	ps   *pubsub.PubSub
	log  *zap.SugaredLogger
	self protocol.NodeID
	peer map[protocol.NodeID]peer.ID

	topic *pubsub.Topic
	sub   *pubsub.Subscription

	in chan protocol.Message
}

// LibP2PConfig configures the swarm a replica joins.
type LibP2PConfig struct {
	ListenAddr string
	Bootstrap  []string
	Self       protocol.NodeID
	PeerIDs    map[protocol.NodeID]peer.ID
	Logger     *zap.SugaredLogger
}

// NewLibP2P builds a host, joins the gossipsub topic, and starts draining
// both the topic subscription and incoming unicast streams into Inbox.
func NewLibP2P(ctx context.Context, cfg LibP2PConfig) (*LibP2P, error) {
	var opts []libp2p.Option
	if cfg.ListenAddr != "" {
		maddr, err := ma.NewMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, fmt.Errorf("transport: listen multiaddr: %w", err)
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: new host: %w", err)
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("transport: new gossipsub: %w", err)
	}

	for _, bs := range cfg.Bootstrap {
		if err := connectMultiaddr(ctx, h, bs); err != nil && cfg.Logger != nil {
			cfg.Logger.Warnw("bootstrap_connect_failed", "addr", bs, "err", err)
		}
	}

	topic, err := ps.Join(consensusTopic)
	if err != nil {
		return nil, fmt.Errorf("transport: join topic: %w", err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("transport: subscribe topic: %w", err)
	}

	l := &LibP2P{
		h: h, ps: ps, log: cfg.Logger,
		self: cfg.Self, peer: cfg.PeerIDs,
		topic: topic, sub: sub,
		in: make(chan protocol.Message, 1024),
	}

	h.SetStreamHandler(unicastProto, l.handleUnicastStream)
	go l.readTopic(ctx)

	if cfg.Logger != nil {
		cfg.Logger.Infow("libp2p_ready", "peer", h.ID().String(), "listen", cfg.ListenAddr)
	}
	return l, nil
}

func connectMultiaddr(ctx context.Context, h host.Host, addr string) error {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(m)
	if err != nil {
		return err
	}
	h.Peerstore().AddAddrs(info.ID, info.Addrs, peer.PermanentAddrTTL)
	return h.Connect(ctx, *info)
}

func (l *LibP2P) readTopic(ctx context.Context) {
	for {
		sm, err := l.sub.Next(ctx)
		if err != nil {
			return
		}
		if sm.ReceivedFrom == l.h.ID() {
			continue
		}
		msg, err := wire.Decode(sm.Data)
		if err != nil {
			continue
		}
		l.in <- msg
	}
}

func (l *LibP2P) handleUnicastStream(s network.Stream) {
	defer s.Close()
	payload, err := wire.ReadFrame(bufio.NewReader(s))
	if err != nil {
		return
	}
	msg, err := wire.Decode(payload)
	if err != nil {
		return
	}
	l.in <- msg
}

func (l *LibP2P) Inbox() <-chan protocol.Message { return l.in }

func (l *LibP2P) Send(ctx context.Context, to protocol.NodeID, msg protocol.Message) error {
	if to == l.self {
		select {
		case l.in <- msg:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	pid, ok := l.peer[to]
	if !ok {
		return fmt.Errorf("transport: unknown peer id for %q", to)
	}
	s, err := l.h.NewStream(ctx, pid, unicastProto)
	if err != nil {
		return fmt.Errorf("transport: open stream to %q: %w", to, err)
	}
	defer s.Close()
	payload, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	return wire.WriteFrame(s, payload)
}

func (l *LibP2P) Broadcast(ctx context.Context, msg protocol.Message) error {
	payload, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if err := l.topic.Publish(ctx, payload); err != nil {
		return fmt.Errorf("transport: publish: %w", err)
	}
	select {
	case l.in <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (l *LibP2P) ClientRespond(ctx context.Context, clientID protocol.NodeID, msg protocol.Message) error {
	return l.Send(ctx, clientID, msg)
}

func (l *LibP2P) Close() error {
	l.sub.Cancel()
	return l.h.Close()
}
