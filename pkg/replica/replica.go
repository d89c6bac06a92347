// Package replica implements the three-phase HotStuff replica state
// machine: the NEW_VIEW/PREPARE/PRECOMMIT/COMMIT/DECIDE handlers, the
// extends/safeBlock safety rules, and the single-goroutine event loop that
// drives them from a transport.Transport inbox.
package replica

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hotstuffd/hotstuffd/pkg/faults"
	"github.com/hotstuffd/hotstuffd/pkg/pacemaker"
	"github.com/hotstuffd/hotstuffd/pkg/protocol"
	"github.com/hotstuffd/hotstuffd/pkg/transport"
)

// Application is the hook a replica calls once a block is finally decided.
// It mirrors the teacher's AppHook: the replica doesn't care what executing
// a block means, only that every correct replica does it in the same
// decided order.
type Application interface {
	OnCommit(block protocol.Block)
}

// Config wires a Replica to its peers, transport, timer, and fault mode.
type Config struct {
	ID     protocol.NodeID
	Peers  []protocol.NodeID // full replica set, including ID
	Quorum int               // 2F+1
	Net    transport.Transport
	PM     *pacemaker.Pacemaker
	App    Application
	Fault  faults.Policy
	Logger *zap.SugaredLogger
}

// Replica runs the handler pipeline for one node. It is not safe to share
// a Replica across multiple Run calls.
type Replica struct {
	cfg Config
	st  *state

	mu  sync.Mutex
	ctx context.Context
}

// New constructs a Replica ready to Run. Fault defaults to faults.Honest{}
// if nil.
func New(cfg Config) *Replica {
	if cfg.Fault == nil {
		cfg.Fault = faults.Honest{}
	}
	r := &Replica{cfg: cfg, st: newState()}
	cfg.PM.SetOnTimeout(func(timedOutView protocol.View) {
		r.onTimeout(timedOutView)
	})
	return r
}

func (r *Replica) Snapshot() Snapshot               { return r.st.snapshot() }
func (r *Replica) CommittedLog() []protocol.Block   { return r.st.committedLog() }
func (r *Replica) SubmitCommand(c protocol.Command) { r.st.submitCommand(c) }

func (r *Replica) backgroundCtx() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

func (r *Replica) onTimeout(timedOutView protocol.View) {
	r.cfg.Logger.Infow("view_timeout", "view", timedOutView)
	r.startNewView(r.backgroundCtx(), timedOutView+1)
}

// Run drives the replica's single event loop: it enters view 1, then
// repeatedly drains the transport inbox, dispatching each message to its
// phase handler. It returns once the fault policy reports ShouldHalt for
// the current view, or ctx is cancelled.
func (r *Replica) Run(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	r.startNewView(ctx, 1)

	haltCheck := time.NewTicker(200 * time.Millisecond)
	defer haltCheck.Stop()

	for {
		if r.checkHalt() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case msg := <-r.cfg.Net.Inbox():
			r.dispatch(ctx, msg)
		case <-haltCheck.C:
		}
	}
}

// checkHalt asks the fault policy whether the replica must stop as of its
// current view. Checked once per loop iteration — not only on message
// arrival — so a crash takes effect even on an idle inbox.
func (r *Replica) checkHalt() bool {
	r.st.mu.Lock()
	view := r.st.currentView
	running := r.st.running
	r.st.mu.Unlock()
	if !running {
		return true
	}
	if r.cfg.Fault.ShouldHalt(view) {
		r.cfg.Logger.Infow("replica_halted", "view", view, "policy", r.cfg.Fault.Name())
		r.cfg.PM.StopTimer()
		r.st.mu.Lock()
		r.st.running = false
		r.st.mu.Unlock()
		return true
	}
	return false
}

func (r *Replica) dispatch(ctx context.Context, msg protocol.Message) {
	if msg.Cmd != nil {
		r.st.submitCommand(*msg.Cmd)
		ack := protocol.Message{Phase: protocol.ClientAck, Sender: r.cfg.ID}
		if err := r.cfg.Net.ClientRespond(ctx, msg.Cmd.ClientID, ack); err != nil {
			r.cfg.Logger.Debugw("client_ack_failed", "client", msg.Cmd.ClientID, "err", err)
		}
		return
	}
	switch msg.Phase {
	case protocol.NewView:
		r.handleNewView(ctx, msg)
	case protocol.Prepare:
		r.handlePrepare(ctx, msg)
	case protocol.PrepareVote:
		r.handlePrepareVote(ctx, msg)
	case protocol.Precommit:
		r.handlePrecommit(ctx, msg)
	case protocol.PrecommitVote:
		r.handlePrecommitVote(ctx, msg)
	case protocol.Commit:
		r.handleCommit(ctx, msg)
	case protocol.CommitVote:
		r.handleCommitVote(ctx, msg)
	case protocol.Decide:
		r.handleDecide(ctx, msg)
	}
}

func (r *Replica) send(ctx context.Context, to protocol.NodeID, msg protocol.Message) {
	msg.Sender = r.cfg.ID
	delay, proceed := r.cfg.Fault.BeforeSend(to, msg)
	if !proceed {
		return
	}
	if delay > 0 {
		time.AfterFunc(delay, func() {
			if err := r.cfg.Net.Send(ctx, to, msg); err != nil {
				r.cfg.Logger.Warnw("send_failed", "to", to, "err", err)
			}
		})
		return
	}
	if err := r.cfg.Net.Send(ctx, to, msg); err != nil {
		r.cfg.Logger.Warnw("send_failed", "to", to, "err", err)
	}
}

func (r *Replica) broadcast(ctx context.Context, msg protocol.Message) {
	msg.Sender = r.cfg.ID
	perPeer := r.cfg.Fault.BeforeBroadcast(r.cfg.Peers, msg)
	for _, to := range r.cfg.Peers {
		m, ok := perPeer[to]
		if !ok {
			continue
		}
		if err := r.cfg.Net.Send(ctx, to, m); err != nil {
			r.cfg.Logger.Warnw("broadcast_failed", "to", to, "err", err)
		}
	}
}
