// Package pacemaker arms and cancels the single per-replica view-change
// timer. It knows nothing about blocks or votes; it only tracks the current
// view, picks the leader by round robin, and calls back into the replica
// when a view times out.
package pacemaker

import (
	"sync"
	"time"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// OnTimeout is invoked (from the pacemaker's own goroutine) when a view's
// timer fires without being cancelled first. The replica is expected to
// start the next view in response.
type OnTimeout func(timedOutView protocol.View)

// Pacemaker owns exactly one outstanding timer for the replica's current
// view: arming a new view always cancels whatever timer preceded it, so at
// most one fires.
type Pacemaker struct {
	mu       sync.Mutex
	clock    Clock
	timeout  time.Duration
	replicas []protocol.NodeID
	timer    *time.Timer
	view     protocol.View
	onTimer  OnTimeout
}

// New builds a Pacemaker for a fixed, ordered replica set (used for
// round-robin leader rotation) and a fixed per-view timeout.
func New(replicas []protocol.NodeID, timeout time.Duration, onTimer OnTimeout) *Pacemaker {
	return &Pacemaker{
		clock:    RealClock{},
		timeout:  timeout,
		replicas: append([]protocol.NodeID(nil), replicas...),
		onTimer:  onTimer,
	}
}

// SetOnTimeout installs (or replaces) the callback invoked when a view's
// timer fires. Replica wires this after constructing both itself and the
// Pacemaker, since the callback closes over the Replica.
func (p *Pacemaker) SetOnTimeout(fn OnTimeout) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTimer = fn
}

// Leader returns the deterministic round-robin leader for a view.
func (p *Pacemaker) Leader(v protocol.View) protocol.NodeID {
	n := len(p.replicas)
	return p.replicas[uint64(v)%uint64(n)]
}

// ArmView cancels any pending timer and starts a fresh one for view v. Call
// this whenever the replica enters a new view, whether by timeout,
// advancing past DECIDE, or receiving a higher view from a peer.
func (p *Pacemaker) ArmView(v protocol.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = v
	if p.timer != nil {
		p.timer.Stop()
	}
	firedView := v
	p.timer = time.AfterFunc(p.timeout, func() {
		p.mu.Lock()
		onTimer := p.onTimer
		p.mu.Unlock()
		if onTimer != nil {
			onTimer(firedView)
		}
	})
}

// StopTimer cancels the outstanding timer without arming a new one. Used
// when a replica halts (see pkg/faults' crash policy).
func (p *Pacemaker) StopTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// CurrentView reports the view the pacemaker last armed.
func (p *Pacemaker) CurrentView() protocol.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}
