// Package faults supplies the fault-injection behaviors a test harness
// wires onto a Replica. Rather than the reference implementation's
// subclassed Crash_replica/Delayed_replica/Malicious_replica, every variant
// here is a Policy implementation composed into a single Replica type — the
// replica's core loop stays the same for every fault mode, only the policy
// changes what leaves the process and when the process stops looking at
// its inbox.
package faults

import (
	"time"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// Policy intercepts a replica's outbound traffic and its willingness to
// keep running. A Replica asks ShouldHalt once per loop iteration — not
// only on message arrival — so a crash can take effect even while the
// inbox is empty, matching the halt check the reference crash variant
// performs at the top of every iteration.
type Policy interface {
	Name() string

	// ShouldHalt reports whether the replica must stop processing as of
	// the given view.
	ShouldHalt(view protocol.View) bool

	// BeforeSend is consulted before a unicast send. Returning proceed=false
	// drops the message; delay postpones it.
	BeforeSend(to protocol.NodeID, msg protocol.Message) (delay time.Duration, proceed bool)

	// BeforeBroadcast is consulted before a broadcast. It returns the exact
	// message to deliver to each peer, letting a malicious policy hand
	// different, equivocating payloads to different recipients. Omitting a
	// peer from the result drops the message to that peer.
	BeforeBroadcast(peers []protocol.NodeID, msg protocol.Message) map[protocol.NodeID]protocol.Message
}
