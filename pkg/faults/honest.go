package faults

import (
	"time"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// Honest never halts, never delays, never alters a broadcast. It's the
// default policy every production replica runs.
type Honest struct{}

func (Honest) Name() string                      { return "honest" }
func (Honest) ShouldHalt(protocol.View) bool      { return false }
func (Honest) BeforeSend(protocol.NodeID, protocol.Message) (time.Duration, bool) {
	return 0, true
}

func (Honest) BeforeBroadcast(peers []protocol.NodeID, msg protocol.Message) map[protocol.NodeID]protocol.Message {
	out := make(map[protocol.NodeID]protocol.Message, len(peers))
	for _, p := range peers {
		out[p] = msg
	}
	return out
}
