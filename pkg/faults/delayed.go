package faults

import (
	"time"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// Delayed is otherwise honest but holds every unicast send back by
// PerView*view before it leaves the process, the same view-proportional
// backpressure the reference delayed network applied.
type Delayed struct {
	Honest
	PerView time.Duration
}

func (d Delayed) Name() string { return "delayed" }

func (d Delayed) BeforeSend(to protocol.NodeID, msg protocol.Message) (time.Duration, bool) {
	return d.PerView * time.Duration(msg.View), true
}
