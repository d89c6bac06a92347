package faults

import (
	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// Crash behaves honestly until its target view, then halts permanently.
// The replica must check ShouldHalt at the top of every loop iteration, not
// only on message arrival, so a crash still takes effect on a replica
// sitting idle on an empty inbox.
type Crash struct {
	Honest
	AtView protocol.View
}

func (c Crash) Name() string { return "crash" }

func (c Crash) ShouldHalt(view protocol.View) bool {
	return view == c.AtView
}
