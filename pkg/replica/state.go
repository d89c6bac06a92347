package replica

import (
	"sync"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// state holds everything a replica mutates while running. Every field is
// guarded by mu: the dispatch loop is the only goroutine that drives the
// protocol, but the pacemaker's timeout callback and the status API both
// read (and occasionally write) this state from their own goroutines.
type state struct {
	mu sync.Mutex

	currentView     protocol.View
	isLeader        bool
	running         bool
	currentProposal *protocol.Block

	log    []protocol.Block
	blocks map[protocol.Hash]protocol.Block

	newViewMsgs    map[protocol.View][]protocol.Message
	prepareVotes   map[protocol.View][]protocol.Message
	precommitVotes map[protocol.View][]protocol.Message
	commitVotes    map[protocol.View][]protocol.Message

	highPrepareQC protocol.QC
	lockedQC      protocol.QC

	pendingCmds []protocol.Command
}

func newState() *state {
	genesis := protocol.GenesisBlock()
	return &state{
		running:        true,
		log:            []protocol.Block{genesis},
		blocks:         map[protocol.Hash]protocol.Block{genesis.Hash(): genesis},
		newViewMsgs:    make(map[protocol.View][]protocol.Message),
		prepareVotes:   make(map[protocol.View][]protocol.Message),
		precommitVotes: make(map[protocol.View][]protocol.Message),
		commitVotes:    make(map[protocol.View][]protocol.Message),
		highPrepareQC:  protocol.GenesisQC(),
		lockedQC:       protocol.GenesisQC(),
	}
}

// Snapshot is a read-only view of replica state for the status API.
type Snapshot struct {
	View          protocol.View
	IsLeader      bool
	Running       bool
	CommittedLen  int
	HighPrepareQC protocol.QC
	LockedQC      protocol.QC
}

func (s *state) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		View:          s.currentView,
		IsLeader:      s.isLeader,
		Running:       s.running,
		CommittedLen:  len(s.log),
		HighPrepareQC: s.highPrepareQC,
		LockedQC:      s.lockedQC,
	}
}

func (s *state) committedLog() []protocol.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Block, len(s.log))
	copy(out, s.log)
	return out
}

// SubmitCommand enqueues a client command for inclusion in the next block
// this replica proposes as leader. Non-leader replicas still buffer it in
// case a future view change hands them leadership.
func (s *state) submitCommand(cmd protocol.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingCmds = append(s.pendingCmds, cmd)
}

func (s *state) drainPendingCmds() []protocol.Command {
	if len(s.pendingCmds) == 0 {
		return nil
	}
	cmds := s.pendingCmds
	s.pendingCmds = nil
	return cmds
}
