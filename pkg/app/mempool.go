package app

import (
	"sync"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// Mempool is a single FIFO queue of client commands awaiting proposal,
// trimmed down from the teacher's three-bucket (non-order/cancel/order)
// mempool to the one bucket a generic command stream needs.
type Mempool struct {
	mu   sync.Mutex
	cmds []protocol.Command
}

func NewMempool() *Mempool { return &Mempool{} }

func (m *Mempool) Push(cmd protocol.Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmds = append(m.cmds, cmd)
}

// SelectForProposal drains up to max commands in FIFO order, the same
// admission-order guarantee the teacher's SelectForProposal provided.
func (m *Mempool) SelectForProposal(max int) []protocol.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max <= 0 || max > len(m.cmds) {
		max = len(m.cmds)
	}
	out := m.cmds[:max]
	m.cmds = m.cmds[max:]
	return out
}

func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cmds)
}
