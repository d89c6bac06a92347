// Package storage holds the replica's optional diagnostic persistence: an
// in-memory block/QC index used by tests, a write-ahead trace log, and an
// opt-in Pebble-backed flight recorder. None of it is load-bearing for
// consensus safety — a replica that loses this state on restart still
// re-derives everything it needs from NEW_VIEW messages, per the
// no-durability-across-restarts design.
package storage

import (
	"sync"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// InMemoryBlockStore indexes blocks and QCs by view/hash for inspection and
// tests; it is not consulted by the replica's safety rules.
type InMemoryBlockStore struct {
	mu         sync.Mutex
	blocks     map[protocol.Hash]protocol.Block
	certByView map[protocol.View]protocol.QC
	committed  *protocol.Hash
}

func NewInMemoryBlockStore() *InMemoryBlockStore {
	return &InMemoryBlockStore{
		blocks:     make(map[protocol.Hash]protocol.Block),
		certByView: make(map[protocol.View]protocol.QC),
	}
}

func (s *InMemoryBlockStore) SaveBlock(b protocol.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[b.Hash()] = b
}

func (s *InMemoryBlockStore) GetBlock(h protocol.Hash) (protocol.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blocks[h]
	return b, ok
}

func (s *InMemoryBlockStore) SaveCert(c protocol.QC) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certByView[c.View] = c
}

func (s *InMemoryBlockStore) GetCert(v protocol.View) (protocol.QC, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.certByView[v]
	return c, ok
}

func (s *InMemoryBlockStore) SetCommitted(h protocol.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = &h
}

func (s *InMemoryBlockStore) GetCommitted() (protocol.Hash, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed == nil {
		return protocol.Hash{}, false
	}
	return *s.committed, true
}
