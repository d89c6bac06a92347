package storage

import (
	"testing"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func TestInMemoryBlockStoreRoundTrip(t *testing.T) {
	s := NewInMemoryBlockStore()
	b := protocol.Block{Cmds: []protocol.Command{{Op: "SET", Args: []string{"k", "v"}}}, View: 1}
	s.SaveBlock(b)

	got, ok := s.GetBlock(b.Hash())
	if !ok || got.Hash() != b.Hash() {
		t.Fatal("GetBlock must return the block saved under its own hash")
	}

	if _, ok := s.GetBlock(protocol.Hash{0xFF}); ok {
		t.Fatal("GetBlock must report false for an unknown hash")
	}
}

func TestInMemoryBlockStoreCommittedMarker(t *testing.T) {
	s := NewInMemoryBlockStore()
	if _, ok := s.GetCommitted(); ok {
		t.Fatal("a fresh store must report no committed block")
	}
	h := protocol.Hash{1, 2, 3}
	s.SetCommitted(h)
	got, ok := s.GetCommitted()
	if !ok || got != h {
		t.Fatal("GetCommitted must return the hash set by SetCommitted")
	}
}

func TestInMemoryBlockStoreCertByView(t *testing.T) {
	s := NewInMemoryBlockStore()
	qc := protocol.QC{Phase: protocol.Commit, View: 4, BlockHash: protocol.Hash{9}}
	s.SaveCert(qc)

	got, ok := s.GetCert(4)
	if !ok || got.View != 4 {
		t.Fatal("GetCert must return the QC saved for its view")
	}
	if _, ok := s.GetCert(5); ok {
		t.Fatal("GetCert must report false for a view with no saved QC")
	}
}
