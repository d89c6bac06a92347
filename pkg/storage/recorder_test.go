package storage

import (
	"path/filepath"
	"testing"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func TestRecorderRoundTripsBlocks(t *testing.T) {
	dir := t.TempDir()
	rec, err := OpenRecorder(filepath.Join(dir, "recorder"))
	if err != nil {
		t.Fatalf("OpenRecorder: %v", err)
	}
	defer rec.Close()

	b := protocol.Block{Cmds: []protocol.Command{{Op: "SET", Args: []string{"k", "v"}}}, View: 3, HasParent: true}
	if err := rec.RecordBlock(b); err != nil {
		t.Fatalf("RecordBlock: %v", err)
	}

	got, ok, err := rec.Block(b.Hash())
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if !ok {
		t.Fatal("recorded block must be found")
	}
	if got.Hash() != b.Hash() {
		t.Fatal("recorded block must round-trip to the same hash")
	}
}

func TestRecorderMissingBlock(t *testing.T) {
	dir := t.TempDir()
	rec, err := OpenRecorder(filepath.Join(dir, "recorder"))
	if err != nil {
		t.Fatalf("OpenRecorder: %v", err)
	}
	defer rec.Close()

	_, ok, err := rec.Block(protocol.Hash{0xAB})
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if ok {
		t.Fatal("an unrecorded hash must report not found")
	}
}
