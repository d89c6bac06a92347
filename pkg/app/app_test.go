package app

import (
	"testing"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func TestKVStoreAppliesSet(t *testing.T) {
	kv := NewKVStore(nil)
	block := protocol.Block{Cmds: []protocol.Command{{Op: "SET", Args: []string{"foo", "bar"}}}}
	kv.OnCommit(block)

	v, ok := kv.Get("foo")
	if !ok || v != "bar" {
		t.Fatalf("Get(foo) = (%q, %v), want (bar, true)", v, ok)
	}
}

func TestKVStoreIgnoresUnknownOp(t *testing.T) {
	kv := NewKVStore(nil)
	block := protocol.Block{Cmds: []protocol.Command{{Op: "NOOP", Args: []string{"foo", "bar"}}}}
	kv.OnCommit(block)

	if _, ok := kv.Get("foo"); ok {
		t.Fatal("a non-SET command must not write state")
	}
}

func TestKVStoreAppHashDeterministic(t *testing.T) {
	var got1, got2 protocol.Hash
	kv1 := NewKVStore(func(_ protocol.Block, h protocol.Hash) { got1 = h })
	kv2 := NewKVStore(func(_ protocol.Block, h protocol.Hash) { got2 = h })

	block := protocol.Block{Cmds: []protocol.Command{
		{Op: "SET", Args: []string{"a", "1"}},
		{Op: "SET", Args: []string{"b", "2"}},
	}}
	kv1.OnCommit(block)
	kv2.OnCommit(block)

	if got1 != got2 {
		t.Fatal("two stores applying the same block must derive the same app hash")
	}
}

func TestKVStoreAppHashChangesWithState(t *testing.T) {
	var before, after protocol.Hash
	kv := NewKVStore(func(_ protocol.Block, h protocol.Hash) { after = h })

	before = kv.appHashLocked()
	kv.OnCommit(protocol.Block{Cmds: []protocol.Command{{Op: "SET", Args: []string{"a", "1"}}}})

	if before == after {
		t.Fatal("app hash must change once state has been applied")
	}
}
