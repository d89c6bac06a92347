package faults

import (
	"math/rand"
	"testing"
	"time"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func TestHonestNeverHaltsOrDelays(t *testing.T) {
	h := Honest{}
	if h.ShouldHalt(100) {
		t.Fatal("Honest must never halt")
	}
	delay, proceed := h.BeforeSend("r1", protocol.Message{})
	if delay != 0 || !proceed {
		t.Fatal("Honest must send immediately")
	}
	peers := []protocol.NodeID{"r0", "r1", "r2"}
	out := h.BeforeBroadcast(peers, protocol.Message{Phase: protocol.Prepare})
	if len(out) != len(peers) {
		t.Fatalf("Honest must deliver to every peer, got %d/%d", len(out), len(peers))
	}
	for _, p := range peers {
		if out[p].Phase != protocol.Prepare {
			t.Fatalf("Honest must not alter the broadcast payload for %s", p)
		}
	}
}

func TestCrashHaltsOnlyAtItsView(t *testing.T) {
	c := Crash{AtView: 5}
	if c.ShouldHalt(4) {
		t.Fatal("Crash must not halt before its target view")
	}
	if !c.ShouldHalt(5) {
		t.Fatal("Crash must halt at its target view")
	}
}

func TestDelayedScalesWithView(t *testing.T) {
	d := Delayed{PerView: 10 * time.Millisecond}
	delay, proceed := d.BeforeSend("r1", protocol.Message{View: 3})
	if !proceed {
		t.Fatal("Delayed must still deliver, only later")
	}
	if delay != 30*time.Millisecond {
		t.Fatalf("delay = %v, want 30ms", delay)
	}
}

func TestMaliciousEquivocatesAcrossRecipients(t *testing.T) {
	m := Malicious{Rand: rand.New(rand.NewSource(1))}
	block := protocol.Block{
		Cmds: []protocol.Command{{Op: "SET", Args: []string{"k", "v"}}},
		View: 1,
	}
	peers := []protocol.NodeID{"r0", "r1", "r2", "r3"}
	out := m.BeforeBroadcast(peers, protocol.Message{Phase: protocol.Prepare, Block: &block})

	if len(out) != len(peers) {
		t.Fatalf("must still deliver to every peer, got %d/%d", len(out), len(peers))
	}

	seen := make(map[protocol.Hash]bool)
	for _, p := range peers {
		seen[out[p].Block.Hash()] = true
	}
	if len(seen) < 2 {
		t.Fatal("malicious broadcast must hand at least two recipients differing blocks")
	}
}

func TestMaliciousPassesThroughEmptyBlock(t *testing.T) {
	m := Malicious{}
	peers := []protocol.NodeID{"r0", "r1"}
	msg := protocol.Message{Phase: protocol.NewView}
	out := m.BeforeBroadcast(peers, msg)
	for _, p := range peers {
		if out[p].Phase != protocol.NewView {
			t.Fatal("a message with no block must pass through unaltered")
		}
	}
}
