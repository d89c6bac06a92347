package protocol

import "testing"

func TestBlockHashDeterministic(t *testing.T) {
	b1 := Block{Cmds: []Command{{Op: "SET", Args: []string{"a", "1"}}}, View: 1, HasParent: true}
	b2 := Block{Cmds: []Command{{Op: "SET", Args: []string{"a", "1"}}}, View: 1, HasParent: true}
	if b1.Hash() != b2.Hash() {
		t.Fatal("identical blocks must hash identically")
	}
	if !b1.Equal(b2) {
		t.Fatal("Equal must agree with Hash")
	}
}

func TestBlockHashSensitiveToView(t *testing.T) {
	b1 := Block{Cmds: nil, View: 1, HasParent: true}
	b2 := Block{Cmds: nil, View: 2, HasParent: true}
	if b1.Hash() == b2.Hash() {
		t.Fatal("blocks differing only by view must hash differently")
	}
}

func TestGenesisBlockHasNoParent(t *testing.T) {
	g := GenesisBlock()
	if g.HasParent {
		t.Fatal("genesis must not have a parent")
	}
	if g.View != 0 {
		t.Fatalf("genesis view = %d, want 0", g.View)
	}
}

func TestCommandHashIgnoresSig(t *testing.T) {
	c1 := Command{Op: "SET", Args: []string{"k", "v"}, ClientID: "c1", Sig: []byte("sig-a")}
	c2 := Command{Op: "SET", Args: []string{"k", "v"}, ClientID: "c1", Sig: []byte("sig-b")}
	if c1.Hash() != c2.Hash() {
		t.Fatal("command hash must not depend on the authentication signature")
	}
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		NewView:     "NEW_VIEW",
		Prepare:     "PREPARE",
		PrepareVote: "PREPARE_VOTE",
		Decide:      "DECIDE",
		ClientAck:   "CLIENT_ACK",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
