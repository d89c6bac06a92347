package pacemaker

import (
	"testing"
	"time"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func testReplicas() []protocol.NodeID {
	return []protocol.NodeID{"r0", "r1", "r2", "r3"}
}

func TestLeaderRoundRobin(t *testing.T) {
	pm := New(testReplicas(), time.Second, nil)
	cases := map[protocol.View]protocol.NodeID{
		0: "r0",
		1: "r1",
		2: "r2",
		3: "r3",
		4: "r0",
		5: "r1",
	}
	for view, want := range cases {
		if got := pm.Leader(view); got != want {
			t.Errorf("Leader(%d) = %s, want %s", view, got, want)
		}
	}
}

func TestArmViewFiresTimeout(t *testing.T) {
	fired := make(chan protocol.View, 1)
	pm := New(testReplicas(), 20*time.Millisecond, func(v protocol.View) {
		fired <- v
	})
	pm.ArmView(3)

	select {
	case v := <-fired:
		if v != 3 {
			t.Fatalf("timeout fired for view %d, want 3", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestArmViewCancelsPreviousTimer(t *testing.T) {
	fired := make(chan protocol.View, 4)
	pm := New(testReplicas(), 30*time.Millisecond, func(v protocol.View) {
		fired <- v
	})
	pm.ArmView(1)
	pm.ArmView(2) // must cancel view 1's timer before it fires

	select {
	case v := <-fired:
		if v != 2 {
			t.Fatalf("got timeout for view %d, want only view 2 to fire", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	select {
	case v := <-fired:
		t.Fatalf("a second timeout fired unexpectedly for view %d", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopTimerPreventsCallback(t *testing.T) {
	fired := make(chan protocol.View, 1)
	pm := New(testReplicas(), 20*time.Millisecond, func(v protocol.View) {
		fired <- v
	})
	pm.ArmView(1)
	pm.StopTimer()

	select {
	case v := <-fired:
		t.Fatalf("timeout fired for view %d after StopTimer", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSetOnTimeoutAfterConstruction(t *testing.T) {
	pm := New(testReplicas(), 20*time.Millisecond, nil)
	fired := make(chan protocol.View, 1)
	pm.SetOnTimeout(func(v protocol.View) { fired <- v })
	pm.ArmView(7)

	select {
	case v := <-fired:
		if v != 7 {
			t.Fatalf("got view %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired after late callback wiring")
	}
}
