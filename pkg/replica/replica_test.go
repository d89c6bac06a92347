package replica

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hotstuffd/hotstuffd/pkg/faults"
	"github.com/hotstuffd/hotstuffd/pkg/pacemaker"
	"github.com/hotstuffd/hotstuffd/pkg/protocol"
	"github.com/hotstuffd/hotstuffd/pkg/transport"
)

// recordingApp collects every block handed to OnCommit so tests can assert
// on decided order and cross-replica agreement.
type recordingApp struct {
	mu   sync.Mutex
	logs []protocol.Block
}

func (a *recordingApp) OnCommit(b protocol.Block) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, b)
}

func (a *recordingApp) committed() []protocol.Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]protocol.Block, len(a.logs))
	copy(out, a.logs)
	return out
}

// buildCluster wires n honest replicas (n=4, f=1, quorum=3) over a shared
// Memory bus, mirroring the teacher's multi-validator test harness.
func buildCluster(t *testing.T, n int) ([]*Replica, []*recordingApp) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	bus := transport.NewMemoryBus()

	peers := make([]protocol.NodeID, n)
	for i := range peers {
		peers[i] = protocol.NodeID(rune('0' + i))
	}

	reps := make([]*Replica, n)
	apps := make([]*recordingApp, n)
	quorum := 2*((n-1)/3) + 1

	for i, id := range peers {
		net := bus.NewMemory(id)
		pm := pacemaker.New(peers, 300*time.Millisecond, nil)
		app := &recordingApp{}
		apps[i] = app
		reps[i] = New(Config{
			ID:     id,
			Peers:  peers,
			Quorum: quorum,
			Net:    net,
			PM:     pm,
			App:    app,
			Fault:  faults.Honest{},
			Logger: logger,
		})
	}
	return reps, apps
}

func TestClusterDecidesFirstBlock(t *testing.T) {
	reps, apps := buildCluster(t, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for _, r := range reps {
		go r.Run(ctx)
	}

	// Submit to every replica's pending buffer, since leadership rotates by
	// round robin and any of them might be the view-1 leader.
	cmd := protocol.Command{Op: "SET", Args: []string{"x", "1"}, ClientID: "client"}
	for _, r := range reps {
		r.SubmitCommand(cmd)
	}

	deadline := time.After(2 * time.Second)
	for {
		allDecided := true
		for _, a := range apps {
			if len(a.committed()) == 0 {
				allDecided = false
				break
			}
		}
		if allDecided {
			break
		}
		select {
		case <-deadline:
			t.Fatal("cluster did not decide a block within the deadline")
		case <-time.After(20 * time.Millisecond):
		}
	}

	first := apps[0].committed()[0]
	for i, a := range apps {
		c := a.committed()
		if len(c) == 0 {
			t.Fatalf("replica %d decided nothing", i)
		}
		if c[0].Hash() != first.Hash() {
			t.Fatalf("replica %d decided a different first block than replica 0", i)
		}
	}
}

func TestClusterToleratesOneCrash(t *testing.T) {
	logger := zap.NewNop().Sugar()
	bus := transport.NewMemoryBus()
	n := 4
	peers := make([]protocol.NodeID, n)
	for i := range peers {
		peers[i] = protocol.NodeID(rune('0' + i))
	}
	quorum := 2*((n-1)/3) + 1

	var reps []*Replica
	var apps []*recordingApp
	for i, id := range peers {
		net := bus.NewMemory(id)
		pm := pacemaker.New(peers, 200*time.Millisecond, nil)
		app := &recordingApp{}
		apps = append(apps, app)

		var pol = faults.Policy(faults.Honest{})
		if i == 3 {
			pol = faults.Crash{AtView: 1} // halts as soon as it enters view 1, before voting
		}

		reps = append(reps, New(Config{
			ID: id, Peers: peers, Quorum: quorum, Net: net, PM: pm,
			App: app, Fault: pol, Logger: logger,
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()
	for _, r := range reps {
		go r.Run(ctx)
	}

	cmd := protocol.Command{Op: "SET", Args: []string{"y", "2"}, ClientID: "client"}
	for _, r := range reps {
		r.SubmitCommand(cmd)
	}

	deadline := time.After(3 * time.Second)
	for {
		decided := 0
		for i, a := range apps {
			if i == 3 {
				continue // crashed replica never decides
			}
			if len(a.committed()) > 0 {
				decided++
			}
		}
		if decided == 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("the 3 honest replicas did not reach a decision despite one crash (F=1 tolerated)")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
