// Command node runs a single hotstuffd replica: it loads configuration,
// wires the transport, pacemaker, fault policy, and application port, then
// drives the consensus event loop until the process receives a shutdown
// signal.
package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hotstuffd/hotstuffd/params"
	"github.com/hotstuffd/hotstuffd/pkg/api"
	"github.com/hotstuffd/hotstuffd/pkg/app"
	"github.com/hotstuffd/hotstuffd/pkg/faults"
	"github.com/hotstuffd/hotstuffd/pkg/logging"
	"github.com/hotstuffd/hotstuffd/pkg/pacemaker"
	"github.com/hotstuffd/hotstuffd/pkg/protocol"
	"github.com/hotstuffd/hotstuffd/pkg/replica"
	"github.com/hotstuffd/hotstuffd/pkg/storage"
	"github.com/hotstuffd/hotstuffd/pkg/transport"
)

func main() {
	cfg := params.LoadFromEnv("")

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/" + cfg.Node.SelfID + ".log"
	}
	zlog, err := logging.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()
	sugar := zlog.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	selfID := protocol.NodeID(cfg.Node.SelfID)
	addrs := make(transport.AddressBook, len(cfg.Consensus.Replicas))
	var peers []protocol.NodeID
	for _, r := range cfg.Consensus.Replicas {
		addrs[protocol.NodeID(r.ID)] = r.Addr
		peers = append(peers, protocol.NodeID(r.ID))
	}
	quorum := cfg.Consensus.Quorum()

	sugar.Infow("node_starting",
		"self", selfID, "replicas", len(peers), "quorum", quorum,
		"transport", cfg.Node.Transport, "fault", cfg.Node.FaultType)

	var net transport.Transport
	switch cfg.Node.Transport {
	case "memory":
		net = transport.NewMemoryBus().NewMemory(selfID)
	case "libp2p":
		sugar.Fatalw("libp2p_transport_needs_peer_ids", "hint", "wire a protocol.NodeID->peer.ID table in deployment config before selecting libp2p")
	default:
		t, err := transport.NewTCP(selfID, addrs)
		if err != nil {
			sugar.Fatalw("transport_init_failed", "err", err)
		}
		net = t
	}
	defer net.Close()

	var recorder *storage.Recorder
	if cfg.Node.StoragePath != "" {
		recorder, err = storage.OpenRecorder(cfg.Node.StoragePath)
		if err != nil {
			sugar.Warnw("recorder_init_failed", "err", err)
		} else {
			defer recorder.Close()
		}
	}

	// apiServer is wired after replica.New (which needs the Application
	// port before the Server exists to drive it), so NotifyCommit is
	// dispatched through this forwarding closure instead.
	var apiServer *api.Server
	kv := app.NewKVStore(func(block protocol.Block, appHash protocol.Hash) {
		if recorder != nil {
			if err := recorder.RecordBlock(block); err != nil {
				sugar.Warnw("record_block_failed", "err", err)
			}
		}
		if apiServer != nil {
			apiServer.NotifyCommit(block, appHash)
		}
	})

	pm := pacemaker.New(peers, cfg.Consensus.ViewTimeout, nil)

	rep := replica.New(replica.Config{
		ID:     selfID,
		Peers:  peers,
		Quorum: quorum,
		Net:    net,
		PM:     pm,
		App:    kv,
		Fault:  resolveFaultPolicy(cfg.Node),
		Logger: sugar,
	})

	apiServer = api.NewServer(cfg.Node.SelfID, rep)
	go func() {
		sugar.Infow("api_server_starting", "addr", cfg.Node.APIAddr)
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go rep.Run(ctx)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			sugar.Infow("node_shutting_down")
			return
		case <-ticker.C:
			snap := rep.Snapshot()
			sugar.Infow("consensus_progress",
				"view", snap.View, "committed", snap.CommittedLen,
				"leader", snap.IsLeader, "running", snap.Running)
		}
	}
}

func resolveFaultPolicy(node params.Node) faults.Policy {
	switch node.FaultType {
	case "crash":
		return faults.Crash{AtView: protocol.View(node.FaultCrashView)}
	case "delayed":
		return faults.Delayed{PerView: time.Duration(node.FaultDelayMs) * time.Millisecond}
	case "malicious":
		return faults.Malicious{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
	default:
		return faults.Honest{}
	}
}
