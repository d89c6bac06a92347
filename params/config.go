// Package params loads the node's runtime configuration: the replica
// address book, pacemaker timeout, transport choice, and this process's
// own identity and fault mode. Loading follows the teacher's layering —
// defaults, then an optional .env file via godotenv, then environment
// variables — so a devnet script can override one field without touching
// the rest.
package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ReplicaConfig is one entry of the address book.
type ReplicaConfig struct {
	ID   string
	Addr string // "host:port" for tcp/memory, a multiaddr for libp2p
}

// Consensus configures the replica set and pacemaker.
type Consensus struct {
	Replicas    []ReplicaConfig
	ViewTimeout time.Duration // matches the reference Pacemaker's per-view timeout
}

// Node configures this process: which replica it is, how it talks to
// peers, where (if anywhere) it mirrors state for diagnostics, and its
// fault-injection mode for test harnesses.
type Node struct {
	SelfID      string
	Transport   string // "tcp", "libp2p", or "memory"
	StoragePath string // pebble flight-recorder path; empty disables recording
	APIAddr     string

	FaultType      string // "honest", "crash", "delayed", "malicious"
	FaultCrashView uint64
	FaultDelayMs   int
}

type Config struct {
	Consensus Consensus
	Node      Node
}

// Default returns a 4-replica, N=3F+1, F=1 devnet configuration: the same
// shape the reference implementation's test harnesses spin up.
func Default() Config {
	return Config{
		Consensus: Consensus{
			Replicas: []ReplicaConfig{
				{ID: "r0", Addr: "127.0.0.1:51000"},
				{ID: "r1", Addr: "127.0.0.1:51001"},
				{ID: "r2", Addr: "127.0.0.1:51002"},
				{ID: "r3", Addr: "127.0.0.1:51003"},
			},
			ViewTimeout: 2 * time.Second,
		},
		Node: Node{
			SelfID:    "r0",
			Transport: "tcp",
			APIAddr:   "127.0.0.1:8080",
			FaultType: "honest",
		},
	}
}

// LoadFromEnv loads configuration from an optional .env file and then
// environment variables; env vars always win.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("VIEW_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Consensus.ViewTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("REPLICAS"); v != "" {
		cfg.Consensus.Replicas = parseReplicas(v)
	}

	if v := os.Getenv("SELF_ID"); v != "" {
		cfg.Node.SelfID = v
	}
	if v := os.Getenv("TRANSPORT"); v != "" {
		cfg.Node.Transport = v
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		cfg.Node.StoragePath = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Node.APIAddr = v
	}
	if v := os.Getenv("FAULT_TYPE"); v != "" {
		cfg.Node.FaultType = v
	}
	if v := os.Getenv("FAULT_CRASH_VIEW"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Node.FaultCrashView = n
		}
	}
	if v := os.Getenv("FAULT_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Node.FaultDelayMs = ms
		}
	}

	return cfg
}

// parseReplicas parses "id1=addr1,id2=addr2,..." into the address book.
func parseReplicas(v string) []ReplicaConfig {
	var out []ReplicaConfig
	for _, entry := range strings.Split(v, ",") {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, ReplicaConfig{ID: parts[0], Addr: parts[1]})
	}
	return out
}

// Quorum computes 2F+1 for an N=3F+1 replica set.
func (c Consensus) Quorum() int {
	n := len(c.Replicas)
	f := (n - 1) / 3
	return 2*f + 1
}
