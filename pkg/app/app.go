// Package app is the generic application port a decided block is handed
// to. It replaces the teacher's perp-DEX trading engine with a small
// deterministic key/value store: enough to give every SET/GET-style
// Command somewhere real to land, and to let tests assert that every
// replica's state converges after DECIDE.
package app

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// KVStore executes decided blocks against an in-memory key/value map and
// tracks a running application hash, the way the teacher's MockApp derived
// an AppHash from height and executed command count.
type KVStore struct {
	mu      sync.Mutex
	data    map[string]string
	applied int
	onEvent func(block protocol.Block, appHash protocol.Hash)
}

// NewKVStore builds an empty store. onEvent, if non-nil, is called after
// every applied block — the admin API's commit feed subscribes through it.
func NewKVStore(onEvent func(protocol.Block, protocol.Hash)) *KVStore {
	return &KVStore{data: make(map[string]string), onEvent: onEvent}
}

// OnCommit implements replica.Application: it executes every command in
// the decided block, in order, against the store.
func (k *KVStore) OnCommit(block protocol.Block) {
	k.mu.Lock()
	for _, cmd := range block.Cmds {
		k.apply(cmd)
		k.applied++
	}
	appHash := k.appHashLocked()
	k.mu.Unlock()

	if k.onEvent != nil {
		k.onEvent(block, appHash)
	}
}

// apply executes one command. SET writes Args[0]=Args[1]; anything else is
// a no-op read that the caller can fetch with Get.
func (k *KVStore) apply(cmd protocol.Command) {
	if cmd.Op == "SET" && len(cmd.Args) >= 2 {
		k.data[cmd.Args[0]] = cmd.Args[1]
	}
}

// Get reads a key's current value.
func (k *KVStore) Get(key string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[key]
	return v, ok
}

// appHashLocked derives a deterministic digest of the store's visible
// state: applied-command count plus every key/value pair, sorted by the
// map's own iteration isn't deterministic, so we hash via a stable walk.
func (k *KVStore) appHashLocked() protocol.Hash {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(k.applied))
	h.Write(buf[:])
	for _, key := range sortedKeys(k.data) {
		fmt.Fprintf(h, "%s=%s;", key, k.data[key])
	}
	var out protocol.Hash
	copy(out[:], h.Sum(nil))
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
