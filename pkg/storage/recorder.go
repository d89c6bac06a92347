package storage

import (
	"github.com/cockroachdb/pebble"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// Recorder writes the blocks and QCs handed to it to a Pebble database purely
// for post-mortem inspection after a crash; cmd/node records each decided
// block and no QCs. It is never read back by a
// replica to make a protocol decision — the in-memory state rebuilt from
// NEW_VIEW on restart is always authoritative — so a missing or corrupt
// recorder database never affects safety or liveness.
type Recorder struct {
	db *pebble.DB
}

// OpenRecorder opens (creating if necessary) a Pebble database at path.
func OpenRecorder(path string) (*Recorder, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Recorder{db: db}, nil
}

func (r *Recorder) RecordBlock(b protocol.Block) error {
	payload, err := encodeGob(b)
	if err != nil {
		return err
	}
	return r.db.Set(blockKey(b.Hash()), payload, pebble.Sync)
}

func (r *Recorder) RecordQC(qc protocol.QC) error {
	payload, err := encodeGob(qc)
	if err != nil {
		return err
	}
	return r.db.Set(certKey(qc.View), payload, pebble.Sync)
}

func (r *Recorder) Block(h protocol.Hash) (protocol.Block, bool, error) {
	payload, closer, err := r.db.Get(blockKey(h))
	if err == pebble.ErrNotFound {
		return protocol.Block{}, false, nil
	}
	if err != nil {
		return protocol.Block{}, false, err
	}
	defer closer.Close()
	var b protocol.Block
	if err := decodeGob(payload, &b); err != nil {
		return protocol.Block{}, false, err
	}
	return b, true, nil
}

func (r *Recorder) Close() error { return r.db.Close() }
