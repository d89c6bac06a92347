// Package protocol defines the wire-level value objects shared by every
// replica: blocks, quorum certificates, protocol messages, and commands.
// Nothing in this package touches the network or the replica state machine;
// it is pure data plus the hashing/equality rules the rest of the system
// depends on.
package protocol

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// NodeID identifies a replica or client across the address book.
type NodeID string

// View is a monotonically increasing view/term number.
type View uint64

// Hash is a SHA-256 digest.
type Hash [32]byte

func (h Hash) String() string { return fmt.Sprintf("%x", h[:]) }

// Phase tags the step of the three-phase pipeline a message belongs to.
type Phase int

const (
	NewView Phase = iota
	Prepare
	PrepareVote
	Precommit
	PrecommitVote
	Commit
	CommitVote
	Decide
	// ClientAck is the reply a replica sends a client once its command has
	// been accepted into the local mempool, letting the client count
	// acceptances without waiting for a full decide round.
	ClientAck
)

func (p Phase) String() string {
	switch p {
	case NewView:
		return "NEW_VIEW"
	case Prepare:
		return "PREPARE"
	case PrepareVote:
		return "PREPARE_VOTE"
	case Precommit:
		return "PRECOMMIT"
	case PrecommitVote:
		return "PRECOMMIT_VOTE"
	case Commit:
		return "COMMIT"
	case CommitVote:
		return "COMMIT_VOTE"
	case Decide:
		return "DECIDE"
	case ClientAck:
		return "CLIENT_ACK"
	default:
		return fmt.Sprintf("PHASE(%d)", int(p))
	}
}

// Command is an opaque client request. Consensus only ever hashes it; its
// meaning is entirely up to the application port (pkg/app).
type Command struct {
	Op       string
	Args     []string
	ClientID NodeID
	// Sig is an optional client-authentication signature (see pkg/keysigner).
	// It plays no role in quorum formation; only the application port may
	// choose to verify it.
	Sig []byte
}

// Hash returns the command's content hash, used only to make blocks
// deterministic; it carries no cryptographic authentication guarantee.
func (c Command) Hash() Hash {
	h := sha256.New()
	h.Write([]byte(c.Op))
	for _, a := range c.Args {
		h.Write([]byte(a))
	}
	h.Write([]byte(c.ClientID))
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Block is a link in the replicated chain. Equality is by Hash; a Block is
// immutable once constructed. The parent is referenced by hash only — the
// chain is walked through a Hash->Block index (see pkg/replica's chain
// store), not through in-memory pointers, so that blocks remain plain data.
type Block struct {
	Cmds       []Command
	ParentHash Hash
	HasParent  bool // false only for genesis
	View       View
}

// GenesisBlock is the chain root: no commands, no parent, view 0.
func GenesisBlock() Block {
	return Block{Cmds: nil, HasParent: false, View: 0}
}

// Hash computes SHA-256(cmds || view || parent_hash_or_"genesis"), matching
// the canonical block hash the spec requires every replica to derive
// identically.
func (b Block) Hash() Hash {
	h := sha256.New()
	for _, c := range b.Cmds {
		ch := c.Hash()
		h.Write(ch[:])
	}
	var viewBuf [8]byte
	binary.BigEndian.PutUint64(viewBuf[:], uint64(b.View))
	h.Write(viewBuf[:])
	if b.HasParent {
		h.Write(b.ParentHash[:])
	} else {
		h.Write([]byte("genesis"))
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Equal compares blocks by hash, per the spec's equality rule.
func (b Block) Equal(other Block) bool { return b.Hash() == other.Hash() }
