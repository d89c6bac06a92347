package protocol

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// SignatureAggregator is the placeholder threshold-signature scheme: a
// multiset of partial signatures that verifies once any single value
// recurs at least Threshold times. It is intentionally forgeable — nothing
// here binds a partial signature to a signer's private key — matching the
// spec's own framing of vote aggregation as a counting exercise rather than
// real threshold cryptography. See pkg/blssig for an opt-in real substitute.
type SignatureAggregator struct {
	Threshold int
	Shares    []string
}

// NewSignatureAggregator builds an aggregator for a given quorum size.
func NewSignatureAggregator(threshold int) *SignatureAggregator {
	return &SignatureAggregator{Threshold: threshold}
}

// Add records one more partial signature share.
func (s *SignatureAggregator) Add(share string) {
	s.Shares = append(s.Shares, share)
}

// Verify reports whether some share value recurs at least Threshold times.
func (s *SignatureAggregator) Verify() bool {
	if s == nil {
		return false
	}
	counts := make(map[string]int, len(s.Shares))
	for _, v := range s.Shares {
		counts[v]++
		if counts[v] >= s.Threshold {
			return true
		}
	}
	return false
}

// PartialSign derives the deterministic share a replica contributes when
// voting for (view, phase, blockHash). Every honest replica that agrees on
// the triple produces the identical string, which is what lets Verify
// count matching shares instead of validating real signatures.
func PartialSign(view View, phase Phase, blockHash Hash) string {
	h := sha256.New()
	var viewBuf [8]byte
	binary.BigEndian.PutUint64(viewBuf[:], uint64(view))
	h.Write(viewBuf[:])
	h.Write([]byte(phase.String()))
	h.Write(blockHash[:])
	return hex.EncodeToString(h.Sum(nil))
}

// QC is a quorum certificate: proof that Threshold replicas produced a
// matching partial signature for (Phase, View, BlockHash).
type QC struct {
	Phase     Phase
	View      View
	BlockHash Hash
	Sig       *SignatureAggregator
}

// GenesisQC is the QC the chain starts from: PREPARE phase, view 0, valid
// by construction since no replica needed to vote for it.
func GenesisQC() QC {
	return QC{Phase: Prepare, View: 0, BlockHash: GenesisBlock().Hash()}
}

// Verify reports whether the QC is well-formed: the genesis QC is valid by
// construction, everything else must carry a threshold-satisfying signature.
func (qc QC) Verify() bool {
	if qc.View == 0 && qc.Phase == Prepare {
		return true
	}
	return qc.Sig.Verify()
}

// MatchingQC reports whether qc certifies exactly (phase, view).
func MatchingQC(qc QC, phase Phase, view View) bool {
	return qc.Phase == phase && qc.View == view
}

// Message is the single envelope type carried over the wire for every
// protocol step — NEW_VIEW, the four leader broadcasts (PREPARE is a
// proposal; PRECOMMIT, COMMIT and DECIDE carry only a QC), and the replica
// vote/ack messages.
// Which fields are populated depends on Phase; see pkg/replica for exactly
// which fields each handler reads.
type Message struct {
	Phase Phase
	View  View

	// Block is set on PREPARE (the proposal) and on vote messages (which
	// block the vote is for).
	Block *Block

	// Justify carries the QC a leader message certifies, or the
	// high_prepare_qc a replica reports when starting a new view.
	Justify *QC

	// PartialSig is this sender's share for vote messages.
	PartialSig string

	// Cmd carries a client command on a CLIENT_REQ-equivalent delivery.
	Cmd *Command

	Sender NodeID
}

// MatchingMsg reports whether m is a (phase, view) message, the check every
// handler performs before trusting payload.View against its own view.
func MatchingMsg(m Message, phase Phase, view View) bool {
	return m.Phase == phase && m.View == view
}
