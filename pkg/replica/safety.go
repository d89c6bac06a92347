package replica

import "github.com/hotstuffd/hotstuffd/pkg/protocol"

// extends reports whether newBlock's chain of ancestors, walked through
// blocks, reaches fromBlock. Callers must hold s.mu.
func extends(blocks map[protocol.Hash]protocol.Block, newBlock, fromBlock protocol.Block) bool {
	target := fromBlock.Hash()
	current := newBlock
	for current.Hash() != target {
		if !current.HasParent {
			return false
		}
		parent, ok := blocks[current.ParentHash]
		if !ok {
			return false
		}
		current = parent
	}
	return true
}

// safeBlock is the safety/liveness hinge: a proposal is safe to vote for if
// it extends the locked block, or if its justifying QC is from a later view
// than the lock — the second clause is what lets a replica unlock and make
// progress after a view change. Callers must hold s.mu.
func safeBlock(blocks map[protocol.Hash]protocol.Block, lockedQC protocol.QC, block protocol.Block, justify protocol.QC) bool {
	lockedBlock, ok := blocks[lockedQC.BlockHash]
	if !ok {
		return justify.View > lockedQC.View
	}
	return extends(blocks, block, lockedBlock) || justify.View > lockedQC.View
}
