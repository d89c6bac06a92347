package replica

import (
	"context"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// startNewView is the NEW-VIEW step every replica runs: it refuses to move
// backwards, advances the view, re-arms the pacemaker, determines whether
// it is now the leader, and tells the new leader its high_prepare_qc.
func (r *Replica) startNewView(ctx context.Context, newView protocol.View) {
	r.st.mu.Lock()
	if newView <= r.st.currentView {
		r.st.mu.Unlock()
		return
	}
	r.st.currentView = newView
	leader := r.cfg.PM.Leader(newView)
	r.st.isLeader = leader == r.cfg.ID
	high := r.st.highPrepareQC
	r.st.mu.Unlock()

	r.cfg.PM.ArmView(newView)
	r.cfg.Logger.Infow("entering_view", "view", newView, "leader", r.st.isLeader, "replica", r.cfg.ID)

	r.send(ctx, leader, protocol.Message{Phase: protocol.NewView, View: newView, Justify: &high})
}

// handleNewView is the leader's PREPARE step: once QUORUM NEW_VIEW
// messages for the current view arrive, it picks the highest justify QC
// among them, proposes a new block extending its referenced block, and
// broadcasts PREPARE.
func (r *Replica) handleNewView(ctx context.Context, msg protocol.Message) {
	r.st.mu.Lock()
	view := r.st.currentView
	isLeader := r.st.isLeader
	r.st.mu.Unlock()
	if !isLeader || !protocol.MatchingMsg(msg, protocol.NewView, view) || msg.Justify == nil {
		return
	}

	r.st.mu.Lock()
	r.st.newViewMsgs[msg.View] = append(r.st.newViewMsgs[msg.View], msg)
	votes := r.st.newViewMsgs[msg.View]
	if len(votes) != r.cfg.Quorum {
		r.st.mu.Unlock()
		return
	}

	highest := *votes[0].Justify
	for _, v := range votes[1:] {
		if v.Justify.View > highest.View {
			highest = *v.Justify
		}
	}
	cmds := r.st.drainPendingCmds()
	block := protocol.Block{Cmds: cmds, ParentHash: highest.BlockHash, HasParent: true, View: view}
	r.st.mu.Unlock()

	r.cfg.Logger.Infow("leader_proposing", "view", view, "block", block.Hash().String(), "cmds", len(cmds))
	r.broadcast(ctx, protocol.Message{Phase: protocol.Prepare, View: view, Block: &block, Justify: &highest})
}

// handlePrepare is the replica-side PREPARE step: vote for the leader's
// proposal iff it extends the block its justify QC names and passes
// safeBlock. Every replica, including the leader itself via self-delivery,
// runs this before it ever records a current proposal.
func (r *Replica) handlePrepare(ctx context.Context, msg protocol.Message) {
	r.st.mu.Lock()
	view := r.st.currentView
	r.st.mu.Unlock()
	if !protocol.MatchingMsg(msg, protocol.Prepare, view) || msg.Block == nil || msg.Justify == nil {
		return
	}

	r.st.mu.Lock()
	justifyBlock, ok := r.st.blocks[msg.Justify.BlockHash]
	if !ok {
		r.st.mu.Unlock()
		return
	}
	if !extends(r.st.blocks, *msg.Block, justifyBlock) || !safeBlock(r.st.blocks, r.st.lockedQC, *msg.Block, *msg.Justify) {
		r.st.mu.Unlock()
		return
	}
	r.st.blocks[msg.Block.Hash()] = *msg.Block
	r.st.currentProposal = msg.Block
	r.st.mu.Unlock()

	r.cfg.PM.StopTimer()
	r.cfg.Logger.Infow("voting_prepare", "view", view, "block", msg.Block.Hash().String())

	sig := protocol.PartialSign(view, protocol.PrepareVote, msg.Block.Hash())
	leader := r.cfg.PM.Leader(view)
	r.cfg.PM.ArmView(view)
	r.send(ctx, leader, protocol.Message{Phase: protocol.PrepareVote, View: view, Block: msg.Block, PartialSig: sig})
}

// handlePrepareVote is the leader's PRECOMMIT step: collect QUORUM votes
// for the current proposal, combine their shares into a QC, remember it as
// high_prepare_qc, and broadcast PRECOMMIT.
func (r *Replica) handlePrepareVote(ctx context.Context, msg protocol.Message) {
	r.collectVote(ctx, msg, protocol.PrepareVote, protocol.Prepare, protocol.Precommit, &r.st.prepareVotes, func(qc protocol.QC) {
		r.st.mu.Lock()
		r.st.highPrepareQC = qc
		r.st.mu.Unlock()
	})
}

// handlePrecommit is the replica-side PRECOMMIT step: verify the leader's
// PREPARE QC, update high_prepare_qc if it's newer, and vote PRECOMMIT.
func (r *Replica) handlePrecommit(ctx context.Context, msg protocol.Message) {
	r.voteOnQC(ctx, msg, protocol.Prepare, protocol.PrecommitVote, func() {
		r.st.mu.Lock()
		if msg.Justify.View > r.st.highPrepareQC.View {
			r.st.highPrepareQC = *msg.Justify
		}
		r.st.mu.Unlock()
	})
}

// handlePrecommitVote is the leader's COMMIT step.
func (r *Replica) handlePrecommitVote(ctx context.Context, msg protocol.Message) {
	r.collectVote(ctx, msg, protocol.PrecommitVote, protocol.Precommit, protocol.Commit, &r.st.precommitVotes, func(protocol.QC) {})
}

// handleCommit is the replica-side COMMIT step: verify the leader's
// PRECOMMIT QC and, critically, lock on it — this is the safety watermark
// that makes the block durable against future view changes.
func (r *Replica) handleCommit(ctx context.Context, msg protocol.Message) {
	r.voteOnQC(ctx, msg, protocol.Precommit, protocol.CommitVote, func() {
		r.st.mu.Lock()
		if msg.Justify.View > r.st.lockedQC.View {
			r.st.lockedQC = *msg.Justify
		}
		r.st.mu.Unlock()
	})
}

// handleCommitVote is the leader's DECIDE step.
func (r *Replica) handleCommitVote(ctx context.Context, msg protocol.Message) {
	r.collectVote(ctx, msg, protocol.CommitVote, protocol.Commit, protocol.Decide, &r.st.commitVotes, func(protocol.QC) {})
}

// handleDecide is the replica-side DECIDE step: verify the COMMIT QC,
// append the block to the decided log, hand it to the application, and
// start the next view.
func (r *Replica) handleDecide(ctx context.Context, msg protocol.Message) {
	r.st.mu.Lock()
	view := r.st.currentView
	r.st.mu.Unlock()
	if msg.Justify == nil || !protocol.MatchingQC(*msg.Justify, protocol.Commit, view) || !msg.Justify.Verify() {
		return
	}

	r.st.mu.Lock()
	block, ok := r.st.blocks[msg.Justify.BlockHash]
	if ok {
		r.st.log = append(r.st.log, block)
	}
	r.st.mu.Unlock()

	if ok {
		r.cfg.Logger.Infow("decided", "view", view, "block", block.Hash().String(), "cmds", len(block.Cmds))
		if r.cfg.App != nil {
			r.cfg.App.OnCommit(block)
		}
	}

	r.startNewView(ctx, view+1)
}

// voteOnQC is the shared shape of handlePrecommit/handleCommit: check the
// leader's QC matches (phase, view) and verifies, run an extra side effect
// (updating a watermark), then vote for the next phase.
func (r *Replica) voteOnQC(ctx context.Context, msg protocol.Message, wantPhase protocol.Phase, voteForPhase protocol.Phase, onValid func()) {
	r.st.mu.Lock()
	view := r.st.currentView
	r.st.mu.Unlock()
	if msg.Justify == nil || !protocol.MatchingQC(*msg.Justify, wantPhase, view) || !msg.Justify.Verify() {
		return
	}

	onValid()
	r.cfg.PM.StopTimer()

	r.st.mu.Lock()
	block, ok := r.st.blocks[msg.Justify.BlockHash]
	r.st.mu.Unlock()
	if !ok {
		return
	}

	sig := protocol.PartialSign(view, voteForPhase, block.Hash())
	leader := r.cfg.PM.Leader(view)
	r.cfg.PM.ArmView(view)
	r.send(ctx, leader, protocol.Message{Phase: voteForPhase, View: view, Block: &block, PartialSig: sig})
}

// collectVote is the shared shape of the three leader-side vote-collection
// steps: buffer the vote under its view, ignore anything not for the
// current proposal, and once QUORUM accumulate, combine shares into a QC,
// run a side effect, and broadcast the next phase.
func (r *Replica) collectVote(
	ctx context.Context,
	msg protocol.Message,
	wantPhase protocol.Phase,
	qcPhase protocol.Phase,
	nextPhase protocol.Phase,
	bucket *map[protocol.View][]protocol.Message,
	onQC func(protocol.QC),
) {
	r.st.mu.Lock()
	view := r.st.currentView
	isLeader := r.st.isLeader
	proposal := r.st.currentProposal
	r.st.mu.Unlock()
	if !isLeader || !protocol.MatchingMsg(msg, wantPhase, view) || proposal == nil || msg.Block == nil {
		return
	}
	if msg.Block.Hash() != proposal.Hash() {
		return
	}

	r.st.mu.Lock()
	(*bucket)[msg.View] = append((*bucket)[msg.View], msg)
	votes := (*bucket)[msg.View]
	if len(votes) != r.cfg.Quorum {
		r.st.mu.Unlock()
		return
	}
	agg := protocol.NewSignatureAggregator(r.cfg.Quorum)
	for _, v := range votes {
		agg.Add(v.PartialSig)
	}
	qc := protocol.QC{Phase: qcPhase, View: view, BlockHash: proposal.Hash(), Sig: agg}
	r.st.mu.Unlock()

	onQC(qc)
	r.cfg.Logger.Infow("leader_formed_qc", "phase", qcPhase.String(), "view", view)
	r.broadcast(ctx, protocol.Message{Phase: nextPhase, View: view, Justify: &qc})
}
