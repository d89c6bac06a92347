package faults

import (
	"math/rand"
	"strconv"

	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

// Malicious is honest on unicast sends but equivocates on broadcast: when
// the message being broadcast is a proposal, it hands every recipient a
// distinct, independently mutated block instead of the one real proposal,
// mirroring the per-recipient equivocation the reference malicious network
// performs on PREPARE broadcasts.
type Malicious struct {
	Honest
	Rand *rand.Rand
}

func (m Malicious) Name() string { return "malicious" }

func (m Malicious) BeforeBroadcast(peers []protocol.NodeID, msg protocol.Message) map[protocol.NodeID]protocol.Message {
	out := make(map[protocol.NodeID]protocol.Message, len(peers))
	if msg.Block == nil || len(msg.Block.Cmds) == 0 {
		for _, p := range peers {
			out[p] = msg
		}
		return out
	}

	r := m.Rand
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	for _, p := range peers {
		malCmds := make([]protocol.Command, len(msg.Block.Cmds))
		copy(malCmds, msg.Block.Cmds)
		first := malCmds[0]
		mutatedArgs := append([]string(nil), first.Args...)
		if len(mutatedArgs) > 1 {
			mutatedArgs[1] = strconv.Itoa(r.Intn(1000) + 1)
		}
		malCmds[0] = protocol.Command{Op: first.Op, Args: mutatedArgs, ClientID: first.ClientID}

		malBlock := protocol.Block{
			Cmds:       malCmds,
			ParentHash: msg.Block.ParentHash,
			HasParent:  msg.Block.HasParent,
			View:       msg.Block.View,
		}
		malMsg := msg
		malMsg.Block = &malBlock
		out[p] = malMsg
	}
	return out
}
