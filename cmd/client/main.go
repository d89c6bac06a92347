// Command client submits one Command to a hotstuffd replica set from the
// terminal and waits for F+1 replies, the same broadcast-and-wait protocol
// the reference client used. Replies are counted, not compared.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hotstuffd/hotstuffd/params"
	"github.com/hotstuffd/hotstuffd/pkg/client"
	"github.com/hotstuffd/hotstuffd/pkg/protocol"
)

func main() {
	var (
		replicasFlag = flag.String("replicas", "", "comma-separated id=host:port list; defaults to the devnet config")
		clientID     = flag.String("client-id", "cli", "client identity attached to submitted commands")
		timeout      = flag.Duration("timeout", 5*time.Second, "how long to wait for accept replies")
		accept       = flag.Int("accept", 0, "number of replies to wait for; defaults to F+1")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: client [flags] <op> [args...]")
		fmt.Fprintln(os.Stderr, "example: client SET foo bar")
		os.Exit(1)
	}

	cfg := params.Default()
	addrs := make(map[protocol.NodeID]string, len(cfg.Consensus.Replicas))
	if *replicasFlag != "" {
		for _, entry := range strings.Split(*replicasFlag, ",") {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				continue
			}
			addrs[protocol.NodeID(parts[0])] = parts[1]
		}
	} else {
		for _, r := range cfg.Consensus.Replicas {
			addrs[protocol.NodeID(r.ID)] = r.Addr
		}
	}

	n := len(addrs)
	f := (n - 1) / 3
	acceptCount := *accept
	if acceptCount <= 0 {
		acceptCount = f + 1
	}

	op := flag.Arg(0)
	args := flag.Args()[1:]

	c := client.New(protocol.NodeID(*clientID), addrs, *timeout)
	defer c.Close()

	cmd := protocol.Command{Op: op, Args: args, ClientID: protocol.NodeID(*clientID)}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	replies := c.BroadcastCmd(ctx, cmd, acceptCount)
	if len(replies) < acceptCount {
		log.Fatalf("only %d/%d replicas acknowledged %s within %s", len(replies), acceptCount, op, *timeout)
	}

	fmt.Printf("%s %v accepted by %d/%d replicas\n", op, args, len(replies), n)
}
