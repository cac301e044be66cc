// Package gossip implements cluster membership exchange: a periodic
// emitter that swaps node lists with one random peer, and a one-shot seed
// listener that lets a booting node join the ring (spec 4.11).
package gossip

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"math/rand"

	"github.com/ringkeep/ringnode/pkg/cluster"
	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/log"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/transport"
)

// Emitter periodically exchanges this node's view of the cluster with one
// randomly chosen, non-Booting peer.
type Emitter struct {
	Store      *cluster.Store
	ClientTLS  *tls.Config
	GossipPort int
}

// Round runs one gossip exchange, doing nothing if this is the only known
// node. On a connection failure the peer is marked Inactive.
func (e *Emitter) Round(ctx context.Context) error {
	view, err := e.Store.Read()
	if err != nil {
		return err
	}
	if view.Count() <= 1 {
		return nil
	}
	peer := pickPeer(view.OtherNodes)
	if peer == nil {
		return nil
	}

	addr := transport.JoinHostPort(peer.IP, e.GossipPort)
	conn, err := transport.Dial(addr, e.ClientTLS)
	if err != nil {
		return e.markInactive(peer.IP)
	}
	defer conn.Close()

	ownView, err := e.Store.Read()
	if err != nil {
		return err
	}
	outgoing, err := json.Marshal(ownView.AllNodes())
	if err != nil {
		return errs.Server(err, "encoding gossip payload")
	}
	if err := transport.WriteFrame(conn, outgoing); err != nil {
		return e.markInactive(peer.IP)
	}

	incoming, err := transport.ReadFrame(conn)
	if err != nil {
		return e.markInactive(peer.IP)
	}
	var received []model.Node
	if err := json.Unmarshal(incoming, &received); err != nil {
		return errs.Server(err, "decoding gossip payload")
	}

	merged := ownView.Merge(received).WithRecomputedRanges()
	return e.Store.Write(merged)
}

func (e *Emitter) markInactive(ip string) error {
	log.Warn("gossip peer " + ip + " unreachable, marking inactive")
	view, err := e.Store.Read()
	if err != nil {
		return err
	}
	return e.Store.Write(view.SetState(ip, model.Inactive))
}

// pickPeer chooses a random non-Booting node to gossip with — a booting
// node has no useful view to exchange yet.
func pickPeer(nodes []model.Node) *model.Node {
	candidates := make([]model.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.State != model.Booting {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	chosen := candidates[rand.Intn(len(candidates))]
	return &chosen
}
