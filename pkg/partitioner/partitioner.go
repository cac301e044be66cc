// Package partitioner maps partition keys onto the cluster ring: which
// node owns a key, and which nodes make up its replica set.
package partitioner

import (
	"sort"

	"github.com/spaolacci/murmur3"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
)

// HashKey hashes a partition key's canonical text form with the 32-bit
// murmur3 seed-0 algorithm, producing a full token value rather than a
// raw modulo index.
func HashKey(key string) uint32 {
	return murmur3.Sum32WithSeed([]byte(key), 0)
}

// Ring is an immutable, position-sorted view of the cluster used to route
// a token to its owning node and replica set.
type Ring struct {
	nodes []model.Node // sorted by Position ascending
}

// NewRing builds a Ring from the current cluster membership.
func NewRing(nodes []model.Node) Ring {
	sorted := append([]model.Node(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
	return Ring{nodes: sorted}
}

// Owner returns the node whose TokenRange contains token.
func (r Ring) Owner(token uint32) (model.Node, error) {
	for _, n := range r.nodes {
		if n.Range.Contains(token) {
			return n, nil
		}
	}
	return model.Node{}, errs.Server(nil, "no node owns token %d: empty or misconfigured ring", token)
}

// ReplicaSet returns the owner of token followed by the next
// replicationFactor-1 nodes walking clockwise around the ring.
// replicationFactor is capped at the ring size, so no node appears twice.
// Called with a keyspace's replication factor to build the coordinator's
// fan-out target list.
func (r Ring) ReplicaSet(token uint32, replicationFactor int) ([]model.Node, error) {
	if len(r.nodes) == 0 {
		return nil, errs.Server(nil, "empty ring")
	}
	if replicationFactor > len(r.nodes) {
		replicationFactor = len(r.nodes)
	}
	ownerIdx := -1
	for i, n := range r.nodes {
		if n.Range.Contains(token) {
			ownerIdx = i
			break
		}
	}
	if ownerIdx == -1 {
		return nil, errs.Server(nil, "no node owns token %d", token)
	}
	out := make([]model.Node, 0, replicationFactor)
	for i := 0; i < replicationFactor; i++ {
		out = append(out, r.nodes[(ownerIdx+i)%len(r.nodes)])
	}
	return out, nil
}

// Nodes returns the ring's position-sorted member list.
func (r Ring) Nodes() []model.Node {
	return r.nodes
}

// RecomputeRanges assigns every live node a position in 1..N and a 1/N
// fraction of the 32-bit token space, in IP order (spec 4.3: "range
// recomputation on membership change assigns each live node a fraction
// 1/N of the token space in position order"). A node in ShuttingDown is
// leaving the ring and is excluded from the assignment; every other
// state still owns a range (Booting/Recovering nodes need one so the
// coordinator can resolve them as a target and route to hints, per the
// spec's Booting/Recovering write-via-hints rule). Sorting by IP rather
// than arrival order makes the assignment a pure function of cluster
// membership, so two nodes that independently recompute from the same
// set of IPs (a booting node and the seed it just joined) land on the
// same position/range pairing without needing to coordinate.
//
// Ranges tile [0, 2^32) with no overlap: each range is
// [i*share, (i+1)*share) except the last, whose end wraps to 0 so it
// reaches the top of the space regardless of rounding in the division.
func RecomputeRanges(nodes []model.Node) []model.Node {
	out := make([]model.Node, 0, len(nodes))
	leaving := make([]model.Node, 0)
	for _, n := range nodes {
		if n.State == model.ShuttingDown {
			leaving = append(leaving, n)
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })

	n := len(out)
	if n > 0 {
		const space = uint64(1) << 32
		share := space / uint64(n)
		for i := range out {
			out[i].Position = i + 1
			start := uint32(uint64(i) * share)
			end := uint32(uint64(i+1) * share)
			if i == n-1 {
				end = 0 // wraps: [start, 2^32)
			}
			out[i].Range = model.TokenRange{Start: start, End: end}
		}
	}

	for _, n := range leaving {
		n.Position = 0
		n.Range = model.TokenRange{}
		out = append(out, n)
	}
	return out
}
