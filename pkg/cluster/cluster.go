// Package cluster persists and merges the ring membership view (spec
// section 3): one JSON file holding this node's own record plus its view
// of every other node, guarded by an advisory file lock held for the
// duration of each single Read or Write call. A Read followed by a Write
// is two separately locked steps, not one atomic read-modify-write.
package cluster

import (
	"encoding/json"
	"os"

	"github.com/gofrs/flock"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/partitioner"
)

// View is the persisted shape of the cluster membership file, mirroring
// an own_node/other_nodes split.
type View struct {
	OwnNode    model.Node   `json:"own_node"`
	OtherNodes []model.Node `json:"other_nodes"`
}

// Store reads and writes the membership file at Path under an advisory
// lock: a shared lock for each Read, an exclusive one for each Write. The
// lock is released when the call returns, so concurrent read-then-write
// sequences can interleave.
type Store struct {
	Path string
	lock *flock.Flock
}

func NewStore(path string) *Store {
	return &Store{Path: path, lock: flock.New(path + ".lock")}
}

// Read loads the current membership view.
func (s *Store) Read() (View, error) {
	if err := s.lock.RLock(); err != nil {
		return View{}, errs.Server(err, "locking cluster metadata for read")
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return View{}, errs.Server(err, "reading cluster metadata")
	}
	var v View
	if err := json.Unmarshal(data, &v); err != nil {
		return View{}, errs.Server(err, "decoding cluster metadata")
	}
	return v, nil
}

// Write persists a membership view, replacing the file atomically via a
// write-then-rename so a crash never leaves a truncated file behind.
func (s *Store) Write(v View) error {
	if err := s.lock.Lock(); err != nil {
		return errs.Server(err, "locking cluster metadata for write")
	}
	defer s.lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.Server(err, "encoding cluster metadata")
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Server(err, "writing cluster metadata")
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return errs.Server(err, "renaming cluster metadata into place")
	}
	return nil
}

// Init writes an initial view if the file does not already exist.
func (s *Store) Init(v View) error {
	if _, err := os.Stat(s.Path); err == nil {
		return nil
	}
	return s.Write(v)
}

// AllNodes returns own + other nodes as one slice, convenient for ring
// construction.
func (v View) AllNodes() []model.Node {
	out := make([]model.Node, 0, len(v.OtherNodes)+1)
	out = append(out, v.OwnNode)
	out = append(out, v.OtherNodes...)
	return out
}

// Count returns the total membership size (own + other).
func (v View) Count() int {
	return len(v.OtherNodes) + 1
}

// Merge applies the gossip merge rule: the own node is never replaced by
// an incoming record; every received node that isn't this node survives;
// every locally-known node that the peer didn't send is kept too, so a
// partial gossip exchange never forgets a node outright.
func (v View) Merge(received []model.Node) View {
	merged := make([]model.Node, 0, len(received)+len(v.OtherNodes))
	seen := map[string]bool{}
	for _, n := range received {
		if n.IP == v.OwnNode.IP {
			continue
		}
		merged = append(merged, n)
		seen[n.IP] = true
	}
	for _, n := range v.OtherNodes {
		if !seen[n.IP] {
			merged = append(merged, n)
		}
	}
	return View{OwnNode: v.OwnNode, OtherNodes: merged}
}

// WithRecomputedRanges reassigns Position and Range across every node in
// the view (spec section 4.3's range recomputation), to be called after
// any membership change: first boot, a seed handshake, or a gossip
// merge. It must run after Merge/append, never before, so the
// recomputation sees the full, post-change node set.
func (v View) WithRecomputedRanges() View {
	recomputed := partitioner.RecomputeRanges(v.AllNodes())
	out := View{}
	others := make([]model.Node, 0, len(recomputed))
	for _, n := range recomputed {
		if n.IP == v.OwnNode.IP {
			out.OwnNode = n
		} else {
			others = append(others, n)
		}
	}
	out.OtherNodes = others
	return out
}

// SetState returns a copy of v with the node at the given ip transitioned
// to state (used when a gossip peer is unreachable, or returns online).
func (v View) SetState(ip string, state model.NodeState) View {
	out := v
	out.OtherNodes = append([]model.Node(nil), v.OtherNodes...)
	for i, n := range out.OtherNodes {
		if n.IP == ip {
			n.State = state
			out.OtherNodes[i] = n
		}
	}
	if out.OwnNode.IP == ip {
		out.OwnNode.State = state
	}
	return out
}
