package model

// NodeState is the membership lifecycle state of a cluster member (spec
// section 3). Only Active nodes serve reads/writes directly; Booting and
// Recovering accept writes solely via hint replay.
type NodeState string

const (
	Booting      NodeState = "Booting"
	Active       NodeState = "Active"
	StandBy      NodeState = "StandBy"
	ShuttingDown NodeState = "ShuttingDown"
	Inactive     NodeState = "Inactive"
	Recovering   NodeState = "Recovering"
)

// TokenRange is a half-open window [Start, End) over the 32-bit token
// space owned by one node. Ranges wrap modulo 2^32 when End < Start.
type TokenRange struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// Contains reports whether token falls inside the range, accounting for
// wraparound at the top of the ring. Start == End is the single-node
// ring's case: one node's range covers the entire token space.
func (r TokenRange) Contains(token uint32) bool {
	if r.Start == r.End {
		return true
	}
	if r.Start < r.End {
		return token >= r.Start && token < r.End
	}
	return token >= r.Start || token < r.End
}

// Node is one member of the cluster ring (spec section 3: own_node /
// other_nodes share this shape).
type Node struct {
	IP         string     `json:"ip"`
	Position   int        `json:"position"`
	Range      TokenRange `json:"range"`
	State      NodeState  `json:"state"`
	IsSeed     bool       `json:"is_seed"`
	TimestampMs int64     `json:"timestamp"`
}

// ServesReadsWrites reports whether the node's current state allows it to
// serve client reads/writes directly (as opposed to hint replay only).
func (n Node) ServesReadsWrites() bool {
	return n.State == Active
}
