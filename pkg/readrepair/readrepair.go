// Package readrepair reconciles the rows a SELECT fan-out collected from
// several replicas, row by row and column by column, so that a replica
// lagging behind gets pushed the newer values it's missing (spec 4.9.1).
package readrepair

import "github.com/ringkeep/ringnode/pkg/model"

// Reconciled is the resolved row for one primary key, plus the set of
// replica IPs that need a repair write to catch up to it.
type Reconciled struct {
	Row           model.Row
	StaleReplicas []string
}

// Source is one replica's view of the rows a query touched.
type Source struct {
	NodeIP string
	Rows   []model.Row
}

// Reconcile merges every source's rows by primary key, keeping the
// newest column-level values (model.Row.WithColumn/MaxTimestamp already
// express last-writer-wins at that granularity) and reports which
// replicas hold a strictly older version of each row.
func Reconcile(sources []Source) []Reconciled {
	byKey := map[string]model.Row{}
	order := []string{}
	presentIn := map[string]map[string]model.Row{} // primaryKey -> nodeIP -> row

	for _, src := range sources {
		for _, row := range src.Rows {
			if _, ok := byKey[row.PrimaryKey]; !ok {
				order = append(order, row.PrimaryKey)
				presentIn[row.PrimaryKey] = map[string]model.Row{}
			}
			presentIn[row.PrimaryKey][src.NodeIP] = row
			byKey[row.PrimaryKey] = mergeRow(byKey[row.PrimaryKey], row)
		}
	}

	out := make([]Reconciled, 0, len(order))
	for _, pk := range order {
		winner := byKey[pk]
		var stale []string
		for _, src := range sources {
			replicaRow, ok := presentIn[pk][src.NodeIP]
			if !ok || rowIsStale(replicaRow, winner) {
				stale = append(stale, src.NodeIP)
			}
		}
		out = append(out, Reconciled{Row: winner, StaleReplicas: stale})
	}
	return out
}

// mergeRow combines two views of the same primary key, taking the
// newer deleted/tombstone state outright and the per-column max-timestamp
// value otherwise.
func mergeRow(a, b model.Row) model.Row {
	if a.PrimaryKey == "" {
		return b
	}
	if a.Deleted && b.Deleted {
		if b.Tombstone > a.Tombstone {
			return b
		}
		return a
	}
	if a.Deleted != b.Deleted {
		// A tombstone only wins if it's newer than the live row's latest
		// write; otherwise the live row was written after the delete.
		if a.Deleted && a.Tombstone >= b.MaxTimestamp() {
			return a
		}
		if b.Deleted && b.Tombstone >= a.MaxTimestamp() {
			return b
		}
		if a.Deleted {
			return b
		}
		return a
	}
	merged := a
	for _, col := range b.Columns {
		if col.TimestampMs >= merged.ColumnTimestamp(col.Name) {
			merged = merged.WithColumn(col.Name, col.Value, col.TimestampMs)
		}
	}
	return merged
}

// rowIsStale reports whether replica is missing any column the winner has
// at a newer timestamp, or disagrees about the row's deleted state.
func rowIsStale(replica, winner model.Row) bool {
	if winner.Deleted {
		return !replica.Deleted || replica.Tombstone < winner.Tombstone
	}
	if replica.Deleted {
		return true
	}
	for _, col := range winner.Columns {
		if replica.ColumnTimestamp(col.Name) < col.TimestampMs {
			return true
		}
	}
	return false
}
