/*
Package storage provides file-backed row persistence for table data.

Each table is one JSON file holding an array of rows, guarded by an
advisory file lock so concurrent writers (the client-facing query executor
and the node-to-node delegation receiver) never interleave a
read-modify-write and lose an update.

# Architecture

	┌────────────────────── ROW STORE ──────────────────────┐
	│                                                         │
	│  <dataDir>/<keyspace>/<table>.json                     │
	│    [ {primary_key, columns[], deleted, tombstone}, ...] │
	│                                                         │
	│  Write path: read all rows -> mutate in memory ->       │
	│  marshal -> write to "<file>.tmp" -> rename over file   │
	│  (atomic on POSIX, crash never leaves a torn file)      │
	│                                                         │
	│  Locking: one *flock.Flock per table file               │
	│    - Insert/Update/Delete take the exclusive lock       │
	│    - Select takes the shared lock                       │
	└─────────────────────────────────────────────────────────┘

# Primary key enforcement

INSERT fails with AlreadyExists if a live (non-tombstoned) row with the
same primary key is already present — an earlier stubbed version of
this check always returned false; this store performs it for real.

# Tombstones

DELETE never removes a row from the file. It rewrites the row with
Deleted=true and a Tombstone timestamp, which both SELECT (filters it out)
and read-repair (a tombstone with a newer timestamp than a replica's live
row wins) rely on to agree on deletion across replicas with no shared
clock beyond per-write timestamps.

# See Also

  - pkg/coordinator for how writes fan out across replicas before they
    reach this package
  - pkg/query for the WHERE/IF expression this package evaluates per row
*/
package storage
