package storage

import (
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/query"
)

// Store defines the interface for table row storage. This is implemented
// by *FileStore (json-file-per-table).
type Store interface {
	CreateTable(keyspace, table string) error
	DropTable(keyspace, table string) error

	Insert(keyspace, table string, row model.Row) error
	// Update and Delete each take an optional IF clause (nil when absent),
	// evaluated per WHERE-matching row; a row for which it evaluates false
	// is left untouched rather than mutated (spec 4.2/4.8).
	Update(keyspace, table string, where query.BooleanExpr, assignments []query.Assignment, ifClause *query.BooleanExpr, tsMillis int64) (int, error)
	Delete(keyspace, table string, where query.BooleanExpr, columns []string, ifClause *query.BooleanExpr, tsMillis int64) (int, error)
	Select(keyspace, table string, where query.BooleanExpr, columns []string, orderBy query.OrderByClause) ([]model.Row, error)

	// UpsertRow applies an already-reconciled row verbatim — used by
	// read-repair and hinted-handoff replay, which bypass WHERE matching.
	UpsertRow(keyspace, table string, row model.Row) error

	// RowCount returns how many rows (including tombstones) a table holds,
	// used by the metrics collector.
	RowCount(keyspace, table string) (int, error)

	Close() error
}
