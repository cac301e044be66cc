// Package executor applies a parsed query to a node's local keyspace
// metadata and row storage. It is the thing pkg/coordinator's Delegate
// calls on whichever node owns (or is asked to act on behalf of) the
// partition.
package executor

import (
	"strings"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/keyspace"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/query"
	"github.com/ringkeep/ringnode/pkg/storage"
)

// Executor applies queries against one node's keyspace metadata and row
// storage.
type Executor struct {
	Keyspaces *keyspace.Store
	Rows      storage.Store
}

// New creates an Executor over the given metadata and row stores.
func New(keyspaces *keyspace.Store, rows storage.Store) *Executor {
	return &Executor{Keyspaces: keyspaces, Rows: rows}
}

// Execute runs q against ks (the session's current keyspace, already
// resolved by the caller) and returns any rows a SELECT produced.
func (e *Executor) Execute(ks string, q query.Query, nowMs int64) ([]model.Row, error) {
	switch q.Kind {
	case query.KindCreateKeyspace:
		return nil, e.createKeyspace(q.CreateKeyspace)
	case query.KindDropKeyspace:
		return nil, e.Keyspaces.Drop(q.DropKeyspace.Name, q.DropKeyspace.IfExists)
	case query.KindCreateTable:
		return nil, e.createTable(ks, q.CreateTable)
	case query.KindDropTable:
		return nil, e.dropTable(ks, q.DropTable)
	case query.KindAlterTable:
		return nil, e.alterTable(ks, q.AlterTable)
	case query.KindInsert:
		return nil, e.insert(ks, q.Insert, nowMs)
	case query.KindUpdate:
		table, err := e.Keyspaces.Table(ks, q.Update.Table)
		if err != nil {
			return nil, err
		}
		for _, a := range q.Update.Assignments {
			if table.IsPrimaryKeyColumn(a.Column) {
				return nil, errs.Invalid("cannot update primary-key column %q", a.Column)
			}
		}
		if err := validateColumnsKnown(table, q.Update.Where.Columns()); err != nil {
			return nil, err
		}
		if q.Update.If != nil {
			if err := validateColumnsKnown(table, q.Update.If.Columns()); err != nil {
				return nil, err
			}
		}
		_, err = e.Rows.Update(ks, q.Update.Table, q.Update.Where, q.Update.Assignments, q.Update.If, tsOrNow(q.Update.TimestampMs, nowMs))
		return nil, err
	case query.KindDelete:
		table, err := e.Keyspaces.Table(ks, q.Delete.Table)
		if err != nil {
			return nil, err
		}
		if err := validateColumnsKnown(table, q.Delete.Where.Columns()); err != nil {
			return nil, err
		}
		if q.Delete.If != nil {
			if err := validateColumnsKnown(table, q.Delete.If.Columns()); err != nil {
				return nil, err
			}
		}
		_, err = e.Rows.Delete(ks, q.Delete.Table, q.Delete.Where, q.Delete.Columns, q.Delete.If, tsOrNow(q.Delete.TimestampMs, nowMs))
		return nil, err
	case query.KindSelect:
		if err := e.validateSelect(ks, q.Select); err != nil {
			return nil, err
		}
		return e.Rows.Select(ks, q.Select.Table, q.Select.Where, q.Select.Columns, q.Select.OrderBy)
	case query.KindUse:
		if !e.Keyspaces.Exists(q.Use.Keyspace) {
			return nil, errs.Invalid("keyspace %q does not exist", q.Use.Keyspace)
		}
		return nil, nil
	default:
		return nil, errs.Server(nil, "unexecutable query kind %q", q.Kind)
	}
}

func tsOrNow(ts, nowMs int64) int64 {
	if ts != 0 {
		return ts
	}
	return nowMs
}

func (e *Executor) createKeyspace(q *query.CreateKeyspaceQuery) error {
	return e.Keyspaces.Create(model.KeyspaceMeta{
		Name:                q.Name,
		ReplicationStrategy: q.ReplicationStrategy,
		ReplicationFactor:   q.ReplicationFactor,
		Tables:              map[string]model.TableSchema{},
	})
}

func (e *Executor) createTable(ks string, q *query.CreateTableQuery) error {
	if err := e.Keyspaces.PutTable(ks, model.TableSchema{
		Name:       q.Table,
		Columns:    q.Columns,
		PrimaryKey: q.PrimaryKey,
	}); err != nil {
		return err
	}
	return e.Rows.CreateTable(ks, q.Table)
}

func (e *Executor) dropTable(ks string, q *query.DropTableQuery) error {
	if err := e.Keyspaces.DropTable(ks, q.Table, q.IfExists); err != nil {
		return err
	}
	return e.Rows.DropTable(ks, q.Table)
}

func (e *Executor) alterTable(ks string, q *query.AlterTableQuery) error {
	table, err := e.Keyspaces.Table(ks, q.Table)
	if err != nil {
		return err
	}
	switch q.Action {
	case query.AlterAdd:
		table.Columns = append(table.Columns, q.Column)
	case query.AlterRename:
		for i, c := range table.Columns {
			if c.Name == q.FromColumn {
				table.Columns[i].Name = q.ToColumn
			}
		}
	case query.AlterReplace:
		for i, c := range table.Columns {
			if c.Name == q.Column.Name {
				table.Columns[i] = q.Column
			}
		}
	default:
		return errs.Server(nil, "unknown ALTER TABLE action %q", q.Action)
	}
	return e.Keyspaces.PutTable(ks, table)
}

// validateSelect checks the projected columns are a subset of the table
// schema, that every WHERE comparison names a declared column (spec 4.2:
// "comparison of missing columns fails with Invalid"), and that every
// ORDER BY column is a declared clustering column.
func (e *Executor) validateSelect(ks string, q *query.SelectQuery) error {
	table, err := e.Keyspaces.Table(ks, q.Table)
	if err != nil {
		return err
	}
	if !(len(q.Columns) == 1 && q.Columns[0] == "*") {
		for _, c := range q.Columns {
			if !table.HasColumn(c) {
				return errs.Invalid("column %q not found in table %q", c, q.Table)
			}
		}
	}
	if err := validateColumnsKnown(table, q.Where.Columns()); err != nil {
		return err
	}
	for _, term := range q.OrderBy {
		if !table.IsClusteringColumn(term.Column) {
			return errs.Invalid("ORDER BY column %q is not a clustering column of table %q", term.Column, q.Table)
		}
	}
	return nil
}

// validateColumnsKnown rejects a WHERE/IF clause that references a column
// the table never declared (spec 4.2's "comparison of missing columns
// fails with Invalid"); a row simply lacking a value for a declared column
// is a storage-level concern handled by the evaluator itself.
func validateColumnsKnown(table model.TableSchema, columns []string) error {
	for _, c := range columns {
		if !table.HasColumn(c) {
			return errs.Invalid("column %q not found in table %q", c, table.Name)
		}
	}
	return nil
}

func (e *Executor) insert(ks string, q *query.InsertQuery, nowMs int64) error {
	table, err := e.Keyspaces.Table(ks, q.Table)
	if err != nil {
		return err
	}
	for _, pk := range table.PrimaryKey.PartitionKeys {
		if !containsColumn(q.Columns, pk) {
			return errs.Syntax("INSERT is missing partition-key column %q", pk)
		}
	}

	ts := tsOrNow(q.TimestampMs, nowMs)

	row := model.Row{}
	keyParts := make(map[string]string, len(table.PrimaryKey.PartitionKeys)+len(table.PrimaryKey.Clustering))
	for i, col := range q.Columns {
		value := q.Values[i]
		row.Columns = append(row.Columns, model.Column{Name: col, Value: value, TimestampMs: ts})
		if table.IsPrimaryKeyColumn(col) {
			keyParts[col] = value.Text
		}
	}
	row.PrimaryKey = buildPrimaryKey(table, keyParts)
	return e.Rows.Insert(ks, q.Table, row)
}

func containsColumn(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}

func buildPrimaryKey(table model.TableSchema, parts map[string]string) string {
	ordered := make([]string, 0, len(table.PrimaryKey.PartitionKeys)+len(table.PrimaryKey.Clustering))
	for _, c := range table.PrimaryKey.PartitionKeys {
		ordered = append(ordered, parts[c])
	}
	for _, c := range table.PrimaryKey.Clustering {
		ordered = append(ordered, parts[c])
	}
	return strings.Join(ordered, ":")
}
