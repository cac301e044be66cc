package query

import (
	"strings"

	"github.com/ringkeep/ringnode/pkg/model"
)

// Kind tags which statement variant a Query carries.
type Kind string

const (
	KindInsert         Kind = "Insert"
	KindUpdate         Kind = "Update"
	KindDelete         Kind = "Delete"
	KindSelect         Kind = "Select"
	KindUse            Kind = "Use"
	KindCreateTable    Kind = "CreateTable"
	KindCreateKeyspace Kind = "CreateKeyspace"
	KindDropTable      Kind = "DropTable"
	KindDropKeyspace   Kind = "DropKeyspace"
	KindAlterTable     Kind = "AlterTable"
)

// Query is a parsed statement: exactly one of the Insert/Update/.../
// AlterTable fields is set, selected by Kind. This tagged-variant shape
// is a value type that serializes directly over msgpack for delegation.
type Query struct {
	Kind Kind `msgpack:"kind"`

	Insert         *InsertQuery         `msgpack:"insert,omitempty"`
	Update         *UpdateQuery         `msgpack:"update,omitempty"`
	Delete         *DeleteQuery         `msgpack:"delete,omitempty"`
	Select         *SelectQuery         `msgpack:"select,omitempty"`
	Use            *UseQuery            `msgpack:"use,omitempty"`
	CreateTable    *CreateTableQuery    `msgpack:"create_table,omitempty"`
	CreateKeyspace *CreateKeyspaceQuery `msgpack:"create_keyspace,omitempty"`
	DropTable      *DropTableQuery      `msgpack:"drop_table,omitempty"`
	DropKeyspace   *DropKeyspaceQuery   `msgpack:"drop_keyspace,omitempty"`
	AlterTable     *AlterTableQuery     `msgpack:"alter_table,omitempty"`
}

// Keyspace returns the keyspace the statement names explicitly: the
// keyspace of USE and CREATE/DROP KEYSPACE, or the ks part of a qualified
// ks.table reference in any other statement; otherwise "".
func (q Query) Keyspace() string {
	switch q.Kind {
	case KindUse:
		return q.Use.Keyspace
	case KindCreateKeyspace:
		return q.CreateKeyspace.Name
	case KindDropKeyspace:
		return q.DropKeyspace.Name
	case KindInsert:
		return q.Insert.Keyspace
	case KindUpdate:
		return q.Update.Keyspace
	case KindDelete:
		return q.Delete.Keyspace
	case KindSelect:
		return q.Select.Keyspace
	case KindCreateTable:
		return q.CreateTable.Keyspace
	case KindDropTable:
		return q.DropTable.Keyspace
	case KindAlterTable:
		return q.AlterTable.Keyspace
	default:
		return ""
	}
}

// Table returns the bare table name the statement targets, or "" for
// statements that don't target a table.
func (q Query) Table() string {
	switch q.Kind {
	case KindInsert:
		return q.Insert.Table
	case KindUpdate:
		return q.Update.Table
	case KindDelete:
		return q.Delete.Table
	case KindSelect:
		return q.Select.Table
	case KindCreateTable:
		return q.CreateTable.Table
	case KindDropTable:
		return q.DropTable.Table
	case KindAlterTable:
		return q.AlterTable.Table
	default:
		return ""
	}
}

// IsWrite reports whether the statement mutates stored rows (as opposed to
// a SELECT or a schema/session statement), which drives whether the
// coordinator runs read-repair after fan-out.
func (q Query) IsWrite() bool {
	switch q.Kind {
	case KindInsert, KindUpdate, KindDelete:
		return true
	default:
		return false
	}
}

// PartitionKeyString concatenates this statement's partition-key column
// values, in the table's declared partition-key order, into the string
// the partitioner hashes to find the owning node (spec 4.3: composite
// keys are concatenated before Murmur3). ok is false when get_partition()
// is None (spec 4.5): schema/session statements, or a DML statement whose
// WHERE clause (for UPDATE/DELETE/SELECT) doesn't pin every partition-key
// column to an exact value — the coordinator then fans out to the whole
// cluster instead of one replica set.
func (q Query) PartitionKeyString(schema model.TableSchema) (string, bool) {
	switch q.Kind {
	case KindInsert:
		return partitionKeyFromColumns(schema, q.Insert.Columns, q.Insert.Values)
	case KindUpdate:
		return partitionKeyFromWhere(schema, q.Update.Where)
	case KindDelete:
		return partitionKeyFromWhere(schema, q.Delete.Where)
	case KindSelect:
		return partitionKeyFromWhere(schema, q.Select.Where)
	default:
		return "", false
	}
}

func partitionKeyFromColumns(schema model.TableSchema, cols []string, vals []model.Literal) (string, bool) {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	var sb strings.Builder
	for _, pk := range schema.PrimaryKey.PartitionKeys {
		i, ok := idx[pk]
		if !ok {
			return "", false
		}
		sb.WriteString(vals[i].Text)
		sb.WriteByte(0)
	}
	return sb.String(), true
}

func partitionKeyFromWhere(schema model.TableSchema, where BooleanExpr) (string, bool) {
	var sb strings.Builder
	for _, pk := range schema.PrimaryKey.PartitionKeys {
		v, ok := where.EqualityValue(pk)
		if !ok {
			return "", false
		}
		sb.WriteString(v.Text)
		sb.WriteByte(0)
	}
	return sb.String(), true
}

// InsertQuery is a parsed INSERT INTO table (cols) VALUES (vals).
type InsertQuery struct {
	Keyspace    string          `msgpack:"keyspace,omitempty"`
	Table       string          `msgpack:"table"`
	Columns     []string        `msgpack:"columns"`
	Values      []model.Literal `msgpack:"values"`
	TimestampMs int64           `msgpack:"timestamp_millis,omitempty"`
}

// UpdateQuery is a parsed UPDATE table SET col=val[,...] WHERE ... [IF ...].
type UpdateQuery struct {
	Keyspace    string          `msgpack:"keyspace,omitempty"`
	Table       string          `msgpack:"table"`
	Assignments []Assignment    `msgpack:"assignments"`
	Where       BooleanExpr     `msgpack:"where"`
	If          *BooleanExpr    `msgpack:"if,omitempty"`
	TimestampMs int64           `msgpack:"timestamp_millis,omitempty"`
}

// Assignment is one "column = literal" pair of a SET clause.
type Assignment struct {
	Column string        `msgpack:"column"`
	Value  model.Literal `msgpack:"value"`
}

// DeleteQuery is a parsed DELETE [cols] FROM table WHERE ... [IF ...].
type DeleteQuery struct {
	Keyspace    string       `msgpack:"keyspace,omitempty"`
	Table       string       `msgpack:"table"`
	Columns     []string     `msgpack:"columns,omitempty"`
	Where       BooleanExpr  `msgpack:"where"`
	If          *BooleanExpr `msgpack:"if,omitempty"`
	TimestampMs int64        `msgpack:"timestamp_millis,omitempty"`
}

// SelectQuery is a parsed SELECT cols FROM table WHERE ... ORDER BY ....
type SelectQuery struct {
	Keyspace string        `msgpack:"keyspace,omitempty"`
	Table    string        `msgpack:"table"`
	Columns  []string      `msgpack:"columns"` // ["*"] for select-all
	Where    BooleanExpr   `msgpack:"where"`
	OrderBy  OrderByClause `msgpack:"order_by,omitempty"`
}

// UseQuery is a parsed USE keyspace.
type UseQuery struct {
	Keyspace string `msgpack:"keyspace"`
}

// CreateTableQuery is a parsed CREATE TABLE.
type CreateTableQuery struct {
	Keyspace   string                 `msgpack:"keyspace,omitempty"`
	Table      string                 `msgpack:"table"`
	Columns    []model.ColumnSchema   `msgpack:"columns"`
	PrimaryKey model.PrimaryKeySchema `msgpack:"primary_key"`
}

// CreateKeyspaceQuery is a parsed CREATE KEYSPACE ... WITH REPLICATION.
type CreateKeyspaceQuery struct {
	Name                string `msgpack:"name"`
	ReplicationStrategy string `msgpack:"replication_strategy"`
	ReplicationFactor   int    `msgpack:"replication_factor"`
}

// DropTableQuery is a parsed DROP TABLE [IF EXISTS].
type DropTableQuery struct {
	Keyspace string `msgpack:"keyspace,omitempty"`
	Table    string `msgpack:"table"`
	IfExists bool   `msgpack:"if_exists"`
}

// DropKeyspaceQuery is a parsed DROP KEYSPACE [IF EXISTS].
type DropKeyspaceQuery struct {
	Name     string `msgpack:"name"`
	IfExists bool   `msgpack:"if_exists"`
}

// AlterTableAction is one clause of an ALTER TABLE statement.
type AlterTableAction string

const (
	AlterAdd     AlterTableAction = "ADD"
	AlterRename  AlterTableAction = "RENAME"
	AlterReplace AlterTableAction = "REPLACE"
)

// AlterTableQuery is a parsed ALTER TABLE ADD/RENAME/REPLACE.
type AlterTableQuery struct {
	Keyspace   string           `msgpack:"keyspace,omitempty"`
	Table      string           `msgpack:"table"`
	Action     AlterTableAction `msgpack:"action"`
	Column     model.ColumnSchema `msgpack:"column,omitempty"`
	FromColumn string           `msgpack:"from_column,omitempty"`
	ToColumn   string           `msgpack:"to_column,omitempty"`
}
