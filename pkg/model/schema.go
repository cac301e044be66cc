package model

// ColumnKind classifies a table column's role in the primary key.
type ColumnKind string

const (
	PartitionKey ColumnKind = "partition_key"
	Clustering   ColumnKind = "clustering"
	Regular      ColumnKind = "regular"
)

// ColumnSchema describes one declared column of a table.
type ColumnSchema struct {
	Name string     `json:"name"`
	Type DataType   `json:"data_type"`
	Kind ColumnKind `json:"kind"`
}

// PrimaryKeySchema names the partition and clustering columns, in the
// order declared by CREATE TABLE.
type PrimaryKeySchema struct {
	PartitionKeys []string `json:"partition_keys"`
	Clustering    []string `json:"clustering_columns"`
}

// TableSchema is the persisted shape of one table inside a keyspace.
type TableSchema struct {
	Name       string           `json:"name"`
	Columns    []ColumnSchema   `json:"columns"`
	PrimaryKey PrimaryKeySchema `json:"primary_key"`
}

// ColumnNames returns every declared column name, in schema order.
func (t TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether name is a declared column of this table.
func (t TableSchema) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ColumnByName looks up a column's schema, or ok=false if undeclared.
func (t TableSchema) ColumnByName(name string) (ColumnSchema, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// IsPartitionKey reports whether name is one of the table's partition-key
// columns.
func (t TableSchema) IsPartitionKey(name string) bool {
	for _, c := range t.PrimaryKey.PartitionKeys {
		if c == name {
			return true
		}
	}
	return false
}

// IsPrimaryKeyColumn reports whether name is part of the primary key
// (partition or clustering).
func (t TableSchema) IsPrimaryKeyColumn(name string) bool {
	if t.IsPartitionKey(name) {
		return true
	}
	for _, c := range t.PrimaryKey.Clustering {
		if c == name {
			return true
		}
	}
	return false
}

// IsClusteringColumn reports whether name is a declared clustering column.
func (t TableSchema) IsClusteringColumn(name string) bool {
	for _, c := range t.PrimaryKey.Clustering {
		if c == name {
			return true
		}
	}
	return false
}

// KeyspaceMeta is the shared, persisted record of one keyspace: its
// replication settings and the tables it owns.
type KeyspaceMeta struct {
	Name                string                 `json:"name"`
	ReplicationStrategy string                 `json:"replication_strategy"`
	ReplicationFactor    int                    `json:"replication_factor"`
	Tables               map[string]TableSchema `json:"tables"`
}
