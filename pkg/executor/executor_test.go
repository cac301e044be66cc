package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringkeep/ringnode/pkg/keyspace"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/parser"
	"github.com/ringkeep/ringnode/pkg/storage"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	ks := keyspace.NewStore(t.TempDir())
	require.NoError(t, ks.Create(model.KeyspaceMeta{Name: "shop", ReplicationFactor: 1}))
	rows, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	e := New(ks, rows)

	create, err := parser.Parse("CREATE TABLE users ( id int , name text , PRIMARY KEY ( id ) )")
	require.NoError(t, err)
	_, err = e.Execute("shop", create, 1)
	require.NoError(t, err)
	return e
}

func TestInsertMissingPartitionKeyColumnFails(t *testing.T) {
	e := newTestExecutor(t)
	q, err := parser.Parse("INSERT INTO users (name) VALUES ('ana')")
	require.NoError(t, err)
	_, err = e.Execute("shop", q, 10)
	require.Error(t, err)
}

func TestUpdatePrimaryKeyColumnFails(t *testing.T) {
	e := newTestExecutor(t)
	insert, err := parser.Parse("INSERT INTO users (id, name) VALUES (1, 'ana')")
	require.NoError(t, err)
	_, err = e.Execute("shop", insert, 10)
	require.NoError(t, err)

	update, err := parser.Parse("UPDATE users SET id = 2 WHERE id = 1")
	require.NoError(t, err)
	_, err = e.Execute("shop", update, 20)
	require.Error(t, err)
}

func TestUpdateIfConditionFalseIsNoOp(t *testing.T) {
	e := newTestExecutor(t)
	insert, err := parser.Parse("INSERT INTO users (id, name) VALUES (1, 'ana')")
	require.NoError(t, err)
	_, err = e.Execute("shop", insert, 10)
	require.NoError(t, err)

	update, err := parser.Parse("UPDATE users SET name = 'bea' WHERE id = 1 IF name = 'nope'")
	require.NoError(t, err)
	_, err = e.Execute("shop", update, 20)
	require.NoError(t, err)

	sel, err := parser.Parse("SELECT * FROM users WHERE id = 1")
	require.NoError(t, err)
	rows, err := e.Execute("shop", sel, 30)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, ok := rows[0].ColumnValue("name")
	require.True(t, ok)
	require.Equal(t, "ana", v.Text)
}

func TestUpdateIfExistsAppliesToLiveRow(t *testing.T) {
	e := newTestExecutor(t)
	insert, err := parser.Parse("INSERT INTO users (id, name) VALUES (1, 'ana')")
	require.NoError(t, err)
	_, err = e.Execute("shop", insert, 10)
	require.NoError(t, err)

	update, err := parser.Parse("UPDATE users SET name = 'bea' WHERE id = 1 IF EXISTS")
	require.NoError(t, err)
	_, err = e.Execute("shop", update, 20)
	require.NoError(t, err)

	sel, err := parser.Parse("SELECT * FROM users WHERE id = 1")
	require.NoError(t, err)
	rows, err := e.Execute("shop", sel, 30)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, ok := rows[0].ColumnValue("name")
	require.True(t, ok)
	require.Equal(t, "bea", v.Text)
}

func TestSelectUnknownColumnFails(t *testing.T) {
	e := newTestExecutor(t)
	sel, err := parser.Parse("SELECT ghost FROM users WHERE id = 1")
	require.NoError(t, err)
	_, err = e.Execute("shop", sel, 10)
	require.Error(t, err)
}

func TestCreateTableInMissingKeyspaceFails(t *testing.T) {
	ks := keyspace.NewStore(t.TempDir())
	rows, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	e := New(ks, rows)

	create, err := parser.Parse("CREATE TABLE users ( id int , PRIMARY KEY ( id ) )")
	require.NoError(t, err)
	_, err = e.Execute("nosuchks", create, 1)
	require.Error(t, err)
}
