package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/query"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.CreateTable("ks", "users"))
	return s
}

func textRow(pk, value string, ts int64) model.Row {
	return model.Row{
		PrimaryKey: pk,
		Columns: []model.Column{
			{Name: "id", Value: model.NewLiteral(pk, model.Text), TimestampMs: ts},
			{Name: "name", Value: model.NewLiteral(value, model.Text), TimestampMs: ts},
		},
	}
}

func TestCreateTableTwiceFails(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateTable("ks", "users")
	require.Error(t, err)
}

func TestInsertAndSelect(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))

	rows, err := s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "1", rows[0].PrimaryKey)
}

func TestInsertDuplicatePrimaryKeyFails(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))

	err := s.Insert("ks", "users", textRow("1", "bob", 2))
	require.Error(t, err)
}

func TestInsertReplacesTombstone(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))
	_, err := s.Delete("ks", "users", query.BooleanExpr{}, nil, nil, 2)
	require.NoError(t, err)

	require.NoError(t, s.Insert("ks", "users", textRow("1", "bob", 3)))

	rows, err := s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, ok := rows[0].ColumnValue("name")
	require.True(t, ok)
	require.Equal(t, "bob", v.Text)
}

func TestInsertOlderThanTombstoneFails(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))
	_, err := s.Delete("ks", "users", query.BooleanExpr{}, nil, nil, 50)
	require.NoError(t, err)

	err = s.Insert("ks", "users", textRow("1", "late", 40))
	require.Error(t, err)

	rows, err := s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestDeleteWholeRowTombstones(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))

	n, err := s.Delete("ks", "users", query.BooleanExpr{}, nil, nil, 2)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rows, err := s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.NoError(t, err)
	require.Empty(t, rows)

	count, err := s.RowCount("ks", "users")
	require.NoError(t, err)
	require.Equal(t, 1, count) // tombstone still occupies a slot
}

func TestDeleteColumnsOnly(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))

	n, err := s.Delete("ks", "users", query.BooleanExpr{}, []string{"name"}, nil, 2)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rows, err := s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, ok := rows[0].ColumnValue("name")
	require.False(t, ok)
	_, ok = rows[0].ColumnValue("id")
	require.True(t, ok)
}

func TestUpdateAssignments(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))

	n, err := s.Update("ks", "users", query.BooleanExpr{}, []query.Assignment{
		{Column: "name", Value: model.NewLiteral("ana2", model.Text)},
	}, nil, 5)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rows, err := s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.NoError(t, err)
	v, ok := rows[0].ColumnValue("name")
	require.True(t, ok)
	require.Equal(t, "ana2", v.Text)
}

func TestUpdateWithFalseIfConditionIsNoOp(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))

	ifClause := &query.BooleanExpr{Comparison: &query.Comparison{
		Column: "name", Op: "=", Value: model.NewLiteral("bob", model.Text),
	}}
	n, err := s.Update("ks", "users", query.BooleanExpr{}, []query.Assignment{
		{Column: "name", Value: model.NewLiteral("ana2", model.Text)},
	}, ifClause, 5)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	rows, err := s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.NoError(t, err)
	v, _ := rows[0].ColumnValue("name")
	require.Equal(t, "ana", v.Text)
}

func TestUpdateWithTrueIfConditionApplies(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))

	ifClause := &query.BooleanExpr{Comparison: &query.Comparison{
		Column: "name", Op: "=", Value: model.NewLiteral("ana", model.Text),
	}}
	n, err := s.Update("ks", "users", query.BooleanExpr{}, []query.Assignment{
		{Column: "name", Value: model.NewLiteral("ana2", model.Text)},
	}, ifClause, 5)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestUpsertRowLastWriterWins(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))

	// Stale upsert (older timestamp) must not regress the stored row.
	require.NoError(t, s.UpsertRow("ks", "users", textRow("1", "stale", 0)))
	rows, err := s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.NoError(t, err)
	v, _ := rows[0].ColumnValue("name")
	require.Equal(t, "ana", v.Text)

	// Fresh upsert (newer timestamp) must win.
	require.NoError(t, s.UpsertRow("ks", "users", textRow("1", "fresh", 99)))
	rows, err = s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.NoError(t, err)
	v, _ = rows[0].ColumnValue("name")
	require.Equal(t, "fresh", v.Text)
}

func TestDropTableRemovesFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.DropTable("ks", "users"))

	_, err := s.Select("ks", "users", query.BooleanExpr{}, nil, nil)
	require.Error(t, err)
}

func TestSelectProjectsColumns(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("ks", "users", textRow("1", "ana", 1)))

	rows, err := s.Select("ks", "users", query.BooleanExpr{}, []string{"name"}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	_, ok := rows[0].ColumnValue("id")
	require.False(t, ok)
	v, ok := rows[0].ColumnValue("name")
	require.True(t, ok)
	require.Equal(t, "ana", v.Text)
}

func TestTablePathLayout(t *testing.T) {
	s := newTestStore(t)
	require.Equal(t, filepath.Join(s.dataDir, "ks", "users.json"), s.tablePath("ks", "users"))
}
