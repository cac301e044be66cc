package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/query"
)

// FileStore implements Store as one JSON file per table under
// <dataDir>/<keyspace>/<table>.json, each guarded by its own advisory
// file lock.
type FileStore struct {
	dataDir string
}

// NewFileStore creates a file-backed row store rooted at dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errs.Server(err, "creating storage data directory")
	}
	return &FileStore{dataDir: dataDir}, nil
}

func (s *FileStore) tablePath(keyspace, table string) string {
	return filepath.Join(s.dataDir, keyspace, table+".json")
}

func (s *FileStore) CreateTable(keyspace, table string) error {
	dir := filepath.Join(s.dataDir, keyspace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Server(err, "creating keyspace directory")
	}
	path := s.tablePath(keyspace, table)
	if _, err := os.Stat(path); err == nil {
		return errs.AlreadyExists("table %q already exists", table)
	}
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		return errs.Server(err, "creating table file")
	}
	return nil
}

func (s *FileStore) DropTable(keyspace, table string) error {
	path := s.tablePath(keyspace, table)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errs.Invalid("table %q does not exist", table)
		}
		return errs.Server(err, "removing table file")
	}
	os.Remove(path + ".lock")
	return nil
}

func (s *FileStore) fileLock(keyspace, table string) *flock.Flock {
	return flock.New(s.tablePath(keyspace, table) + ".lock")
}

func (s *FileStore) readRows(keyspace, table string) ([]model.Row, error) {
	data, err := os.ReadFile(s.tablePath(keyspace, table))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Invalid("table %q does not exist", table)
		}
		return nil, errs.Server(err, "reading table file")
	}
	if len(data) == 0 {
		return nil, nil
	}
	var rows []model.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errs.Server(err, "decoding table file")
	}
	return rows, nil
}

func (s *FileStore) writeRows(keyspace, table string, rows []model.Row) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return errs.Server(err, "encoding table file")
	}
	path := s.tablePath(keyspace, table)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Server(err, "writing table file")
	}
	return os.Rename(tmp, path)
}

// rowExists reports whether a live (non-tombstoned) row with this primary
// key is already present.
func rowExists(rows []model.Row, primaryKey string) bool {
	for _, r := range rows {
		if r.PrimaryKey == primaryKey && !r.Deleted {
			return true
		}
	}
	return false
}

func (s *FileStore) Insert(keyspace, table string, row model.Row) error {
	lk := s.fileLock(keyspace, table)
	if err := lk.Lock(); err != nil {
		return errs.Server(err, "locking table file")
	}
	defer lk.Unlock()

	rows, err := s.readRows(keyspace, table)
	if err != nil {
		return err
	}
	if rowExists(rows, row.PrimaryKey) {
		return errs.AlreadyExists("primary key %q already exists in table %q", row.PrimaryKey, table)
	}
	// A tombstone for the same key only yields to a write that's newer
	// than the delete it represents; an older write is a late arrival the
	// delete must keep suppressing (spec 4.8, scenario 5).
	replaced := false
	for i, r := range rows {
		if r.PrimaryKey == row.PrimaryKey {
			if r.Deleted && row.MaxTimestamp() <= r.Tombstone {
				return errs.AlreadyExists("primary key %q was deleted at a later timestamp in table %q", row.PrimaryKey, table)
			}
			rows[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, row)
	}
	return s.writeRows(keyspace, table, rows)
}

func (s *FileStore) UpsertRow(keyspace, table string, row model.Row) error {
	lk := s.fileLock(keyspace, table)
	if err := lk.Lock(); err != nil {
		return errs.Server(err, "locking table file")
	}
	defer lk.Unlock()

	rows, err := s.readRows(keyspace, table)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if r.PrimaryKey == row.PrimaryKey {
			// Last-writer-wins against whatever is already stored, so a
			// replayed hint or read-repair write can never regress a row
			// that was updated more recently by another path.
			if row.MaxTimestamp() >= r.MaxTimestamp() {
				rows[i] = row
			}
			return s.writeRows(keyspace, table, rows)
		}
	}
	rows = append(rows, row)
	return s.writeRows(keyspace, table, rows)
}

func (s *FileStore) Update(keyspace, table string, where query.BooleanExpr, assignments []query.Assignment, ifClause *query.BooleanExpr, tsMillis int64) (int, error) {
	lk := s.fileLock(keyspace, table)
	if err := lk.Lock(); err != nil {
		return 0, errs.Server(err, "locking table file")
	}
	defer lk.Unlock()

	rows, err := s.readRows(keyspace, table)
	if err != nil {
		return 0, err
	}
	matched := 0
	for i, r := range rows {
		ok, err := where.Evaluate(r.AsMap())
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if ifClause != nil {
			cond, err := ifClause.Evaluate(r.AsMap())
			if err != nil {
				return 0, err
			}
			if !cond {
				continue
			}
		}
		matched++
		updated := r
		for _, a := range assignments {
			updated = updated.WithColumn(a.Column, a.Value, tsMillis)
		}
		rows[i] = updated
	}
	if matched == 0 {
		return 0, nil
	}
	return matched, s.writeRows(keyspace, table, rows)
}

func (s *FileStore) Delete(keyspace, table string, where query.BooleanExpr, columns []string, ifClause *query.BooleanExpr, tsMillis int64) (int, error) {
	lk := s.fileLock(keyspace, table)
	if err := lk.Lock(); err != nil {
		return 0, errs.Server(err, "locking table file")
	}
	defer lk.Unlock()

	rows, err := s.readRows(keyspace, table)
	if err != nil {
		return 0, err
	}
	matched := 0
	for i, r := range rows {
		ok, err := where.Evaluate(r.AsMap())
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if ifClause != nil {
			cond, err := ifClause.Evaluate(r.AsMap())
			if err != nil {
				return 0, err
			}
			if !cond {
				continue
			}
		}
		matched++
		if len(columns) == 0 {
			// Whole-row delete: tombstone it.
			rows[i] = model.Row{PrimaryKey: r.PrimaryKey, Deleted: true, Tombstone: tsMillis}
			continue
		}
		updated := r
		kept := make([]model.Column, 0, len(updated.Columns))
		for _, c := range updated.Columns {
			drop := false
			for _, name := range columns {
				if c.Name == name {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, c)
			}
		}
		updated.Columns = kept
		rows[i] = updated
	}
	if matched == 0 {
		return 0, nil
	}
	return matched, s.writeRows(keyspace, table, rows)
}

func (s *FileStore) Select(keyspace, table string, where query.BooleanExpr, columns []string, orderBy query.OrderByClause) ([]model.Row, error) {
	lk := s.fileLock(keyspace, table)
	if err := lk.RLock(); err != nil {
		return nil, errs.Server(err, "locking table file")
	}
	defer lk.Unlock()

	rows, err := s.readRows(keyspace, table)
	if err != nil {
		return nil, err
	}
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if r.Deleted {
			continue
		}
		ok, err := where.Evaluate(r.AsMap())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, projectColumns(r, columns))
	}
	if len(orderBy) > 0 {
		sortRows(out, orderBy)
	}
	return out, nil
}

func projectColumns(row model.Row, columns []string) model.Row {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return row
	}
	out := model.Row{PrimaryKey: row.PrimaryKey}
	for _, name := range columns {
		if v, ok := row.ColumnValue(name); ok {
			out.Columns = append(out.Columns, model.Column{Name: name, Value: v, TimestampMs: row.ColumnTimestamp(name)})
		}
	}
	return out
}

func sortRows(rows []model.Row, orderBy query.OrderByClause) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, term := range orderBy {
			a, aok := rows[i].ColumnValue(term.Column)
			b, bok := rows[j].ColumnValue(term.Column)
			if !aok || !bok {
				continue
			}
			cmp, err := a.Compare(b)
			if err != nil || cmp == 0 {
				continue
			}
			if term.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// RowCount returns how many rows (including tombstones) a table holds.
func (s *FileStore) RowCount(keyspace, table string) (int, error) {
	lk := s.fileLock(keyspace, table)
	if err := lk.RLock(); err != nil {
		return 0, errs.Server(err, "locking table file")
	}
	defer lk.Unlock()

	rows, err := s.readRows(keyspace, table)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *FileStore) Close() error {
	return nil
}
