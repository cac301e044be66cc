// Package keyspace persists keyspace/table metadata (replication settings
// and declared table schemas) as a JSON file per keyspace, guarded by an
// advisory file lock.
package keyspace

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
)

// Store manages every keyspace metadata file under a root directory, one
// file per keyspace named "<keyspace>.json".
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Dir, name+".json")
}

// Exists reports whether a keyspace of this name has been created.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Create writes a new keyspace metadata file, failing with AlreadyExists
// if one is already present (spec 4.6 CREATE KEYSPACE semantics).
func (s *Store) Create(meta model.KeyspaceMeta) error {
	if s.Exists(meta.Name) {
		return errs.AlreadyExists("keyspace %q already exists", meta.Name)
	}
	if meta.Tables == nil {
		meta.Tables = map[string]model.TableSchema{}
	}
	return s.write(meta)
}

// Read loads one keyspace's metadata.
func (s *Store) Read(name string) (model.KeyspaceMeta, error) {
	lk := flock.New(s.path(name) + ".lock")
	if err := lk.RLock(); err != nil {
		return model.KeyspaceMeta{}, errs.Server(err, "locking keyspace metadata")
	}
	defer lk.Unlock()

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return model.KeyspaceMeta{}, errs.Invalid("keyspace %q does not exist", name)
		}
		return model.KeyspaceMeta{}, errs.Server(err, "reading keyspace metadata")
	}
	var meta model.KeyspaceMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return model.KeyspaceMeta{}, errs.Server(err, "decoding keyspace metadata")
	}
	return meta, nil
}

// List returns the name of every created keyspace.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Server(err, "reading keyspace metadata directory")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name()[:len(e.Name())-len(".json")])
	}
	return names, nil
}

// Drop removes a keyspace's metadata file, failing with Invalid if
// ifExists is false and the keyspace is absent.
func (s *Store) Drop(name string, ifExists bool) error {
	if !s.Exists(name) {
		if ifExists {
			return nil
		}
		return errs.Invalid("keyspace %q does not exist", name)
	}
	if err := os.Remove(s.path(name)); err != nil {
		return errs.Server(err, "removing keyspace metadata")
	}
	os.Remove(s.path(name) + ".lock")
	return nil
}

// PutTable adds or replaces a table's schema within a keyspace.
func (s *Store) PutTable(keyspace string, table model.TableSchema) error {
	meta, err := s.Read(keyspace)
	if err != nil {
		return err
	}
	if meta.Tables == nil {
		meta.Tables = map[string]model.TableSchema{}
	}
	meta.Tables[table.Name] = table
	return s.write(meta)
}

// DropTable removes a table's schema from a keyspace.
func (s *Store) DropTable(keyspace, table string, ifExists bool) error {
	meta, err := s.Read(keyspace)
	if err != nil {
		return err
	}
	if _, ok := meta.Tables[table]; !ok {
		if ifExists {
			return nil
		}
		return errs.Invalid("table %q does not exist in keyspace %q", table, keyspace)
	}
	delete(meta.Tables, table)
	return s.write(meta)
}

// Table returns one table's schema, resolved through the keyspace file.
func (s *Store) Table(keyspace, table string) (model.TableSchema, error) {
	meta, err := s.Read(keyspace)
	if err != nil {
		return model.TableSchema{}, err
	}
	t, ok := meta.Tables[table]
	if !ok {
		return model.TableSchema{}, errs.Invalid("table %q does not exist in keyspace %q", table, keyspace)
	}
	return t, nil
}

func (s *Store) write(meta model.KeyspaceMeta) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errs.Server(err, "creating keyspace metadata directory")
	}
	lk := flock.New(s.path(meta.Name) + ".lock")
	if err := lk.Lock(); err != nil {
		return errs.Server(err, "locking keyspace metadata for write")
	}
	defer lk.Unlock()

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errs.Server(err, "encoding keyspace metadata")
	}
	tmp := s.path(meta.Name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Server(err, "writing keyspace metadata")
	}
	return os.Rename(tmp, s.path(meta.Name))
}
