// Package hints implements hinted handoff: writes meant for a replica
// that is currently down are appended to a per-target-ip hint log, which
// is replayed once that replica rejoins as Active (spec 4.10).
package hints

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/query"
)

// PerishHours is how long an undelivered hint is kept before it is
// dropped as unrecoverable.
const PerishHours = 3

// Hint is one queued write destined for a specific down replica.
type Hint struct {
	Keyspace    string      `json:"keyspace"`
	Query       query.Query `json:"query"`
	TimestampMs int64       `json:"timestamp_millis"`
}

// Perished reports whether the hint is older than PerishHours and should
// no longer be replayed.
func (h Hint) Perished(nowMs int64) bool {
	age := time.Duration(nowMs-h.TimestampMs) * time.Millisecond
	return age >= PerishHours*time.Hour
}

// Store is an append-only JSON-lines log per target node IP.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(ip string) string {
	return filepath.Join(s.Dir, ip+".jsonl")
}

// Append records a hint for ip, creating its log file if necessary.
func (s *Store) Append(ip string, hint Hint) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errs.Server(err, "creating hints directory")
	}
	f, err := os.OpenFile(s.path(ip), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errs.Server(err, "opening hint log for %s", ip)
	}
	defer f.Close()

	data, err := encodeHintLine(hint)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return errs.Server(err, "appending hint for %s", ip)
	}
	return nil
}

// HasPending reports whether ip has a hint log awaiting replay.
func (s *Store) HasPending(ip string) bool {
	_, err := os.Stat(s.path(ip))
	return err == nil
}

// ReadAll loads every non-perished hint queued for ip, oldest first.
func (s *Store) ReadAll(ip string, nowMs int64) ([]Hint, error) {
	f, err := os.Open(s.path(ip))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Server(err, "opening hint log for %s", ip)
	}
	defer f.Close()

	var hints []Hint
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		hint, err := decodeHintLine(line)
		if err != nil {
			return nil, err
		}
		if hint.Perished(nowMs) {
			continue
		}
		hints = append(hints, hint)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Server(err, "reading hint log for %s", ip)
	}
	sort.SliceStable(hints, func(i, j int) bool { return hints[i].TimestampMs < hints[j].TimestampMs })
	return hints, nil
}

// Clear removes ip's hint log once it has been fully replayed.
func (s *Store) Clear(ip string) error {
	err := os.Remove(s.path(ip))
	if err != nil && !os.IsNotExist(err) {
		return errs.Server(err, "removing hint log for %s", ip)
	}
	return nil
}

// PendingCount returns the total number of non-perished hints queued across
// every target node, used by the metrics collector.
func (s *Store) PendingCount(nowMs int64) (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errs.Server(err, "reading hints directory")
	}
	total := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		ip := e.Name()[:len(e.Name())-len(".jsonl")]
		hints, err := s.ReadAll(ip, nowMs)
		if err != nil {
			return 0, err
		}
		total += len(hints)
	}
	return total, nil
}

// Sweep removes every hint log entry that has perished across all
// targets, run periodically by pkg/schedule.
func (s *Store) Sweep(nowMs int64) error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Server(err, "reading hints directory")
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		ip := e.Name()[:len(e.Name())-len(".jsonl")]
		remaining, err := s.ReadAll(ip, nowMs)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			if err := s.Clear(ip); err != nil {
				return err
			}
			continue
		}
		if err := s.rewrite(ip, remaining); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) rewrite(ip string, hints []Hint) error {
	tmp := s.path(ip) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errs.Server(err, "rewriting hint log for %s", ip)
	}
	for _, h := range hints {
		data, err := encodeHintLine(h)
		if err != nil {
			f.Close()
			return err
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			f.Close()
			return errs.Server(err, "rewriting hint log for %s", ip)
		}
	}
	f.Close()
	return os.Rename(tmp, s.path(ip))
}
