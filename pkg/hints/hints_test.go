package hints

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ringkeep/ringnode/pkg/query"
)

func TestAppendAndReadAll(t *testing.T) {
	s := NewStore(t.TempDir())

	require.False(t, s.HasPending("10.0.0.9"))

	require.NoError(t, s.Append("10.0.0.9", Hint{Keyspace: "ks", Query: query.Query{Kind: query.KindInsert}, TimestampMs: 10}))
	require.NoError(t, s.Append("10.0.0.9", Hint{Keyspace: "ks", Query: query.Query{Kind: query.KindUpdate}, TimestampMs: 20}))

	require.True(t, s.HasPending("10.0.0.9"))

	got, err := s.ReadAll("10.0.0.9", 25)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, query.KindInsert, got[0].Query.Kind)
	require.Equal(t, query.KindUpdate, got[1].Query.Kind)
}

func TestReadAllSkipsPerishedHints(t *testing.T) {
	s := NewStore(t.TempDir())
	nowMs := int64(1000)
	oldMs := nowMs - (PerishHours+1)*3600*1000

	require.NoError(t, s.Append("10.0.0.9", Hint{Keyspace: "ks", TimestampMs: oldMs}))
	require.NoError(t, s.Append("10.0.0.9", Hint{Keyspace: "ks", TimestampMs: nowMs}))

	got, err := s.ReadAll("10.0.0.9", nowMs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, nowMs, got[0].TimestampMs)
}

func TestClearRemovesLog(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Append("10.0.0.9", Hint{Keyspace: "ks", TimestampMs: 1}))
	require.NoError(t, s.Clear("10.0.0.9"))
	require.False(t, s.HasPending("10.0.0.9"))

	// Clearing an already-absent log is not an error.
	require.NoError(t, s.Clear("10.0.0.9"))
}

func TestPendingCount(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Append("10.0.0.9", Hint{Keyspace: "ks", TimestampMs: 1}))
	require.NoError(t, s.Append("10.0.0.10", Hint{Keyspace: "ks", TimestampMs: 1}))
	require.NoError(t, s.Append("10.0.0.10", Hint{Keyspace: "ks", TimestampMs: 2}))

	count, err := s.PendingCount(100)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestSweepDropsPerishedAndRewritesSurvivors(t *testing.T) {
	s := NewStore(t.TempDir())
	nowMs := int64(10_000_000)
	oldMs := nowMs - (PerishHours+1)*3600*1000

	require.NoError(t, s.Append("10.0.0.9", Hint{Keyspace: "ks", TimestampMs: oldMs}))
	require.NoError(t, s.Append("10.0.0.9", Hint{Keyspace: "ks", TimestampMs: nowMs}))

	require.NoError(t, s.Sweep(nowMs))

	got, err := s.ReadAll("10.0.0.9", nowMs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, nowMs, got[0].TimestampMs)
}

func TestSweepClearsFullyPerishedLog(t *testing.T) {
	s := NewStore(t.TempDir())
	nowMs := int64(10_000_000)
	oldMs := nowMs - (PerishHours+1)*3600*1000

	require.NoError(t, s.Append("10.0.0.9", Hint{Keyspace: "ks", TimestampMs: oldMs}))
	require.NoError(t, s.Sweep(nowMs))

	require.False(t, s.HasPending("10.0.0.9"))
}

func TestHintPerished(t *testing.T) {
	h := Hint{TimestampMs: 0}
	require.False(t, h.Perished(3*3600*1000-1))
	require.True(t, h.Perished(3*3600*1000))
}
