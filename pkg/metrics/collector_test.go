package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringkeep/ringnode/pkg/cluster"
	"github.com/ringkeep/ringnode/pkg/hints"
	"github.com/ringkeep/ringnode/pkg/keyspace"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/storage"
)

func TestCollectorCollect(t *testing.T) {
	dir := t.TempDir()

	clusterStore := cluster.NewStore(dir + "/cluster.json")
	require.NoError(t, clusterStore.Init(cluster.View{
		OwnNode:    model.Node{IP: "10.0.0.1", State: model.Active},
		OtherNodes: []model.Node{{IP: "10.0.0.2", State: model.Inactive}},
	}))

	hintsStore := hints.NewStore(dir + "/hints")
	require.NoError(t, hintsStore.Append("10.0.0.2", hints.Hint{Keyspace: "shop", TimestampMs: time.Now().UnixMilli()}))

	keyspaceStore := keyspace.NewStore(dir + "/keyspaces")
	require.NoError(t, keyspaceStore.Create(model.KeyspaceMeta{
		Name:                "shop",
		ReplicationStrategy: "SimpleStrategy",
		ReplicationFactor:   1,
		Tables: map[string]model.TableSchema{
			"orders": {Name: "orders"},
		},
	}))

	rowStore, err := storage.NewFileStore(dir + "/rows")
	require.NoError(t, err)
	require.NoError(t, rowStore.CreateTable("shop", "orders"))
	require.NoError(t, rowStore.Insert("shop", "orders", model.Row{PrimaryKey: "1"}))

	c := NewCollector(clusterStore, hintsStore, keyspaceStore, rowStore)
	c.collect()

	assert.Equal(t, float64(1), testutil.ToFloat64(NodesTotal.WithLabelValues(string(model.Active))))
	count, err := rowStore.RowCount("shop", "orders")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
