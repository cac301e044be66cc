package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/query"
)

func selectQuery(table string) query.Query {
	return query.Query{Kind: query.KindSelect, Select: &query.SelectQuery{Table: table}}
}

func insertQuery(table string) query.Query {
	return query.Query{Kind: query.KindInsert, Insert: &query.InsertQuery{Table: table}}
}

func replicas(ips ...string) []model.Node {
	out := make([]model.Node, len(ips))
	for i, ip := range ips {
		out[i] = model.Node{IP: ip}
	}
	return out
}

func TestExecuteSucceedsOnceQuorumReplies(t *testing.T) {
	c := &Coordinator{
		Delegate: func(ctx context.Context, nodeIP, ks string, q query.Query) ([]model.Row, error) {
			return []model.Row{{PrimaryKey: "row1"}}, nil
		},
	}

	rows, err := c.Execute(context.Background(), "ks", selectQuery("t"), replicas("a", "b", "c"), model.Quorum)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestExecuteReconcilesDisagreeingReplicas(t *testing.T) {
	c := &Coordinator{
		Delegate: func(ctx context.Context, nodeIP, ks string, q query.Query) ([]model.Row, error) {
			if nodeIP == "a" {
				return []model.Row{{PrimaryKey: "1", Columns: []model.Column{
					{Name: "name", Value: model.NewLiteral("ana", model.Text), TimestampMs: 1},
				}}}, nil
			}
			return []model.Row{{PrimaryKey: "1", Columns: []model.Column{
				{Name: "name", Value: model.NewLiteral("bea", model.Text), TimestampMs: 2},
			}}}, nil
		},
	}

	rows, err := c.Execute(context.Background(), "ks", selectQuery("t"), replicas("a", "b", "c"), model.All)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, ok := rows[0].ColumnValue("name")
	require.True(t, ok)
	require.Equal(t, "bea", v.Text)
}

func TestExecuteUnavailableWhenTooFewReplicasSucceed(t *testing.T) {
	c := &Coordinator{
		Delegate: func(ctx context.Context, nodeIP, ks string, q query.Query) ([]model.Row, error) {
			if nodeIP == "a" {
				return []model.Row{{PrimaryKey: "a"}}, nil
			}
			return nil, errSample
		},
	}

	_, err := c.Execute(context.Background(), "ks", selectQuery("t"), replicas("a", "b", "c"), model.Quorum)
	require.Error(t, err)
}

func TestExecuteWriteTimeoutVsReadTimeout(t *testing.T) {
	blocking := &Coordinator{
		Delegate: func(ctx context.Context, nodeIP, ks string, q query.Query) ([]model.Row, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	// A pre-canceled parent context makes Execute's internal timeout
	// fire immediately instead of waiting out the real 5s budget.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := blocking.Execute(ctx, "ks", insertQuery("t"), replicas("a"), model.One)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindWriteTimeout))

	_, err = blocking.Execute(ctx, "ks", selectQuery("t"), replicas("a"), model.One)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindReadTimeout))
	require.Less(t, time.Since(start), time.Second)
}

func TestExecuteTriggersReadRepairForSelect(t *testing.T) {
	var mu sync.Mutex
	var repaired bool

	c := &Coordinator{
		Delegate: func(ctx context.Context, nodeIP, ks string, q query.Query) ([]model.Row, error) {
			return []model.Row{{PrimaryKey: nodeIP}}, nil
		},
		ReadRepair: func(keyspace, table string, replies []Reply) {
			mu.Lock()
			repaired = true
			mu.Unlock()
		},
	}

	_, err := c.Execute(context.Background(), "ks", selectQuery("t"), replicas("a", "b", "c"), model.All)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return repaired
	}, time.Second, 10*time.Millisecond)
}

func TestExecuteSkipsReadRepairForWrites(t *testing.T) {
	called := false
	c := &Coordinator{
		Delegate: func(ctx context.Context, nodeIP, ks string, q query.Query) ([]model.Row, error) {
			return nil, nil
		},
		ReadRepair: func(keyspace, table string, replies []Reply) {
			called = true
		},
	}

	_, err := c.Execute(context.Background(), "ks", insertQuery("t"), replicas("a"), model.One)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.False(t, called)
}

var errSample = &sampleErr{}

type sampleErr struct{}

func (e *sampleErr) Error() string { return "sample delegate error" }
