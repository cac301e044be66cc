package metrics

import (
	"time"

	"github.com/ringkeep/ringnode/pkg/cluster"
	"github.com/ringkeep/ringnode/pkg/hints"
	"github.com/ringkeep/ringnode/pkg/keyspace"
	"github.com/ringkeep/ringnode/pkg/log"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/storage"
)

// Collector periodically samples gauge metrics from the node's own stores:
// cluster membership, pending hints, and per-table row counts.
type Collector struct {
	Cluster  *cluster.Store
	Hints    *hints.Store
	Keyspace *keyspace.Store
	Storage  storage.Store

	stopCh chan struct{}
}

// NewCollector creates a Collector. Call Start to begin sampling.
func NewCollector(clusterStore *cluster.Store, hintsStore *hints.Store, keyspaceStore *keyspace.Store, rowStore storage.Store) *Collector {
	return &Collector{
		Cluster:  clusterStore,
		Hints:    hintsStore,
		Keyspace: keyspaceStore,
		Storage:  rowStore,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting on a fixed interval in a goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop ends collection. Safe to call once.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectClusterMetrics()
	c.collectHintMetrics()
	c.collectRowMetrics()
}

func (c *Collector) collectClusterMetrics() {
	view, err := c.Cluster.Read()
	if err != nil {
		log.Errorf("metrics: reading cluster view", err)
		return
	}
	nodes := view.AllNodes()
	counts := make(map[model.NodeState]int)
	for _, n := range nodes {
		counts[n.State]++
	}
	for state, count := range counts {
		NodesTotal.WithLabelValues(string(state)).Set(float64(count))
	}
	RingSize.Set(float64(len(nodes)))
	SetNodeState(string(view.OwnNode.State))
}

func (c *Collector) collectHintMetrics() {
	if c.Hints == nil {
		return
	}
	pending, err := c.Hints.PendingCount(nowMillis())
	if err != nil {
		log.Errorf("metrics: counting pending hints", err)
		return
	}
	HintsPending.Set(float64(pending))
}

func (c *Collector) collectRowMetrics() {
	if c.Keyspace == nil || c.Storage == nil {
		return
	}
	names, err := c.Keyspace.List()
	if err != nil {
		log.Errorf("metrics: listing keyspaces", err)
		return
	}
	for _, ks := range names {
		meta, err := c.Keyspace.Read(ks)
		if err != nil {
			continue
		}
		for table := range meta.Tables {
			count, err := c.Storage.RowCount(ks, table)
			if err != nil {
				continue
			}
			RowsTotal.WithLabelValues(ks, table).Set(float64(count))
		}
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
