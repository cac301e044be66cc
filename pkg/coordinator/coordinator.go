// Package coordinator implements query delegation: fanning a parsed query
// out to every node in its replica set, waiting for the consistency
// level's required number of replies, and triggering read-repair for
// SELECTs whose replica responses disagree (spec 4.9).
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/query"
	"github.com/ringkeep/ringnode/pkg/readrepair"
)

// timeout bounds how long the coordinator waits for replica replies
// before declaring the consistency level unreachable.
const timeout = 5 * time.Second

// Reply is one replica's answer to a delegated query.
type Reply struct {
	NodeIP string
	Rows   []model.Row
	Err    error
}

// Delegate is the per-replica RPC the coordinator invokes; pkg/node wires
// this to an actual TLS connection, keeping this package free of network
// concerns and straightforward to test.
type Delegate func(ctx context.Context, nodeIP, keyspace string, q query.Query) ([]model.Row, error)

// Coordinator fans a query out to a replica set and aggregates the
// replies the consistency level requires.
type Coordinator struct {
	Delegate Delegate
	// ReadRepair is invoked with every successful reply of a SELECT fan-out
	// so the caller can reconcile rows across replicas that disagree.
	ReadRepair func(keyspace, table string, replies []Reply)
}

// Execute runs q against replicas. A write returns once at least
// level.Required(len(replicas)) replicas have succeeded; a read waits for
// every replica to answer (or for ctx/timeout) and returns the reconciled
// rows if at least that many succeeded. When too few succeed, it returns
// a ReadTimeout/WriteTimeout error matching the query's read/write nature.
func (c *Coordinator) Execute(ctx context.Context, keyspace string, q query.Query, replicas []model.Node, level model.ConsistencyLevel) ([]model.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	required := level.Required(len(replicas))
	repliesCh := make(chan Reply, len(replicas))

	var wg sync.WaitGroup
	for _, node := range replicas {
		node := node
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := c.Delegate(ctx, node.IP, keyspace, q)
			repliesCh <- Reply{NodeIP: node.IP, Rows: rows, Err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(repliesCh)
	}()

	// Writes only need W acks to satisfy the client; a SELECT instead waits
	// for every replica that's going to answer (spec 4.5: "collects up to R
	// row-sets, passes them to read-repair, returns the reconciled
	// row-set") so disagreement is resolved before the client ever sees a
	// row, not after.
	if q.IsWrite() {
		return c.executeWrite(ctx, q, repliesCh, required)
	}
	return c.executeRead(ctx, keyspace, q, repliesCh, required)
}

func (c *Coordinator) executeWrite(ctx context.Context, q query.Query, repliesCh <-chan Reply, required int) ([]model.Row, error) {
	var successes []Reply
	var lastErr error
	for {
		select {
		case r, ok := <-repliesCh:
			if !ok {
				if len(successes) < required {
					if lastErr == nil {
						lastErr = errs.Unavailable("not enough replicas responded")
					}
					return nil, timeoutErrorFrom(q, lastErr)
				}
				return nil, nil
			}
			if r.Err != nil {
				lastErr = r.Err
				continue
			}
			successes = append(successes, r)
			if len(successes) >= required {
				// Drain remaining replies in the background purely to let
				// their goroutines finish; any hint they still need was
				// already queued inline by the failing Delegate call.
				go drain(repliesCh)
				return nil, nil
			}
		case <-ctx.Done():
			return nil, timeoutError(q, len(successes), required)
		}
	}
}

func (c *Coordinator) executeRead(ctx context.Context, keyspace string, q query.Query, repliesCh <-chan Reply, required int) ([]model.Row, error) {
	var successes []Reply
	var lastErr error
	for {
		select {
		case r, ok := <-repliesCh:
			if !ok {
				return c.finishRead(keyspace, q, successes, required, lastErr)
			}
			if r.Err != nil {
				lastErr = r.Err
				continue
			}
			successes = append(successes, r)
		case <-ctx.Done():
			if len(successes) >= required {
				return c.finishRead(keyspace, q, successes, required, lastErr)
			}
			return nil, timeoutError(q, len(successes), required)
		}
	}
}

func (c *Coordinator) finishRead(keyspace string, q query.Query, successes []Reply, required int, lastErr error) ([]model.Row, error) {
	if len(successes) < required {
		if lastErr == nil {
			lastErr = errs.Unavailable("not enough replicas responded")
		}
		return nil, timeoutErrorFrom(q, lastErr)
	}
	if c.ReadRepair != nil {
		c.ReadRepair(keyspace, q.Table(), successes)
	}
	return reconcileRows(successes), nil
}

func drain(ch <-chan Reply) {
	for range ch {
	}
}

// reconcileRows resolves every replica's view of the rows a SELECT touched
// into the single best answer read-repair would also push out to stale
// replicas (spec 4.6), so the client and the repair writes agree.
func reconcileRows(successes []Reply) []model.Row {
	if len(successes) == 1 {
		return successes[0].Rows
	}
	sources := make([]readrepair.Source, len(successes))
	for i, r := range successes {
		sources[i] = readrepair.Source{NodeIP: r.NodeIP, Rows: r.Rows}
	}
	reconciled := readrepair.Reconcile(sources)
	out := make([]model.Row, len(reconciled))
	for i, rec := range reconciled {
		out[i] = rec.Row
	}
	return out
}

func timeoutError(q query.Query, got, required int) error {
	return timeoutErrorFrom(q, errs.Unavailable("only %d/%d required replicas responded before timeout", got, required))
}

func timeoutErrorFrom(q query.Query, cause error) error {
	if q.IsWrite() {
		return errs.WriteTimeout("%v", cause)
	}
	return errs.ReadTimeout("%v", cause)
}
