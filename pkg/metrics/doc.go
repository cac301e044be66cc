// Package metrics exposes Prometheus instrumentation for cluster
// membership, query throughput/latency, coordinator fan-out outcomes,
// hinted-handoff backlog, gossip rounds, and per-table row counts. Metrics
// are registered at package init and scraped via Handler(); Collector
// periodically samples the gauges that aren't updated inline by their
// owning component.
package metrics
