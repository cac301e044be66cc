/*
Package log provides structured logging for ringnode using zerolog.

A single global Logger is configured once via Init and then narrowed per
subsystem with WithComponent, so every line a wire handler, the gossip
scheduler, or the storage engine emits carries a "component" field without
each package threading its own logger through every call.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	wireLog := log.WithComponent("wire")
	wireLog.Info().Int("stream", int(frame.Stream)).Msg("frame received")

	gossipLog := log.WithComponent("gossip")
	gossipLog.Error().Err(err).Str("peer", peer.IP).Msg("gossip round failed")

# Output

JSON (production) or a console writer (local development), selected by
Config.JSONOutput; both always include a timestamp. WithComponent adds one
field; WithNodeID, WithClientID, and WithKeyspace each add a second field
for correlating log lines across a node's lifetime, a client session, or a
keyspace's DDL history.

# See Also

  - pkg/metrics for counters/gauges describing the same events numerically
  - pkg/errs for the error taxonomy ServerError logs at error level
*/
package log
