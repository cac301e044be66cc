package hints

import (
	"encoding/base64"
	"encoding/json"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/query"
)

// hintLine is the on-disk JSON-lines record: the query is msgpack-encoded
// and base64-wrapped so the hint log stays one self-contained line per
// entry regardless of what the query payload contains.
type hintLine struct {
	Keyspace    string `json:"keyspace"`
	QueryB64    string `json:"query"`
	TimestampMs int64  `json:"timestamp_millis"`
}

func encodeHintLine(h Hint) ([]byte, error) {
	payload, err := query.Encode(h.Query)
	if err != nil {
		return nil, errs.Server(err, "encoding hinted query")
	}
	line := hintLine{
		Keyspace:    h.Keyspace,
		QueryB64:    base64.StdEncoding.EncodeToString(payload),
		TimestampMs: h.TimestampMs,
	}
	data, err := json.Marshal(line)
	if err != nil {
		return nil, errs.Server(err, "encoding hint line")
	}
	return data, nil
}

func decodeHintLine(data []byte) (Hint, error) {
	var line hintLine
	if err := json.Unmarshal(data, &line); err != nil {
		return Hint{}, errs.Server(err, "decoding hint line")
	}
	payload, err := base64.StdEncoding.DecodeString(line.QueryB64)
	if err != nil {
		return Hint{}, errs.Server(err, "decoding hinted query payload")
	}
	q, err := query.Decode(payload)
	if err != nil {
		return Hint{}, errs.Server(err, "decoding hinted query")
	}
	return Hint{Keyspace: line.Keyspace, Query: q, TimestampMs: line.TimestampMs}, nil
}
