package node

import (
	"bytes"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/query"
)

// delegationKind tags which payload a delegationMsg carries over the
// node-to-node delegation listener.
type delegationKind string

const (
	// msgQuery asks the receiving node to run Query locally and reply with
	// its rows — the coordinator's fan-out call.
	msgQuery delegationKind = "query"
	// msgUpsert pushes one already-reconciled row for the receiver to
	// store verbatim — read-repair's push side (spec 4.9.1).
	msgUpsert delegationKind = "upsert"
)

type delegationMsg struct {
	Kind     delegationKind `json:"kind"`
	Keyspace string         `json:"keyspace"`
	Query    query.Query    `json:"query,omitempty"`
	Table    string         `json:"table,omitempty"`
	Row      model.Row      `json:"row,omitempty"`
}

var delegationHandle = &codec.MsgpackHandle{}

func encodeDelegationMsg(msg delegationMsg) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, delegationHandle).Encode(msg); err != nil {
		return nil, errs.Server(err, "encoding delegation message")
	}
	return buf.Bytes(), nil
}

func decodeDelegationMsg(data []byte) (delegationMsg, error) {
	var msg delegationMsg
	if err := codec.NewDecoder(bytes.NewReader(data), delegationHandle).Decode(&msg); err != nil {
		return delegationMsg{}, errs.Server(err, "decoding delegation message")
	}
	return msg, nil
}
