package wire

import (
	"bytes"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/ringkeep/ringnode/pkg/model"
)

var rowsMsgpackHandle = &codec.MsgpackHandle{}

// EncodeRows serializes rows as msgpack, used for both the node-to-node
// delegation reply and the OpResult frame body sent back to clients.
func EncodeRows(rows []model.Row) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, rowsMsgpackHandle)
	if err := enc.Encode(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRows deserializes a msgpack-encoded row slice.
func DecodeRows(data []byte) ([]model.Row, error) {
	var rows []model.Row
	dec := codec.NewDecoder(bytes.NewReader(data), rowsMsgpackHandle)
	if len(data) > 0 {
		if err := dec.Decode(&rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}
