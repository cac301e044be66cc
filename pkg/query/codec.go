package query

import (
	"bytes"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

var msgpackHandle = &codec.MsgpackHandle{}

// Encode serializes a Query as msgpack for the node-to-node delegation
// wire and the hinted-handoff log.
func Encode(q Query) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, msgpackHandle)
	if err := enc.Encode(q); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a msgpack-encoded Query.
func Decode(data []byte) (Query, error) {
	var q Query
	dec := codec.NewDecoder(bytes.NewReader(data), msgpackHandle)
	if err := dec.Decode(&q); err != nil {
		return Query{}, err
	}
	return q, nil
}
