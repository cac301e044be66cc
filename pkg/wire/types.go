package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
)

// WriteShort appends a big-endian uint16.
func WriteShort(buf *bytes.Buffer, v uint16) {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	buf.Write(b)
}

// WriteString appends a [short length][utf8 bytes] string.
func WriteString(buf *bytes.Buffer, s string) {
	WriteShort(buf, uint16(len(s)))
	buf.WriteString(s)
}

// WriteLongString appends a [int length][utf8 bytes] string.
func WriteLongString(buf *bytes.Buffer, s string) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(len(s)))
	buf.Write(b)
	buf.WriteString(s)
}

// WriteStringMap appends a [short count] then count*[string key][string
// value] pairs, the OPTIONS/SUPPORTED string-multimap encoding.
func WriteStringMap(buf *bytes.Buffer, m map[string]string) {
	WriteShort(buf, uint16(len(m)))
	for k, v := range m {
		WriteString(buf, k)
		WriteString(buf, v)
	}
}

// Reader wraps a byte slice for sequential header-field reads, mirroring
// a FrameCursor-style cursor.
type Reader struct {
	r *bytes.Reader
}

func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

func (c *Reader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		return 0, errs.Protocol("reading byte: %v", err)
	}
	return b, nil
}

func (c *Reader) ReadShort() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		return 0, errs.Protocol("reading short: %v", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func (c *Reader) ReadInt() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		return 0, errs.Protocol("reading int: %v", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (c *Reader) ReadString() (string, error) {
	n, err := c.ReadShort()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(c.r, b); err != nil {
		return "", errs.Protocol("reading string: %v", err)
	}
	return string(b), nil
}

func (c *Reader) ReadLongString() (string, error) {
	n, err := c.ReadInt()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(c.r, b); err != nil {
		return "", errs.Protocol("reading long string: %v", err)
	}
	return string(b), nil
}

func (c *Reader) ReadStringMap() (map[string]string, error) {
	n, err := c.ReadShort()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, n)
	for i := 0; i < int(n); i++ {
		k, err := c.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := c.ReadString()
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (c *Reader) ReadRemaining() ([]byte, error) {
	return io.ReadAll(c.r)
}

// ConsistencyCode maps a ConsistencyLevel to its CQL-protocol short code.
func ConsistencyCode(c model.ConsistencyLevel) uint16 {
	switch c {
	case model.One:
		return 0x0001
	case model.All:
		return 0x0005
	case model.Quorum:
		fallthrough
	default:
		return 0x0004
	}
}

// ConsistencyFromCode maps a CQL-protocol short code back to a
// ConsistencyLevel.
func ConsistencyFromCode(code uint16) model.ConsistencyLevel {
	switch code {
	case 0x0001:
		return model.One
	case 0x0005:
		return model.All
	default:
		return model.Quorum
	}
}
