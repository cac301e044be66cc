// Package wire implements the CQL-style binary frame protocol clients
// speak over the query port: a fixed 9-byte header (version, flags,
// stream id, opcode, body length) followed by an opcode-specific body.
package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/log"
)

// Opcode identifies a frame's payload shape, numbered to match the CQL
// native protocol's opcode table.
type Opcode byte

const (
	OpError         Opcode = 0x00
	OpStartup       Opcode = 0x01
	OpReady         Opcode = 0x02
	OpAuthenticate  Opcode = 0x03
	OpCredentials   Opcode = 0x04
	OpOptions       Opcode = 0x05
	OpSupported     Opcode = 0x06
	OpQuery         Opcode = 0x07
	OpResult        Opcode = 0x08
	OpAuthResponse  Opcode = 0x0F
	OpAuthSuccess   Opcode = 0x10
)

// FlagCompressed marks a frame body as lz4-compressed.
const FlagCompressed byte = 0x01

const headerSize = 9

// Frame is one parsed CQL-style protocol frame.
type Frame struct {
	Version byte
	Flags   byte
	Stream  int16
	Opcode  Opcode
	Body    []byte
}

// ReadFrame reads one frame from r, decompressing the body with lz4 if
// FlagCompressed is set.
func ReadFrame(r io.Reader) (Frame, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, errs.Protocol("reading frame header: %v", err)
	}
	version := header[0]
	flags := header[1]
	stream := int16(binary.BigEndian.Uint16(header[2:4]))
	opcode := Opcode(header[4])
	length := binary.BigEndian.Uint32(header[5:9])

	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return Frame{}, errs.Protocol("reading frame body: %v", err)
		}
	}
	if flags&FlagCompressed != 0 {
		decompressed, err := decompress(body)
		if err != nil {
			return Frame{}, errs.Protocol("decompressing frame body: %v", err)
		}
		body = decompressed
	}
	return Frame{Version: version, Flags: flags, Stream: stream, Opcode: opcode, Body: body}, nil
}

// WriteFrame serializes f to w. When compress is true the body is lz4
// compressed and FlagCompressed is set on the wire.
func WriteFrame(w io.Writer, f Frame, compress bool) error {
	body := f.Body
	flags := f.Flags
	if compress && len(body) > 0 {
		compressed, err := compressBytes(body)
		if err != nil {
			return errs.Protocol("compressing frame body: %v", err)
		}
		body = compressed
		flags |= FlagCompressed
	}
	header := make([]byte, headerSize)
	header[0] = f.Version
	header[1] = flags
	binary.BigEndian.PutUint16(header[2:4], uint16(f.Stream))
	header[4] = byte(f.Opcode)
	binary.BigEndian.PutUint32(header[5:9], uint32(len(body)))

	if _, err := w.Write(header); err != nil {
		return errs.Protocol("writing frame header: %v", err)
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return errs.Protocol("writing frame body: %v", err)
		}
	}
	return nil
}

func compressBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}

// ErrorFrame builds a reply frame carrying the given error, taking its
// wire code from errs.KindOf. A ServerError is also logged at error level.
func ErrorFrame(request Frame, err error) Frame {
	if errs.KindOf(err) == errs.KindServer {
		log.Errorf("server error returned to client", err)
	}
	code := errs.CodeFor(err)
	var body bytes.Buffer
	codeBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(codeBytes, code)
	body.Write(codeBytes)
	WriteLongString(&body, err.Error())
	return Frame{Version: request.Version, Stream: request.Stream, Opcode: OpError, Body: body.Bytes()}
}
