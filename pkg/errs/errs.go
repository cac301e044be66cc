// Package errs implements the node's single error taxonomy (spec section 7).
package errs

import "fmt"

// Kind identifies one of the fixed error classes the node can surface to a
// client or to the log.
type Kind string

const (
	KindProtocol       Kind = "ProtocolError"
	KindAuthentication Kind = "AuthenticationError"
	KindSyntax         Kind = "SyntaxError"
	KindInvalid        Kind = "Invalid"
	KindAlreadyExists  Kind = "AlreadyExists"
	KindUnavailable    Kind = "Unavailable"
	KindReadTimeout    Kind = "ReadTimeout"
	KindWriteTimeout   Kind = "WriteTimeout"
	KindServer         Kind = "ServerError"
)

// wireCode maps each Kind to the CQL-wire error code carried in an ERROR
// frame body.
// Only ProtocolError has a fixed code per spec; the others use the
// conventional Cassandra-protocol codes closest to their meaning.
var wireCode = map[Kind]uint32{
	KindServer:         0x0000,
	KindProtocol:       0x000A,
	KindAuthentication: 0x0100,
	KindUnavailable:    0x1000,
	KindReadTimeout:    0x1200,
	KindWriteTimeout:   0x1100,
	KindSyntax:         0x2000,
	KindInvalid:        0x2200,
	KindAlreadyExists:  0x2400,
}

// Error is the node's single structured error type. Every user-visible
// failure is one of these, wrapping an optional cause for %w-compatible
// unwrapping.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// WireCode returns the CQL ERROR-frame code for this error's kind.
func (e *Error) WireCode() uint32 { return wireCode[e.Kind] }

func new(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Protocol(format string, args ...any) *Error       { return new(KindProtocol, format, args...) }
func Authentication(format string, args ...any) *Error { return new(KindAuthentication, format, args...) }
func Syntax(format string, args ...any) *Error          { return new(KindSyntax, format, args...) }
func Invalid(format string, args ...any) *Error         { return new(KindInvalid, format, args...) }
func AlreadyExists(format string, args ...any) *Error   { return new(KindAlreadyExists, format, args...) }
func Unavailable(format string, args ...any) *Error     { return new(KindUnavailable, format, args...) }
func ReadTimeout(format string, args ...any) *Error     { return new(KindReadTimeout, format, args...) }
func WriteTimeout(format string, args ...any) *Error    { return new(KindWriteTimeout, format, args...) }

// Server wraps an underlying I/O/serialization/TLS failure as a ServerError.
func Server(cause error, format string, args ...any) *Error {
	e := new(KindServer, format, args...)
	e.Cause = cause
	return e
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// KindOf returns the Kind of err if it is an *Error, or KindServer otherwise
// (used to classify third-party errors crossing into the node boundary).
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindServer
}

// CodeFor returns the CQL ERROR-frame wire code for err, treating any
// non-*Error as a ServerError.
func CodeFor(err error) uint32 {
	if e, ok := err.(*Error); ok {
		return e.WireCode()
	}
	return wireCode[KindServer]
}
