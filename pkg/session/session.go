// Package session implements the client connection's finite-state
// machine: Fresh -> Authenticating -> Authorized -> Shutdown (spec 4.1).
// Each state accepts a fixed subset of opcodes; anything else is a
// ProtocolError.
package session

import (
	"github.com/google/uuid"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/wire"
)

// State is one phase of the connection FSM.
type State int

const (
	Fresh State = iota
	Authenticating
	Authorized
	Shutdown
)

// Session wraps a model.ClientSession with the connection-level state
// machine and the opcode legality rules around it.
type Session struct {
	State State
	Client model.ClientSession
}

// New creates a session with a random client id, in the Fresh state.
func New() *Session {
	return &Session{
		State:  Fresh,
		Client: model.ClientSession{ID: uuid.NewString()},
	}
}

// Allow reports whether opcode is legal in the session's current state,
// returning a ProtocolError describing the violation otherwise.
func (s *Session) Allow(op wire.Opcode) error {
	switch s.State {
	case Fresh:
		if op == wire.OpStartup || op == wire.OpOptions {
			return nil
		}
	case Authenticating:
		if op == wire.OpAuthResponse || op == wire.OpCredentials {
			return nil
		}
	case Authorized:
		if op == wire.OpQuery || op == wire.OpOptions {
			return nil
		}
	case Shutdown:
		return errs.Protocol("connection is shutting down")
	}
	return errs.Protocol("opcode %d is not valid in state %v", op, s.State)
}

// Startup transitions Fresh -> Authenticating (no-auth deployments may
// skip straight to Authorized via AllowAnonymous).
func (s *Session) Startup() {
	s.State = Authenticating
}

// Authorize transitions Authenticating -> Authorized after credentials
// validate, and marks the client session authorized.
func (s *Session) Authorize() {
	s.Client.Authorized = true
	s.State = Authorized
}

// AllowAnonymous transitions straight to Authorized when the node runs
// without an authenticator configured.
func (s *Session) AllowAnonymous() {
	s.Client.Authorized = true
	s.State = Authorized
}

// Close transitions to Shutdown; no further frames are processed.
func (s *Session) Close() {
	s.State = Shutdown
}

func (st State) String() string {
	switch st {
	case Fresh:
		return "Fresh"
	case Authenticating:
		return "Authenticating"
	case Authorized:
		return "Authorized"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}
