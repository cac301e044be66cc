package model

// ClientSession tracks one connected client's negotiated state across the
// lifetime of a CQL-framed TCP connection (spec 4.1 session FSM).
type ClientSession struct {
	ID         string
	Authorized bool
	Keyspace   *string
}

// UseKeyspace records the keyspace selected by a USE statement.
func (s *ClientSession) UseKeyspace(name string) {
	s.Keyspace = &name
}

// CurrentKeyspace returns the session's selected keyspace, or "" if none.
func (s *ClientSession) CurrentKeyspace() string {
	if s.Keyspace == nil {
		return ""
	}
	return *s.Keyspace
}
