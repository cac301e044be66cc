package gossip

import (
	"crypto/tls"
	"encoding/json"
	"net"

	"github.com/ringkeep/ringnode/pkg/cluster"
	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/log"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/transport"
)

// SeedListener accepts one-shot bootstrap connections from a node that is
// joining the ring: it receives the new node's record, appends it to the
// local view, and replies with the full current membership so the
// booting node can build its own ring.
type SeedListener struct {
	Store     *cluster.Store
	ServerTLS *tls.Config
}

// Serve blocks accepting connections on addr until the listener errors or
// ctx-driven shutdown closes it (closing the net.Listener unblocks
// Accept).
func (s *SeedListener) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return errs.Server(err, "accepting seed connection")
		}
		go func() {
			if err := s.handle(conn); err != nil {
				log.Errorf("seed listener: handling bootstrap request", err)
			}
		}()
	}
}

func (s *SeedListener) handle(conn net.Conn) error {
	defer conn.Close()

	data, err := transport.ReadFrame(conn)
	if err != nil {
		return err
	}
	var newNode model.Node
	if err := json.Unmarshal(data, &newNode); err != nil {
		return errs.Server(err, "decoding bootstrap node record")
	}

	view, err := s.Store.Read()
	if err != nil {
		return err
	}
	reply, err := json.Marshal(view.AllNodes())
	if err != nil {
		return errs.Server(err, "encoding membership reply")
	}
	if err := transport.WriteFrame(conn, reply); err != nil {
		return err
	}

	view.OtherNodes = append(view.OtherNodes, newNode)
	return s.Store.Write(view.WithRecomputedRanges())
}

// Join is the booting side of the handshake: it sends its own Node record
// to a seed and returns the full membership view the seed replied with.
func Join(addr string, clientTLS *tls.Config, self model.Node) ([]model.Node, error) {
	conn, err := transport.Dial(addr, clientTLS)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	payload, err := json.Marshal(self)
	if err != nil {
		return nil, errs.Server(err, "encoding bootstrap node record")
	}
	if err := transport.WriteFrame(conn, payload); err != nil {
		return nil, err
	}

	data, err := transport.ReadFrame(conn)
	if err != nil {
		return nil, err
	}
	var nodes []model.Node
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, errs.Server(err, "decoding membership reply")
	}
	return nodes, nil
}
