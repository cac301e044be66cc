package hints

import (
	"net"
	"sort"
	"time"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/log"
	"github.com/ringkeep/ringnode/pkg/transport"
)

// ReplayIdleTimeout bounds how long the hints receiver waits for the next
// hint frame before deciding the sender is done streaming (spec 4.7/4.10:
// HINTED_HANDOFF_TIMEOUT_SECS).
const ReplayIdleTimeout = 30 * time.Second

var finishedSentinel = []byte("FINISHED")

const ackByte = 0x01

// Apply executes one replayed hint against local storage.
type Apply func(Hint) error

// Receiver serves the hints-receiver port (spec 6): a peer holding hints
// for this node dials in and streams StoredQuery records in timestamp
// order, each ACKed, then either sends the FINISHED sentinel or falls
// idle. Either way the receiver applies every hint it collected, sorted
// by timestamp, and, if it received at least one hint, invokes OnComplete
// so the caller can mark itself Active again (spec 4.10).
type Receiver struct {
	Apply      Apply
	OnComplete func() error
}

// Serve accepts replay connections on ln until it is closed.
func (r *Receiver) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return errs.Server(err, "accepting hints replay connection")
		}
		go func() {
			defer conn.Close()
			if err := r.handle(conn); err != nil {
				log.Errorf("hints receiver: handling replay stream", err)
			}
		}()
	}
}

func (r *Receiver) handle(conn net.Conn) error {
	var received []Hint
	for {
		_ = conn.SetReadDeadline(time.Now().Add(ReplayIdleTimeout))
		data, err := transport.ReadFrame(conn)
		if err != nil {
			break // idle timeout or sender closed: treat the stream as complete
		}
		if string(data) == string(finishedSentinel) {
			break
		}
		hint, err := decodeHintLine(data)
		if err != nil {
			return err
		}
		received = append(received, hint)
		if err := transport.WriteFrame(conn, []byte{ackByte}); err != nil {
			return err
		}
	}

	sort.SliceStable(received, func(i, j int) bool { return received[i].TimestampMs < received[j].TimestampMs })
	for _, h := range received {
		if err := r.Apply(h); err != nil {
			log.Errorf("hints receiver: applying replayed hint", err)
		}
	}
	if len(received) == 0 || r.OnComplete == nil {
		return nil
	}
	return r.OnComplete()
}

// Sender streams one peer's queued hints to its hints-receiver port,
// expecting a per-hint ACK, then sends the FINISHED sentinel and clears
// the local log once the peer has ACKed every one.
type Sender struct {
	Store *Store
}

// Send streams pending (already loaded, timestamp-ordered) hints for ip
// over conn and clears ip's log on success.
func (s *Sender) Send(conn net.Conn, ip string, pending []Hint) error {
	for _, h := range pending {
		data, err := encodeHintLine(h)
		if err != nil {
			return err
		}
		if err := transport.WriteFrame(conn, data); err != nil {
			return errs.Server(err, "streaming hint to %s", ip)
		}
		ack, err := transport.ReadFrame(conn)
		if err != nil {
			return errs.Server(err, "waiting for hint ack from %s", ip)
		}
		if len(ack) != 1 || ack[0] != ackByte {
			return errs.Server(nil, "unexpected hint ack from %s", ip)
		}
	}
	if err := transport.WriteFrame(conn, finishedSentinel); err != nil {
		return errs.Server(err, "sending replay-finished sentinel to %s", ip)
	}
	return s.Store.Clear(ip)
}
