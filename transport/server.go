// Package transport implements the virtual-reader framing described in
// spec.md section 6: two byte-stream channels (data and events), both
// using 32-bit little-endian length-prefixed framing, driving a
// *card.Card. This is the external-collaborator transport named as
// out-of-scope for the protocol core in spec.md section 1, implemented
// here because a complete repository needs it to actually run.
//
// Grounded on the teacher's GOOS-split listener pattern
// (piv/pcsc_darwin.go, piv/pcsc_linux.go, piv/pcsc_unix_no_cgo.go, all
// providing the same unexported constructor under a different build
// constraint) and piv/pcsc_trace.go's hook-struct style, adapted here
// from "hooks observing an outbound call" to "an event channel announcing
// card presence".
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/go-pivert/pivert/card"
	"github.com/go-pivert/pivert/pivlog"
)

// Data channel commands, spec.md section 6.
const (
	cmdReset  uint32 = 0x00000000
	cmdGetATR uint32 = 0x00000001
	cmdAPDU   uint32 = 0x00000002
)

// Event channel values, spec.md section 6.
const (
	EventCardRemoved uint32 = 0
	EventCardInserted uint32 = 1
)

// Server frames reset/get-ATR/APDU requests off a data connection and
// drives card against them, while independently announcing card presence
// on an event connection.
type Server struct {
	card    *card.Card
	log     pivlog.Logger
	present bool

	mu sync.Mutex
}

// NewServer returns a Server wrapping c. present seeds whether a card is
// considered inserted at startup; reset/get-ATR reply with length 0 when
// no card is present, per spec.md section 6.
func NewServer(c *card.Card, present bool, log pivlog.Logger) *Server {
	return &Server{card: c, present: present, log: pivlog.Nop(log)}
}

// SetPresent updates whether the emulated card is considered inserted,
// for a caller driving card-inserted/removed events externally.
func (s *Server) SetPresent(present bool) {
	s.mu.Lock()
	s.present = present
	s.mu.Unlock()
}

// ServeData reads framed commands from conn until it errors or EOF,
// writing framed replies back to the same connection. It is expected to
// run in its own goroutine, one per connection; the transport guarantees
// only one command is ever in flight per connection at a time, matching
// spec.md section 5's single-threaded-per-session scheduling model.
func (s *Server) ServeData(conn net.Conn) error {
	for {
		cmd, err := readUint32(conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("transport: read command: %w", err)
		}

		switch cmd {
		case cmdReset:
			if err := s.replyATR(conn, s.card.Reset(true)); err != nil {
				return err
			}
		case cmdGetATR:
			if err := s.replyATR(conn, s.card.ATR()); err != nil {
				return err
			}
		case cmdAPDU:
			if err := s.serveAPDU(conn); err != nil {
				return err
			}
		default:
			s.log.ErrorMsgf(nil, "transport: unknown data-channel command %d", cmd)
			return fmt.Errorf("transport: unknown data-channel command %d", cmd)
		}
	}
}

func (s *Server) replyATR(conn net.Conn, atr []byte) error {
	s.mu.Lock()
	present := s.present
	s.mu.Unlock()
	if !present {
		return writeFrame(conn, nil)
	}
	return writeFrame(conn, atr)
}

func (s *Server) serveAPDU(conn net.Conn) error {
	raw, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("transport: read APDU frame: %w", err)
	}
	resp := s.card.ProcessAPDU(raw)
	return writeFrame(conn, resp)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readFrame(r io.Reader) ([]byte, error) {
	length, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, body []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("transport: write frame length: %w", err)
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("transport: write frame body: %w", err)
	}
	return nil
}
