package transport

import (
	"encoding/binary"
	"fmt"
	"net"
)

// EventWriter announces card-inserted/removed transitions on the
// write-only event channel described in spec.md section 6.
type EventWriter struct {
	conn net.Conn
}

// NewEventWriter wraps conn as an EventWriter.
func NewEventWriter(conn net.Conn) *EventWriter {
	return &EventWriter{conn: conn}
}

// Inserted announces card-inserted (event value 1) and updates srv's
// present flag so subsequent reset/get-ATR calls on the data channel
// reflect it.
func (w *EventWriter) Inserted(srv *Server) error {
	srv.SetPresent(true)
	return w.write(EventCardInserted)
}

// Removed announces card-removed (event value 0) and updates srv's
// present flag.
func (w *EventWriter) Removed(srv *Server) error {
	srv.SetPresent(false)
	return w.write(EventCardRemoved)
}

func (w *EventWriter) write(event uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], event)
	if _, err := w.conn.Write(buf[:]); err != nil {
		return fmt.Errorf("transport: write event: %w", err)
	}
	return nil
}
