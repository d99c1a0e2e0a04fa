// Package wire composes an ITCH encoder and a MoldUDP64 framer over a
// UDP socket into the NetworkWireSink variant of EventSink (spec
// §4.7): on Append, encode the event, hand the bytes to the framer,
// and transmit any datagram the framer completes.
package wire

import (
	"fmt"
	"log/slog"
	"net"

	"qrsdp/internal/itch"
	"qrsdp/internal/moldudp64"
	"qrsdp/pkg/types"
)

// NetworkWireSink is the spec §4.7 NetworkWireSink: encode -> frame ->
// transmit. It owns the UDP connection; Close releases it.
type NetworkWireSink struct {
	encoder *itch.Encoder
	framer  *moldudp64.Framer
	conn    net.Conn
}

// Dial opens a UDP connection to addr (host:port, may be a multicast
// group) and wires up encoder/framer around it. Each datagram the
// framer produces is written to the socket immediately via the
// framer's onSend callback.
func Dial(addr string, encoder *itch.Encoder, sessionID string, mtu int) (*NetworkWireSink, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("wire: dial %s: %w", addr, err)
	}
	s := &NetworkWireSink{encoder: encoder, conn: conn}
	s.framer = moldudp64.NewFramer(sessionID, mtu, func(datagram []byte) {
		// best-effort UDP send; spec §4.7 does not define wire-level retry,
		// so a failed send is logged and the datagram dropped.
		if _, err := s.conn.Write(datagram); err != nil {
			slog.Warn("wire: udp send failed, datagram dropped", "addr", addr, "error", err)
		}
	})
	return s, nil
}

// Append encodes r and pushes it into the framer, which may cause a
// completed datagram to be transmitted.
func (s *NetworkWireSink) Append(r types.EventRecord) error {
	msg, err := s.encoder.Encode(r)
	if err != nil {
		return fmt.Errorf("wire: encode: %w", err)
	}
	s.framer.Push(msg)
	return nil
}

// SendStartOfSession frames the ITCH System Event ("start of system",
// spec §3.9 supplement) and Stock Directory messages for this sink's
// symbol, ahead of the first book event. Real ITCH 5.0 feeds always
// open a session this way; SessionRunner calls this once per (security,
// day) before handing events to the producer.
func (s *NetworkWireSink) SendStartOfSession(tsNs uint64) {
	s.framer.Push(s.encoder.EncodeSystemEvent(tsNs, itch.EventCodeStartOfSystem))
	s.framer.Push(s.encoder.EncodeStockDirectory(tsNs))
}

// Flush transmits any partially-filled datagram.
func (s *NetworkWireSink) Flush() error {
	s.framer.Flush()
	return nil
}

// Close flushes and closes the underlying UDP socket.
func (s *NetworkWireSink) Close() error {
	s.framer.Flush()
	return s.conn.Close()
}

// SetCounters resumes both the ITCH match-number counter and the
// MoldUDP64 sequence-number counter from a previously persisted state
// (internal/store), so a multi-day run's wire numbering stays
// monotonic across process restarts.
func (s *NetworkWireSink) SetCounters(matchNumber, sequence uint64) {
	s.encoder.SetMatchNumber(matchNumber)
	s.framer.SetNextSequence(sequence)
}

// NextCounters returns the encoder's next match number and the
// framer's next sequence number, for persistence via internal/store.
func (s *NetworkWireSink) NextCounters() (matchNumber, sequence uint64) {
	return s.encoder.NextMatchNumber(), s.framer.NextSequence()
}
