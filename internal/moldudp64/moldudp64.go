// Package moldudp64 implements MoldUDP64 framing (spec §4.10): packing
// a stream of encoded ITCH messages into MTU-safe UDP datagrams with a
// global, monotonic, per-message sequence number.
package moldudp64

import (
	"encoding/binary"
)

// HeaderSize is the fixed 20-byte MoldUDP64 datagram header.
const HeaderSize = 20

// DefaultMTU is the default MTU-safe payload cap (spec §4.10).
const DefaultMTU = 1400

// Framer accumulates encoded messages into datagrams no larger than
// MTU bytes. It owns the global sequence number and the in-progress
// datagram buffer; it is not safe for concurrent use.
type Framer struct {
	sessionID [10]byte
	mtu       int
	onSend    func([]byte)

	nextSeq    uint64 // sequence number of the first message in the current datagram
	pending    [][]byte
	pendingLen int // running payload size of pending, including per-message length prefixes
}

// NewFramer builds a Framer for sessionID (space-padded or truncated
// to 10 bytes) and mtu bytes per datagram (DefaultMTU if mtu <= 0).
// onSend, if non-nil, is invoked with each completed datagram instead
// of (or in addition to) relying on the return values of Push/Flush.
func NewFramer(sessionID string, mtu int, onSend func([]byte)) *Framer {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	f := &Framer{mtu: mtu, onSend: onSend, nextSeq: 1}
	copy(f.sessionID[:], padOrTruncate(sessionID, 10))
	return f
}

func padOrTruncate(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	buf := make([]byte, n)
	copy(buf, s)
	for i := len(s); i < n; i++ {
		buf[i] = ' '
	}
	return string(buf)
}

// messageOverhead is the 2-byte big-endian length prefix preceding
// each message block.
const messageOverhead = 2

// Push appends one encoded message to the current datagram. If the
// message would overflow the MTU cap, the current datagram is first
// emitted (returned and/or passed to onSend) and a new one begun.
// Messages are never split across datagrams (spec §4.10).
func (f *Framer) Push(msg []byte) []byte {
	need := messageOverhead + len(msg)
	var emitted []byte
	if len(f.pending) > 0 && HeaderSize+f.pendingLen+need > f.mtu {
		emitted = f.emit()
	}
	f.pending = append(f.pending, msg)
	f.pendingLen += need
	return emitted
}

// Flush returns the partially-filled datagram, which may be empty if
// there is nothing pending.
func (f *Framer) Flush() []byte {
	if len(f.pending) == 0 {
		return nil
	}
	return f.emit()
}

func (f *Framer) emit() []byte {
	count := len(f.pending)
	buf := make([]byte, HeaderSize, HeaderSize+f.pendingLen)
	copy(buf[0:10], f.sessionID[:])
	binary.BigEndian.PutUint64(buf[10:18], f.nextSeq)
	binary.BigEndian.PutUint16(buf[18:20], uint16(count))

	for _, msg := range f.pending {
		lenBuf := make([]byte, messageOverhead)
		binary.BigEndian.PutUint16(lenBuf, uint16(len(msg)))
		buf = append(buf, lenBuf...)
		buf = append(buf, msg...)
	}

	f.nextSeq += uint64(count)
	f.pending = nil
	f.pendingLen = 0

	if f.onSend != nil {
		f.onSend(buf)
	}
	return buf
}

// NextSequence returns the sequence number that will be assigned to
// the next message pushed, for persistence between runs.
func (f *Framer) NextSequence() uint64 { return f.nextSeq }

// SetNextSequence overrides the next sequence number, letting a
// resumed session continue a persisted global counter.
func (f *Framer) SetNextSequence(next uint64) { f.nextSeq = next }
