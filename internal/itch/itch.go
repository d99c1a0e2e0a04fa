// Package itch implements a NASDAQ ITCH 5.0 subset encoder (spec
// §4.9): Add Order, Order Delete, Order Executed, plus the System
// Event and Stock Directory control messages needed to open a session
// on the wire. All multi-byte integers are big-endian.
package itch

import (
	"encoding/binary"
	"errors"

	"qrsdp/pkg/types"
)

// ErrUnsupportedEvent is returned when an EventRecord's type has no
// ITCH mapping (there are none today, but Encode stays defensive as
// the event set grows).
var ErrUnsupportedEvent = errors.New("itch: unsupported event type")

const (
	msgSystemEvent     = 'S'
	msgStockDirectory  = 'R'
	msgAddOrder        = 'A'
	msgOrderDelete     = 'D'
	msgOrderExecuted   = 'E'

	// SystemEvent event codes (ITCH 5.0 §4.1).
	EventCodeStartOfMessages = 'O'
	EventCodeStartOfSystem   = 'S'
	EventCodeStartOfMarket   = 'Q'
	EventCodeEndOfMarket     = 'M'
	EventCodeEndOfSystem     = 'E'
	EventCodeEndOfMessages   = 'C'
)

// Encoder translates EventRecords into ITCH 5.0 wire messages for one
// symbol. It is stateful only in its match-number counter: a caller
// that needs determinism across a resume must persist and restore
// that counter itself (internal/store does this for SessionRunner).
type Encoder struct {
	stock       [8]byte
	stockLocate uint16
	tickSize    uint32
	matchNumber uint64
	tracking    uint16
}

// NewEncoder builds an Encoder for symbol (truncated or space-padded
// to exactly 8 characters), bound to stockLocate and tickSize. The
// match-number counter starts at 1 (spec §8: "strictly monotonic
// sequence starting at 1").
func NewEncoder(symbol string, stockLocate uint16, tickSize uint32) *Encoder {
	e := &Encoder{stockLocate: stockLocate, tickSize: tickSize, matchNumber: 1}
	copy(e.stock[:], padOrTruncate(symbol, 8))
	return e
}

// SetMatchNumber overrides the next match number to be assigned,
// letting a resumed session continue a persisted counter.
func (e *Encoder) SetMatchNumber(next uint64) { e.matchNumber = next }

// NextMatchNumber returns the match number that will be assigned to
// the next execution, for persistence between runs.
func (e *Encoder) NextMatchNumber() uint64 { return e.matchNumber }

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

// header writes the common 11-byte ITCH prefix: message type, stock
// locate, tracking number, and a 48-bit big-endian nanosecond
// timestamp (the real ITCH 5.0 layout every message type shares).
func (e *Encoder) header(msgType byte, tsNs uint64) []byte {
	buf := make([]byte, 11)
	buf[0] = msgType
	binary.BigEndian.PutUint16(buf[1:3], e.stockLocate)
	binary.BigEndian.PutUint16(buf[3:5], e.tracking)
	put48(buf[5:11], tsNs)
	return buf
}

// put48 writes the low 48 bits of v as big-endian.
func put48(buf []byte, v uint64) {
	buf[0] = byte(v >> 40)
	buf[1] = byte(v >> 32)
	buf[2] = byte(v >> 24)
	buf[3] = byte(v >> 16)
	buf[4] = byte(v >> 8)
	buf[5] = byte(v)
}

// EncodeSystemEvent builds the 12-byte System Event message that
// opens or closes a trading phase (spec §4.9, SPEC_FULL §4).
func (e *Encoder) EncodeSystemEvent(tsNs uint64, eventCode byte) []byte {
	buf := e.header(msgSystemEvent, tsNs)
	return append(buf, eventCode)
}

// EncodeStockDirectory builds the 39-byte Stock Directory message
// announcing this encoder's symbol (spec §4.9, SPEC_FULL §4). Fields
// beyond stock and locate are not modeled by this generator and are
// zero-filled.
func (e *Encoder) EncodeStockDirectory(tsNs uint64) []byte {
	buf := e.header(msgStockDirectory, tsNs)
	buf = append(buf, e.stock[:]...)
	buf = append(buf, make([]byte, 39-len(buf))...)
	return buf
}

// Encode dispatches an EventRecord to the matching ITCH message
// builder (spec §4.9's mapping table).
func (e *Encoder) Encode(r types.EventRecord) ([]byte, error) {
	switch r.Type {
	case types.AddBid, types.AddAsk:
		return e.encodeAdd(r), nil
	case types.CancelBid, types.CancelAsk:
		return e.encodeDelete(r), nil
	case types.ExecuteBuy, types.ExecuteSell:
		return e.encodeExecuted(r), nil
	default:
		return nil, ErrUnsupportedEvent
	}
}

// encodeAdd builds the 36-byte Add Order message.
func (e *Encoder) encodeAdd(r types.EventRecord) []byte {
	buf := e.header(msgAddOrder, r.TsNs)
	orderRef := make([]byte, 8)
	binary.BigEndian.PutUint64(orderRef, r.OrderID)
	buf = append(buf, orderRef...)

	side := byte('S')
	if r.Type == types.AddBid {
		side = 'B'
	}
	buf = append(buf, side)

	shares := make([]byte, 4)
	binary.BigEndian.PutUint32(shares, r.Qty)
	buf = append(buf, shares...)

	buf = append(buf, e.stock[:]...)

	price := make([]byte, 4)
	binary.BigEndian.PutUint32(price, uint32(r.PriceTicks)*e.tickSize)
	buf = append(buf, price...)

	return buf
}

// encodeDelete builds the 19-byte Order Delete message.
func (e *Encoder) encodeDelete(r types.EventRecord) []byte {
	buf := e.header(msgOrderDelete, r.TsNs)
	orderRef := make([]byte, 8)
	binary.BigEndian.PutUint64(orderRef, r.OrderID)
	return append(buf, orderRef...)
}

// encodeExecuted builds the 31-byte Order Executed message and
// advances the match-number counter.
func (e *Encoder) encodeExecuted(r types.EventRecord) []byte {
	buf := e.header(msgOrderExecuted, r.TsNs)

	orderRef := make([]byte, 8)
	binary.BigEndian.PutUint64(orderRef, r.OrderID)
	buf = append(buf, orderRef...)

	shares := make([]byte, 4)
	binary.BigEndian.PutUint32(shares, r.Qty)
	buf = append(buf, shares...)

	match := make([]byte, 8)
	binary.BigEndian.PutUint64(match, e.matchNumber)
	buf = append(buf, match...)
	e.matchNumber++

	return buf
}
