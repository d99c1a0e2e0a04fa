// Package types defines the shared data structures used across every
// package in the simulator.
//
// This is the common vocabulary for the generator — event types, the
// in-memory and on-disk event record shapes, and the book/intensity
// value types that flow between the book, the intensity model, and the
// samplers. It has no dependencies on internal packages so it can be
// imported by any layer.
package types

import (
	"encoding/binary"
	"fmt"
)

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// EventType is the closed enumeration of book events the generator can emit.
type EventType uint8

const (
	AddBid EventType = iota
	AddAsk
	CancelBid
	CancelAsk
	ExecuteBuy
	ExecuteSell
)

// NumEventTypes is the width of the fixed scan order used by the sampler.
const NumEventTypes = 6

func (t EventType) String() string {
	switch t {
	case AddBid:
		return "ADD_BID"
	case AddAsk:
		return "ADD_ASK"
	case CancelBid:
		return "CANCEL_BID"
	case CancelAsk:
		return "CANCEL_ASK"
	case ExecuteBuy:
		return "EXECUTE_BUY"
	case ExecuteSell:
		return "EXECUTE_SELL"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(t))
	}
}

// IsBid reports whether the event type acts on the bid side of the book.
func (t EventType) IsBid() bool {
	return t == AddBid || t == CancelBid || t == ExecuteSell
}

// Side identifies a book side, or the absence of one for control messages.
type Side uint8

const (
	SideNA Side = iota
	SideBid
	SideAsk
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "BID"
	case SideAsk:
		return "ASK"
	default:
		return "NA"
	}
}

// ————————————————————————————————————————————————————————————————————————
// Event records
// ————————————————————————————————————————————————————————————————————————

// EventFlag is a bitmask of producer-only annotations. Flags never reach
// disk: DiskEventRecord has no flags field (spec invariant record_size==26).
type EventFlag uint8

const (
	// FlagShift marks that applying this event forced a price-level shift.
	FlagShift EventFlag = 1 << iota
	// FlagReinit marks that this event followed a book reinitialisation.
	FlagReinit
)

// EventRecord is the in-memory, 30-byte-logical representation of one
// generated book event.
type EventRecord struct {
	TsNs        uint64
	Type        EventType
	Side        Side
	PriceTicks  int32
	Qty         uint32
	OrderID     uint64
	Flags       EventFlag
}

// ToDisk strips the in-memory-only Flags field, producing the exact
// record persisted in a .qrsdp chunk.
func (e EventRecord) ToDisk() DiskEventRecord {
	return DiskEventRecord{
		TsNs:       e.TsNs,
		Type:       e.Type,
		Side:       e.Side,
		PriceTicks: e.PriceTicks,
		Qty:        e.Qty,
		OrderID:    e.OrderID,
	}
}

// DiskEventRecordSize is the packed, little-endian on-disk size in bytes.
const DiskEventRecordSize = 26

// DiskEventRecord is the 26-byte packed on-disk layout of an EventRecord,
// with Flags stripped. Field order and widths are a normative invariant
// of the .qrsdp format (spec §6.2): ts_ns 8, type 1, side 1,
// price_ticks 4 signed, qty 4, order_id 8.
type DiskEventRecord struct {
	TsNs       uint64
	Type       EventType
	Side       Side
	PriceTicks int32
	Qty        uint32
	OrderID    uint64
}

// MarshalBinary encodes the record in the packed little-endian layout.
func (d DiskEventRecord) MarshalBinary() []byte {
	buf := make([]byte, DiskEventRecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], d.TsNs)
	buf[8] = byte(d.Type)
	buf[9] = byte(d.Side)
	binary.LittleEndian.PutUint32(buf[10:14], uint32(d.PriceTicks))
	binary.LittleEndian.PutUint32(buf[14:18], d.Qty)
	binary.LittleEndian.PutUint64(buf[18:26], d.OrderID)
	return buf
}

// UnmarshalDiskEventRecord decodes one packed record starting at offset 0
// of buf, which must be at least DiskEventRecordSize bytes.
func UnmarshalDiskEventRecord(buf []byte) (DiskEventRecord, error) {
	if len(buf) < DiskEventRecordSize {
		return DiskEventRecord{}, fmt.Errorf("disk event record: short buffer (%d < %d)", len(buf), DiskEventRecordSize)
	}
	return DiskEventRecord{
		TsNs:       binary.LittleEndian.Uint64(buf[0:8]),
		Type:       EventType(buf[8]),
		Side:       Side(buf[9]),
		PriceTicks: int32(binary.LittleEndian.Uint32(buf[10:14])),
		Qty:        binary.LittleEndian.Uint32(buf[14:18]),
		OrderID:    binary.LittleEndian.Uint64(buf[18:26]),
	}, nil
}

// ————————————————————————————————————————————————————————————————————————
// Book-derived value types
// ————————————————————————————————————————————————————————————————————————

// BookFeatures is the O(1) derived summary of a book used by the
// SimpleImbalance intensity model and the attribute sampler.
type BookFeatures struct {
	BestBid      int32
	BestAsk      int32
	SpreadTicks  int32
	BestBidDepth uint32
	BestAskDepth uint32
	Imbalance    float64 // (bidDepth - askDepth) / (bidDepth + askDepth), in [-1, 1]
}

// TotalBidDepth and TotalAskDepth are methods on BookState rather than
// fields of BookFeatures because they sum the full per-level depth
// vectors.

// LevelState is one (price, depth) slot on one side of the book.
type LevelState struct {
	PriceTicks int32
	Depth      uint32
}

// BookState is BookFeatures plus the full per-level depth vectors,
// consumed by both intensity models.
type BookState struct {
	BookFeatures
	Bids []LevelState // index 0 = best bid, highest price first
	Asks []LevelState // index 0 = best ask, lowest price first
}

// TotalBidDepth sums depth across all tracked bid levels.
func (s BookState) TotalBidDepth() uint32 {
	var total uint32
	for _, l := range s.Bids {
		total += l.Depth
	}
	return total
}

// TotalAskDepth sums depth across all tracked ask levels.
func (s BookState) TotalAskDepth() uint32 {
	var total uint32
	for _, l := range s.Asks {
		total += l.Depth
	}
	return total
}

// ————————————————————————————————————————————————————————————————————————
// Intensities
// ————————————————————————————————————————————————————————————————————————

// EpsilonGuard is the tiny positive floor every intensity component is
// clamped to, preventing sampler division-by-zero (spec §3.1).
const EpsilonGuard = 1e-9

// Intensities holds the six event-type arrival rates in events/second.
type Intensities struct {
	AddBid     float64
	AddAsk     float64
	CancelBid  float64
	CancelAsk  float64
	ExecBuy    float64
	ExecSell   float64
}

// Total returns the sum of all six components.
func (in Intensities) Total() float64 {
	return in.AddBid + in.AddAsk + in.CancelBid + in.CancelAsk + in.ExecBuy + in.ExecSell
}

// ByType returns the rate for one event type, in the fixed scan order
// ADD_BID, ADD_ASK, CANCEL_BID, CANCEL_ASK, EXECUTE_BUY, EXECUTE_SELL.
func (in Intensities) ByType(t EventType) float64 {
	switch t {
	case AddBid:
		return in.AddBid
	case AddAsk:
		return in.AddAsk
	case CancelBid:
		return in.CancelBid
	case CancelAsk:
		return in.CancelAsk
	case ExecuteBuy:
		return in.ExecBuy
	case ExecuteSell:
		return in.ExecSell
	default:
		return 0
	}
}

// Clamped returns a copy with every component clamped to be finite and
// >= EpsilonGuard, per spec §4.3's clamping requirement.
func (in Intensities) Clamped() Intensities {
	clamp := func(v float64) float64 {
		if v != v || v < 0 { // NaN or negative
			return EpsilonGuard
		}
		if v > 1e18 { // guard against +Inf and absurd blow-ups
			return 1e18
		}
		if v < EpsilonGuard {
			return EpsilonGuard
		}
		return v
	}
	return Intensities{
		AddBid:    clamp(in.AddBid),
		AddAsk:    clamp(in.AddAsk),
		CancelBid: clamp(in.CancelBid),
		CancelAsk: clamp(in.CancelAsk),
		ExecBuy:   clamp(in.ExecBuy),
		ExecSell:  clamp(in.ExecSell),
	}
}
