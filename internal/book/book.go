// Package book implements the counts-only, K-level limit order book
// (spec §4.2). Bids are ordered highest-price first (index 0 = best
// bid); asks are ordered lowest-price first (index 0 = best ask).
//
// Book is the Producer's sole mutable market-state dependency; it is
// never shared across goroutines (spec §5 — one book per security
// worker).
package book

import (
	"errors"
	"fmt"

	"qrsdp/internal/rng"
	"qrsdp/pkg/types"
)

// ErrInvariantViolation marks an apply that would have broken a book
// invariant (bid < ask, spread >= 1, K levels, depth >= 0). The book is
// left unchanged; the caller treats this as spec §7's InvariantViolation
// and stops the current session.
var ErrInvariantViolation = errors.New("book: invariant violation")

// level is one (price, depth) slot on one side of the book.
type level struct {
	price int32
	depth uint32
}

// Book is a per-side ordered sequence of levels with shift mechanics.
type Book struct {
	k            int
	bids         []level // index 0 = best bid
	asks         []level // index 0 = best ask
	source       *rng.Source
	initialDepth uint32 // the session's constant refill basis, set by Seed
}

// New creates an empty book for K levels per side. Call Seed before
// use.
func New(k int, source *rng.Source) *Book {
	return &Book{k: k, source: source}
}

// Seed initialises K bid and K ask levels around p0Ticks with the
// given exact spread and per-level depth (spec §4.2). The "exact
// spread" interpretation is normative here: bestAsk - bestBid ==
// initialSpread always, never merely a floor.
func (b *Book) Seed(p0Ticks int32, initialSpread int32, initialDepth uint32) {
	if initialSpread < 1 {
		initialSpread = 1
	}
	halfUp := initialSpread / 2
	if initialSpread%2 != 0 {
		halfUp++
	}

	bestBid := p0Ticks - halfUp
	bestAsk := bestBid + initialSpread

	b.initialDepth = initialDepth
	b.bids = make([]level, b.k)
	b.asks = make([]level, b.k)
	for i := 0; i < b.k; i++ {
		b.bids[i] = level{price: bestBid - int32(i), depth: initialDepth}
		b.asks[i] = level{price: bestAsk + int32(i), depth: initialDepth}
	}
}

// K returns the configured number of levels per side.
func (b *Book) K() int { return b.k }

// BestBid returns the current best bid price in ticks.
func (b *Book) BestBid() int32 { return b.bids[0].price }

// BestAsk returns the current best ask price in ticks.
func (b *Book) BestAsk() int32 { return b.asks[0].price }

// MidTicks returns floor((bestBid + bestAsk) / 2).
func (b *Book) MidTicks() int32 {
	return int32((int64(b.BestBid()) + int64(b.BestAsk())) / 2)
}

// Features derives the O(1) BookFeatures summary (spec §3.1).
func (b *Book) Features() types.BookFeatures {
	bid, ask := b.bids[0], b.asks[0]
	var imbalance float64
	total := float64(bid.depth) + float64(ask.depth)
	if total > 0 {
		imbalance = (float64(bid.depth) - float64(ask.depth)) / total
	}
	return types.BookFeatures{
		BestBid:      bid.price,
		BestAsk:      ask.price,
		SpreadTicks:  ask.price - bid.price,
		BestBidDepth: bid.depth,
		BestAskDepth: ask.depth,
		Imbalance:    imbalance,
	}
}

// State derives the full BookState including per-level depth vectors,
// used by the CurveIntensity model.
func (b *Book) State() types.BookState {
	bids := make([]types.LevelState, len(b.bids))
	for i, l := range b.bids {
		bids[i] = types.LevelState{PriceTicks: l.price, Depth: l.depth}
	}
	asks := make([]types.LevelState, len(b.asks))
	for i, l := range b.asks {
		asks[i] = types.LevelState{PriceTicks: l.price, Depth: l.depth}
	}
	return types.BookState{BookFeatures: b.Features(), Bids: bids, Asks: asks}
}

// checkInvariants validates the post-condition every Apply must leave
// the book in (spec §4.2, §8).
func (b *Book) checkInvariants() error {
	if len(b.bids) != b.k || len(b.asks) != b.k {
		return fmt.Errorf("%w: expected %d levels per side, got bids=%d asks=%d", ErrInvariantViolation, b.k, len(b.bids), len(b.asks))
	}
	if b.bids[0].price >= b.asks[0].price {
		return fmt.Errorf("%w: best bid %d >= best ask %d", ErrInvariantViolation, b.bids[0].price, b.asks[0].price)
	}
	if b.asks[0].price-b.bids[0].price < 1 {
		return fmt.Errorf("%w: spread < 1 tick", ErrInvariantViolation)
	}
	for _, l := range b.bids {
		if int32(l.depth) < 0 {
			return fmt.Errorf("%w: negative bid depth", ErrInvariantViolation)
		}
	}
	for _, l := range b.asks {
		if int32(l.depth) < 0 {
			return fmt.Errorf("%w: negative ask depth", ErrInvariantViolation)
		}
	}
	return nil
}

// ApplyResult reports what Apply did, so the Producer can set the
// in-memory-only shift flag on its EventRecord (spec §3.1).
type ApplyResult struct {
	Shifted bool
}

// Apply mutates the book for one event, per the per-event-type rules
// of spec §4.2. If applying the event would violate a book invariant,
// the book is left unchanged and ErrInvariantViolation is returned.
func (b *Book) Apply(t types.EventType, priceTicks int32, qty uint32, depthRefill DepthRefillFunc) (ApplyResult, error) {
	snapshot := b.snapshot()

	var result ApplyResult
	var err error
	switch t {
	case types.AddBid:
		b.applyAdd(&b.bids, priceTicks, qty, true)
	case types.AddAsk:
		b.applyAdd(&b.asks, priceTicks, qty, false)
	case types.CancelBid:
		result.Shifted, err = b.applyCancel(&b.bids, priceTicks, qty, true, depthRefill)
	case types.CancelAsk:
		result.Shifted, err = b.applyCancel(&b.asks, priceTicks, qty, false, depthRefill)
	case types.ExecuteBuy:
		result.Shifted, err = b.applyExecute(&b.asks, qty, false, depthRefill)
	case types.ExecuteSell:
		result.Shifted, err = b.applyExecute(&b.bids, qty, true, depthRefill)
	default:
		err = fmt.Errorf("book: unknown event type %v", t)
	}
	if err == nil {
		err = b.checkInvariants()
	}
	if err != nil {
		b.restore(snapshot)
		return ApplyResult{}, err
	}
	return result, nil
}

type bookSnapshot struct {
	bids []level
	asks []level
}

func (b *Book) snapshot() bookSnapshot {
	return bookSnapshot{
		bids: append([]level(nil), b.bids...),
		asks: append([]level(nil), b.asks...),
	}
}

func (b *Book) restore(s bookSnapshot) {
	b.bids = s.bids
	b.asks = s.asks
}

// applyAdd implements ADD_BID/ADD_ASK (spec §4.2): match an existing
// level, prepend a better inside quote, or ignore a worse-than-worst
// price.
func (b *Book) applyAdd(levels *[]level, price int32, qty uint32, isBid bool) {
	ls := *levels
	for i := range ls {
		if ls[i].price == price {
			ls[i].depth += qty
			return
		}
	}

	better := func(p int32) bool {
		if isBid {
			return p > ls[0].price
		}
		return p < ls[0].price
	}
	if better(price) {
		newLevels := make([]level, len(ls))
		newLevels[0] = level{price: price, depth: qty}
		copy(newLevels[1:], ls[:len(ls)-1])
		*levels = newLevels
		return
	}
	// Worse than the last tracked level: outside the modelled depth
	// window, ignore per spec §4.2.
}

// applyCancel implements CANCEL_BID/CANCEL_ASK (spec §4.2): decrement
// by min(depth, qty); zeroing a non-best level leaves it tracked at
// zero; zeroing the best level triggers a shift.
func (b *Book) applyCancel(levels *[]level, price int32, qty uint32, isBid bool, refill DepthRefillFunc) (bool, error) {
	ls := *levels
	idx := -1
	for i := range ls {
		if ls[i].price == price {
			idx = i
			break
		}
	}
	if idx == -1 {
		// No-op: cancelling a price that isn't tracked.
		return false, nil
	}
	dec := qty
	if dec > ls[idx].depth {
		dec = ls[idx].depth
	}
	ls[idx].depth -= dec

	if idx == 0 && ls[idx].depth == 0 {
		b.shift(levels, isBid, refill)
		return true, nil
	}
	return false, nil
}

// applyExecute implements EXECUTE_BUY/EXECUTE_SELL (spec §4.2):
// decrement the opposite side's best depth; zero triggers a shift.
func (b *Book) applyExecute(levels *[]level, qty uint32, isBid bool, refill DepthRefillFunc) (bool, error) {
	ls := *levels
	dec := qty
	if dec > ls[0].depth {
		dec = ls[0].depth
	}
	ls[0].depth -= dec
	if ls[0].depth == 0 {
		b.shift(levels, isBid, refill)
		return true, nil
	}
	return false, nil
}

// DepthRefillFunc draws the depth for the newly fabricated outermost
// level on a shift. See DESIGN.md for the Poisson-vs-constant choice
// (spec §9 Open Questions): this module defaults to Poisson via
// PoissonRefill, but a ConstantRefill is also provided and the choice
// is injected so tests can fix either behavior.
type DepthRefillFunc func(initialDepth uint32) uint32

// shift drops level 0, shifts the remaining levels toward the best
// price by one index, and fabricates a new outermost level (spec
// §4.2's shift mechanics).
func (b *Book) shift(levels *[]level, isBid bool, refill DepthRefillFunc) {
	ls := *levels
	worst := ls[len(ls)-1]
	newPrice := worst.price - 1
	if !isBid {
		newPrice = worst.price + 1
	}

	newLevels := make([]level, len(ls))
	copy(newLevels, ls[1:])
	depth := b.initialDepth
	if refill != nil {
		depth = refill(b.initialDepth)
	}
	newLevels[len(newLevels)-1] = level{price: newPrice, depth: depth}
	*levels = newLevels
}

// PoissonRefill draws the new outermost level's depth as
// min(initialDepth, Poisson(initialDepth)), the richer of the two
// documented refill policies (spec §4.2, §9).
func PoissonRefill(source *rng.Source) DepthRefillFunc {
	return func(initialDepth uint32) uint32 {
		if initialDepth == 0 {
			return 0
		}
		drawn := source.Poisson(float64(initialDepth))
		if drawn < initialDepth {
			return drawn
		}
		return initialDepth
	}
}

// ConstantRefill always refills at exactly initialDepth.
func ConstantRefill() DepthRefillFunc {
	return func(initialDepth uint32) uint32 { return initialDepth }
}
