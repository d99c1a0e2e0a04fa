package book

import (
	"testing"

	"qrsdp/internal/rng"
	"qrsdp/pkg/types"
)

func newSeededBook(t *testing.T) *Book {
	t.Helper()
	b := New(5, rng.NewSource(1))
	b.Seed(10000, 2, 5)
	return b
}

func checkInvariantsOK(t *testing.T, b *Book) {
	t.Helper()
	if b.BestBid() >= b.BestAsk() {
		t.Fatalf("bestBid %d >= bestAsk %d", b.BestBid(), b.BestAsk())
	}
	if b.BestAsk()-b.BestBid() < 1 {
		t.Fatalf("spread < 1")
	}
	if len(b.bids) != b.K() || len(b.asks) != b.K() {
		t.Fatalf("wrong level count: bids=%d asks=%d want %d", len(b.bids), len(b.asks), b.K())
	}
	for _, l := range b.bids {
		if int32(l.depth) < 0 {
			t.Fatalf("negative bid depth")
		}
	}
	for _, l := range b.asks {
		if int32(l.depth) < 0 {
			t.Fatalf("negative ask depth")
		}
	}
}

func TestSeedExactSpread(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	if got := b.BestAsk() - b.BestBid(); got != 2 {
		t.Fatalf("spread = %d, want 2 (exact)", got)
	}
	checkInvariantsOK(t, b)
}

func TestApplyAddMatchingLevelIncrementsDepth(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	before := b.bids[0].depth
	_, err := b.Apply(types.AddBid, b.BestBid(), 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.bids[0].depth != before+3 {
		t.Fatalf("depth = %d, want %d", b.bids[0].depth, before+3)
	}
	checkInvariantsOK(t, b)
}

func TestApplyAddInsideSpreadPrepends(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	newBid := b.BestBid() + 1
	_, err := b.Apply(types.AddBid, newBid, 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.BestBid() != newBid {
		t.Fatalf("best bid = %d, want %d", b.BestBid(), newBid)
	}
	checkInvariantsOK(t, b)
}

func TestApplyAddOutsideWindowIgnored(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	worst := b.bids[len(b.bids)-1].price
	before := b.snapshot()
	_, err := b.Apply(types.AddBid, worst-10, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := b.snapshot()
	for i := range before.bids {
		if before.bids[i] != after.bids[i] {
			t.Fatalf("book changed on out-of-window add")
		}
	}
}

func TestExecuteBuyDepletesAskAndShifts(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	beforeAsk := b.BestAsk()
	depth := b.asks[0].depth
	result, err := b.Apply(types.ExecuteBuy, 0, depth, ConstantRefill())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Shifted {
		t.Fatal("expected shift flag")
	}
	if b.BestAsk() <= beforeAsk {
		t.Fatalf("best ask did not move up after depletion: %d -> %d", beforeAsk, b.BestAsk())
	}
	checkInvariantsOK(t, b)
}

func TestExecuteSellDepletesBidAndShifts(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	beforeBid := b.BestBid()
	depth := b.bids[0].depth
	result, err := b.Apply(types.ExecuteSell, 0, depth, ConstantRefill())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Shifted {
		t.Fatal("expected shift flag")
	}
	if b.BestBid() >= beforeBid {
		t.Fatalf("best bid did not move down after depletion: %d -> %d", beforeBid, b.BestBid())
	}
	checkInvariantsOK(t, b)
}

func TestCancelNonBestLevelPersistsAtZero(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	priceAtLevel1 := b.bids[1].price
	depth := b.bids[1].depth
	_, err := b.Apply(types.CancelBid, priceAtLevel1, depth, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.bids[1].price != priceAtLevel1 || b.bids[1].depth != 0 {
		t.Fatalf("level should persist at zero depth, got %+v", b.bids[1])
	}
	checkInvariantsOK(t, b)
}

func TestShiftRefillsFromInitialDepthNotDroppedLevel(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)

	worstPrice := b.bids[4].price
	worstDepth := b.bids[4].depth
	if _, err := b.Apply(types.CancelBid, worstPrice, worstDepth, nil); err != nil {
		t.Fatalf("unexpected error zeroing worst level: %v", err)
	}
	if b.bids[4].depth != 0 {
		t.Fatalf("worst level not at zero depth: %+v", b.bids[4])
	}

	bestPrice := b.bids[0].price
	bestDepth := b.bids[0].depth
	result, err := b.Apply(types.CancelBid, bestPrice, bestDepth, ConstantRefill())
	if err != nil {
		t.Fatalf("unexpected error shifting off zero-depth worst level: %v", err)
	}
	if !result.Shifted {
		t.Fatal("expected shift flag")
	}

	fabricated := b.bids[len(b.bids)-1]
	if fabricated.depth != b.initialDepth {
		t.Fatalf("fabricated level depth = %d, want initialDepth %d (a zero-depth dropped level must not be used as the refill basis)", fabricated.depth, b.initialDepth)
	}
	checkInvariantsOK(t, b)
}

func TestCancelBestLevelShifts(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	depth := b.bids[0].depth
	beforeBid := b.BestBid()
	result, err := b.Apply(types.CancelBid, b.BestBid(), depth, ConstantRefill())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Shifted {
		t.Fatal("expected shift on best-level cancel to zero")
	}
	if b.BestBid() >= beforeBid {
		t.Fatalf("best bid should move down after shift")
	}
}

func TestApplyRandomSequencePreservesInvariants(t *testing.T) {
	t.Parallel()
	source := rng.NewSource(7)
	b := New(5, source)
	b.Seed(50000, 2, 8)
	refill := PoissonRefill(source)

	seq := []struct {
		t   types.EventType
		qty uint32
	}{
		{types.ExecuteBuy, 3}, {types.ExecuteSell, 10}, {types.CancelBid, 4},
		{types.AddAsk, 2}, {types.ExecuteBuy, 20}, {types.CancelAsk, 1},
	}
	for i, step := range seq {
		var price int32
		switch step.t {
		case types.AddAsk:
			price = b.BestAsk() + 1
		case types.CancelBid:
			price = b.bids[2].price
		case types.CancelAsk:
			price = b.asks[2].price
		}
		if _, err := b.Apply(step.t, price, step.qty, refill); err != nil {
			t.Fatalf("step %d (%v) failed: %v", i, step.t, err)
		}
		checkInvariantsOK(t, b)
	}
}

func TestFeaturesImbalanceSign(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	if _, err := b.Apply(types.AddBid, b.BestBid(), 100, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := b.Features()
	if f.Imbalance <= 0 {
		t.Fatalf("expected positive imbalance after bid-heavy add, got %v", f.Imbalance)
	}
}

func TestStateTotalDepths(t *testing.T) {
	t.Parallel()
	b := newSeededBook(t)
	st := b.State()
	if st.TotalBidDepth() != 25 || st.TotalAskDepth() != 25 {
		t.Fatalf("total depths = %d/%d, want 25/25", st.TotalBidDepth(), st.TotalAskDepth())
	}
}
