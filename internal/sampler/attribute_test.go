package sampler

import (
	"testing"

	"qrsdp/internal/rng"
	"qrsdp/pkg/types"
)

func sampleState() types.BookState {
	bids := []types.LevelState{{PriceTicks: 10000, Depth: 5}, {PriceTicks: 9999, Depth: 10}, {PriceTicks: 9998, Depth: 1}}
	asks := []types.LevelState{{PriceTicks: 10002, Depth: 5}, {PriceTicks: 10003, Depth: 10}, {PriceTicks: 10004, Depth: 1}}
	return types.BookState{
		BookFeatures: types.BookFeatures{BestBid: 10000, BestAsk: 10002, SpreadTicks: 2, BestBidDepth: 5, BestAskDepth: 5},
		Bids:         bids, Asks: asks,
	}
}

func TestSampleExecuteAtOppositeBest(t *testing.T) {
	t.Parallel()
	a := NewAttributeSampler(rng.NewSource(1), 0.5, 0)
	s := sampleState()

	buy := a.Sample(types.ExecuteBuy, s, -1)
	if buy.Side != types.SideAsk || buy.PriceTicks != s.BestAsk {
		t.Fatalf("ExecuteBuy attrs = %+v, want ask side at %d", buy, s.BestAsk)
	}
	sell := a.Sample(types.ExecuteSell, s, -1)
	if sell.Side != types.SideBid || sell.PriceTicks != s.BestBid {
		t.Fatalf("ExecuteSell attrs = %+v, want bid side at %d", sell, s.BestBid)
	}
}

func TestSampleAddUsesLevelHint(t *testing.T) {
	t.Parallel()
	a := NewAttributeSampler(rng.NewSource(1), 0.5, 0)
	s := sampleState()
	got := a.Sample(types.AddBid, s, 2)
	if got.PriceTicks != s.Bids[2].PriceTicks {
		t.Fatalf("got price %d, want level-2 price %d", got.PriceTicks, s.Bids[2].PriceTicks)
	}
}

func TestSampleAddSpreadImprovementPlacesInsideSpread(t *testing.T) {
	t.Parallel()
	a := NewAttributeSampler(rng.NewSource(1), 0.5, 1.0) // c=1 with spread 2 -> probability 1
	s := sampleState()
	got := a.Sample(types.AddBid, s, -1)
	if got.PriceTicks != s.BestBid+1 {
		t.Fatalf("got %d, want inside-spread price %d", got.PriceTicks, s.BestBid+1)
	}
	gotAsk := a.Sample(types.AddAsk, s, -1)
	if gotAsk.PriceTicks != s.BestAsk-1 {
		t.Fatalf("got %d, want inside-spread ask price %d", gotAsk.PriceTicks, s.BestAsk-1)
	}
}

func TestSampleAddNoSpreadImprovementWhenSpreadIsOne(t *testing.T) {
	t.Parallel()
	a := NewAttributeSampler(rng.NewSource(1), 0.5, 1.0)
	s := sampleState()
	s.SpreadTicks = 1
	got := a.Sample(types.AddBid, s, -1)
	found := false
	for _, l := range s.Bids {
		if got.PriceTicks == l.PriceTicks {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an existing level price, got %d", got.PriceTicks)
	}
}

func TestSampleCancelUsesLevelHint(t *testing.T) {
	t.Parallel()
	a := NewAttributeSampler(rng.NewSource(1), 0.5, 0)
	s := sampleState()
	got := a.Sample(types.CancelAsk, s, 1)
	if got.PriceTicks != s.Asks[1].PriceTicks {
		t.Fatalf("got %d, want level-1 ask price %d", got.PriceTicks, s.Asks[1].PriceTicks)
	}
}

func TestSampleCancelDepthWeightedFavorsHeavierLevel(t *testing.T) {
	t.Parallel()
	a := NewAttributeSampler(rng.NewSource(123), 0.5, 0)
	s := sampleState() // bid depths 5, 10, 1 -> level 1 should dominate
	counts := map[int32]int{}
	for i := 0; i < 2000; i++ {
		got := a.Sample(types.CancelBid, s, -1)
		counts[got.PriceTicks]++
	}
	if counts[s.Bids[1].PriceTicks] <= counts[s.Bids[0].PriceTicks] {
		t.Fatalf("expected heaviest level to dominate cancel picks: %+v", counts)
	}
}

func TestSampleQtyAlwaysOne(t *testing.T) {
	t.Parallel()
	a := NewAttributeSampler(rng.NewSource(1), 0.5, 0.2)
	s := sampleState()
	for _, typ := range []types.EventType{types.AddBid, types.AddAsk, types.CancelBid, types.CancelAsk, types.ExecuteBuy, types.ExecuteSell} {
		if got := a.Sample(typ, s, -1); got.Qty != 1 {
			t.Fatalf("type %v qty = %d, want 1", typ, got.Qty)
		}
	}
}
