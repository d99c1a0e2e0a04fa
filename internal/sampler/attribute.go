package sampler

import (
	"math"

	"qrsdp/internal/rng"
	"qrsdp/pkg/types"
)

// Attrs is the concrete outcome of attribute sampling: everything the
// Producer needs to apply an event to the book and emit an
// EventRecord, short of the order id (which the Producer owns as a
// monotonic per-session counter, spec §4.1, §4.6).
type Attrs struct {
	Side       types.Side
	PriceTicks int32
	Qty        uint32
}

// AttributeSampler implements spec §4.5: placement of ADD/CANCEL
// orders across levels, spread-improvement, and opposite-best-price
// placement for executions.
type AttributeSampler struct {
	source         *rng.Source
	levelDecayA    float64 // geometric-decay coefficient for add-level choice
	spreadImproveC float64 // spread-improvement coefficient, 0 disables
}

// NewAttributeSampler builds an AttributeSampler. levelDecayAlpha
// weights ADD level choice by exp(-alpha*k); spreadImproveC, when > 0
// and the current spread exceeds 1 tick, lets an add jump inside the
// spread with probability min(1, (spread-1)*c).
func NewAttributeSampler(source *rng.Source, levelDecayAlpha, spreadImproveC float64) *AttributeSampler {
	return &AttributeSampler{source: source, levelDecayA: levelDecayAlpha, spreadImproveC: spreadImproveC}
}

// Sample returns concrete attributes for an event of type t drawn
// against book state s. levelHint, when >= 0, pins the level (from a
// WeightedModel joint draw) instead of re-sampling one. Quantity is
// always 1 (spec §4.5's unit-size policy).
func (a *AttributeSampler) Sample(t types.EventType, s types.BookState, levelHint int) Attrs {
	switch t {
	case types.ExecuteBuy:
		return Attrs{Side: types.SideAsk, PriceTicks: s.BestAsk, Qty: 1}
	case types.ExecuteSell:
		return Attrs{Side: types.SideBid, PriceTicks: s.BestBid, Qty: 1}
	case types.AddBid, types.AddAsk:
		return a.sampleAdd(t, s, levelHint)
	case types.CancelBid, types.CancelAsk:
		return a.sampleCancel(t, s, levelHint)
	default:
		return Attrs{Qty: 1}
	}
}

func (a *AttributeSampler) sampleAdd(t types.EventType, s types.BookState, levelHint int) Attrs {
	isBid := t == types.AddBid
	levels := s.Asks
	side := types.SideAsk
	if isBid {
		levels = s.Bids
		side = types.SideBid
	}
	if len(levels) == 0 {
		return Attrs{Side: side, Qty: 1}
	}

	if a.spreadImproveC > 0 && s.SpreadTicks > 1 {
		p := math.Min(1, float64(s.SpreadTicks-1)*a.spreadImproveC)
		if a.source.Float64() < p {
			if isBid {
				return Attrs{Side: side, PriceTicks: s.BestBid + 1, Qty: 1}
			}
			return Attrs{Side: side, PriceTicks: s.BestAsk - 1, Qty: 1}
		}
	}

	level := levelHint
	if level < 0 || level >= len(levels) {
		level = a.sampleGeometricLevel(len(levels))
	}
	return Attrs{Side: side, PriceTicks: levels[level].PriceTicks, Qty: 1}
}

func (a *AttributeSampler) sampleCancel(t types.EventType, s types.BookState, levelHint int) Attrs {
	isBid := t == types.CancelBid
	levels := s.Asks
	side := types.SideAsk
	if isBid {
		levels = s.Bids
		side = types.SideBid
	}
	if len(levels) == 0 {
		return Attrs{Side: side, Qty: 1}
	}

	level := levelHint
	if level < 0 || level >= len(levels) {
		level = a.sampleDepthWeightedLevel(levels)
	}
	return Attrs{Side: side, PriceTicks: levels[level].PriceTicks, Qty: 1}
}

// sampleGeometricLevel draws a level index in [0, n) with probability
// proportional to exp(-alpha*k).
func (a *AttributeSampler) sampleGeometricLevel(n int) int {
	weights := make([]float64, n)
	var total float64
	for k := 0; k < n; k++ {
		weights[k] = math.Exp(-a.levelDecayA * float64(k))
		total += weights[k]
	}
	return weightedPick(a.source, weights, total)
}

// sampleDepthWeightedLevel draws a level index weighted by current
// depth, so heavier levels are more likely to see a cancel.
func (a *AttributeSampler) sampleDepthWeightedLevel(levels []types.LevelState) int {
	weights := make([]float64, len(levels))
	var total float64
	for i, l := range levels {
		weights[i] = float64(l.Depth)
		total += weights[i]
	}
	if total <= 0 {
		return 0
	}
	return weightedPick(a.source, weights, total)
}

func weightedPick(source *rng.Source, weights []float64, total float64) int {
	if total <= 0 {
		return 0
	}
	target := source.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if cum > target {
			return i
		}
	}
	return len(weights) - 1
}
