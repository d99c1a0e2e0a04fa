// Package sampler implements spec §4.4-4.5: turning Intensities into a
// concrete (Δt, type, level) draw, and turning a drawn type into
// concrete order attributes (side, price, qty).
package sampler

import (
	"math"

	"qrsdp/internal/rng"
	"qrsdp/pkg/types"
)

// SentinelDeltaT is returned by SampleDeltaT when total intensity is
// non-finite or non-positive, so a session with a dead book still
// terminates cleanly (spec §4.4).
const SentinelDeltaT = 1e9

// EventSampler draws event timing and type from a competing-risk
// Poisson intensity vector. The scan order in SampleType and the
// weight order expected by SampleIndexFromWeights are a stable part of
// the design: they fix the correspondence between uniform draws and
// outcomes so two runs with the same seed produce the same stream.
type EventSampler struct {
	source *rng.Source
}

// NewEventSampler builds an EventSampler drawing from source.
func NewEventSampler(source *rng.Source) *EventSampler {
	return &EventSampler{source: source}
}

// SampleDeltaT draws an exponential inter-arrival time with rate
// lambdaTotal via inverse-CDF sampling.
func (s *EventSampler) SampleDeltaT(lambdaTotal float64) float64 {
	if math.IsNaN(lambdaTotal) || math.IsInf(lambdaTotal, 0) || lambdaTotal <= 0 {
		return SentinelDeltaT
	}
	u := s.source.Float64()
	for u <= 0 {
		u = s.source.Float64()
	}
	return -math.Log(u) / lambdaTotal
}

// eventTypeScanOrder is the fixed cumulative-scan order spec §4.4
// requires: ADD_BID, ADD_ASK, CANCEL_BID, CANCEL_ASK, EXECUTE_BUY,
// EXECUTE_SELL.
var eventTypeScanOrder = [types.NumEventTypes]types.EventType{
	types.AddBid, types.AddAsk, types.CancelBid, types.CancelAsk,
	types.ExecuteBuy, types.ExecuteSell,
}

// SampleType performs a cumulative scan over in, in the fixed order
// above, returning the first type whose cumulative probability
// exceeds a fresh uniform draw. Ties and u -> 1 yield the last type.
func (s *EventSampler) SampleType(in types.Intensities) types.EventType {
	total := in.Total()
	u := s.source.Float64()
	if total <= 0 {
		return eventTypeScanOrder[len(eventTypeScanOrder)-1]
	}
	target := u * total
	var cum float64
	for _, t := range eventTypeScanOrder {
		cum += in.ByType(t)
		if cum > target {
			return t
		}
	}
	return eventTypeScanOrder[len(eventTypeScanOrder)-1]
}

// SampleIndexFromWeights performs the same cumulative scan over an
// arbitrary-length non-negative weight vector, used by the curve model
// for joint (type, level) sampling.
func (s *EventSampler) SampleIndexFromWeights(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	u := s.source.Float64()
	if total <= 0 || len(weights) == 0 {
		return len(weights) - 1
	}
	target := u * total
	var cum float64
	for i, w := range weights {
		cum += w
		if cum > target {
			return i
		}
	}
	return len(weights) - 1
}
