package intensity

import (
	"math"

	"qrsdp/pkg/types"
)

// SimpleImbalance is the spec §4.3.1 variant: a closed-form function of
// spread and book imbalance, with no per-level state.
type SimpleImbalance struct {
	BaseL, BaseC, BaseM float64
	SI, SC, Eps, SS     float64
}

// NewSimpleImbalance constructs a SimpleImbalance model with the given
// parameters, matching the field names used in spec §4.3.1.
func NewSimpleImbalance(baseL, baseC, baseM, sI, sC, eps, sS float64) *SimpleImbalance {
	return &SimpleImbalance{BaseL: baseL, BaseC: baseC, BaseM: baseM, SI: sI, SC: sC, Eps: eps, SS: sS}
}

// Compute implements spec §4.3.1's formulas exactly.
func (m *SimpleImbalance) Compute(s types.BookState) (types.Intensities, error) {
	if len(s.Bids) == 0 || len(s.Asks) == 0 || len(s.Bids) != len(s.Asks) {
		return types.Intensities{}, ErrInvalidBook
	}

	spread := float64(s.SpreadTicks)
	imbalance := s.Imbalance
	totalBid := float64(s.TotalBidDepth())
	totalAsk := float64(s.TotalAskDepth())

	addMult := math.Exp(m.SS * (spread - 2))
	execMult := math.Exp(-m.SS * (spread - 2))

	in := types.Intensities{
		AddBid:    m.BaseL * (1 - m.SI*imbalance) * addMult,
		AddAsk:    m.BaseL * (1 + m.SI*imbalance) * addMult,
		CancelBid: m.BaseC * m.SC * totalBid,
		CancelAsk: m.BaseC * m.SC * totalAsk,
		ExecSell:  m.BaseM * (m.Eps + math.Max(m.SI*imbalance, 0)) * execMult,
		ExecBuy:   m.BaseM * (m.Eps + math.Max(-m.SI*imbalance, 0)) * execMult,
	}
	return in.Clamped(), nil
}
