package intensity

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"qrsdp/pkg/types"
)

// TailPolicy controls how a per-level curve extrapolates past its
// tabulated queue-size range (spec §4.3.2: "last-value tail (flat) or
// zero tail, per-curve policy").
type TailPolicy int

const (
	TailFlat TailPolicy = iota
	TailZero
)

// Curve is one tabulated function of queue size n, indexed [0, n_max].
type Curve struct {
	Values []float64  `json:"values"`
	Tail   TailPolicy `json:"tail"`
}

// At evaluates the curve at queue size n, applying the tail policy for
// out-of-range n.
func (c Curve) At(n uint32) float64 {
	if len(c.Values) == 0 {
		return 0
	}
	if int(n) < len(c.Values) {
		return c.Values[n]
	}
	switch c.Tail {
	case TailFlat:
		return c.Values[len(c.Values)-1]
	default:
		return 0
	}
}

// CurveIntensity is the spec §4.3.2 queue-reactive, per-level variant.
// Tables are indexed by level k in [0, K) and queue size n.
type CurveIntensity struct {
	K int

	LBid, LAsk []Curve // add-limit-order curves, one per level
	CBid, CAsk []Curve // cancel curves, one per level
	MBuy, MSell Curve  // best-only marketable-order curves

	SI, SS float64 // imbalance sensitivity, spread sensitivity (shared with SimpleImbalance)
}

// LoadCurveFile loads the six curve tables from a JSON file. Curve
// fitting/calibration from real market data is out of scope (spec
// §1); this only parses whatever tables an offline calibration tool
// produced.
func LoadCurveFile(path string) (*CurveIntensity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curve file: %w", err)
	}
	var f struct {
		K      int     `json:"k"`
		LBid   []Curve `json:"l_bid"`
		LAsk   []Curve `json:"l_ask"`
		CBid   []Curve `json:"c_bid"`
		CAsk   []Curve `json:"c_ask"`
		MBuy   Curve   `json:"m_buy"`
		MSell  Curve   `json:"m_sell"`
		SI     float64 `json:"s_i"`
		SS     float64 `json:"s_s"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse curve file: %w", err)
	}
	if len(f.LBid) != f.K || len(f.LAsk) != f.K || len(f.CBid) != f.K || len(f.CAsk) != f.K {
		return nil, fmt.Errorf("curve file: table length must match k=%d", f.K)
	}
	return &CurveIntensity{
		K: f.K, LBid: f.LBid, LAsk: f.LAsk, CBid: f.CBid, CAsk: f.CAsk,
		MBuy: f.MBuy, MSell: f.MSell, SI: f.SI, SS: f.SS,
	}, nil
}

// DefaultCurveIntensity builds flat-decaying default curves for K
// levels, used when no curve file is configured.
func DefaultCurveIntensity(k int, si, ss float64) *CurveIntensity {
	mk := func(base float64) []Curve {
		out := make([]Curve, k)
		for i := range out {
			decay := base * math.Exp(-0.3*float64(i))
			out[i] = Curve{Values: []float64{decay, decay * 0.9, decay * 0.8, decay * 0.7}, Tail: TailFlat}
		}
		return out
	}
	return &CurveIntensity{
		K:     k,
		LBid:  mk(6), LAsk: mk(6),
		CBid:  mk(0.15), CAsk: mk(0.15),
		MBuy:  Curve{Values: []float64{0.5, 1.2, 2.0, 2.8, 3.4}, Tail: TailFlat},
		MSell: Curve{Values: []float64{0.5, 1.2, 2.0, 2.8, 3.4}, Tail: TailFlat},
		SI:    si, SS: ss,
	}
}

func (m *CurveIntensity) addMult(spread float64) float64  { return math.Exp(m.SS * (spread - 2)) }
func (m *CurveIntensity) execMult(spread float64) float64 { return math.Exp(-m.SS * (spread - 2)) }

// Compute implements spec §4.3.2's aggregate formulas.
func (m *CurveIntensity) Compute(s types.BookState) (types.Intensities, error) {
	if err := validateLevels(s, m.K); err != nil {
		return types.Intensities{}, err
	}
	addMult := m.addMult(float64(s.SpreadTicks))
	execMult := m.execMult(float64(s.SpreadTicks))

	var addBid, addAsk, cancelBid, cancelAsk float64
	for k := 0; k < m.K; k++ {
		addBid += m.LBid[k].At(s.Bids[k].Depth)
		addAsk += m.LAsk[k].At(s.Asks[k].Depth)
		cancelBid += m.CBid[k].At(s.Bids[k].Depth)
		cancelAsk += m.CAsk[k].At(s.Asks[k].Depth)
	}
	addBid *= addMult
	addAsk *= addMult
	cancelBid *= addMult
	cancelAsk *= addMult

	execBuy := m.MBuy.At(s.Asks[0].Depth) * execMult * (1 + m.SI*math.Max(-s.Imbalance, 0))
	execSell := m.MSell.At(s.Bids[0].Depth) * execMult * (1 + m.SI*math.Max(s.Imbalance, 0))

	in := types.Intensities{
		AddBid: addBid, AddAsk: addAsk,
		CancelBid: cancelBid, CancelAsk: cancelAsk,
		ExecBuy: execBuy, ExecSell: execSell,
	}
	return in.Clamped(), nil
}

// Weights returns the 4K+2 per-level sampling weight vector in the
// order [add_bid_0..add_bid_{K-1}, add_ask_0..add_ask_{K-1},
// cancel_bid_0..cancel_bid_{K-1}, cancel_ask_0..cancel_ask_{K-1},
// exec_buy, exec_sell] (spec §4.3.2).
func (m *CurveIntensity) Weights(s types.BookState) ([]float64, error) {
	if err := validateLevels(s, m.K); err != nil {
		return nil, err
	}
	addMult := m.addMult(float64(s.SpreadTicks))
	execMult := m.execMult(float64(s.SpreadTicks))

	out := make([]float64, 4*m.K+2)
	for k := 0; k < m.K; k++ {
		out[k] = math.Max(m.LBid[k].At(s.Bids[k].Depth)*addMult, 0)
		out[m.K+k] = math.Max(m.LAsk[k].At(s.Asks[k].Depth)*addMult, 0)
		out[2*m.K+k] = math.Max(m.CBid[k].At(s.Bids[k].Depth)*addMult, 0)
		out[3*m.K+k] = math.Max(m.CAsk[k].At(s.Asks[k].Depth)*addMult, 0)
	}
	out[4*m.K] = math.Max(m.MBuy.At(s.Asks[0].Depth)*execMult*(1+m.SI*math.Max(-s.Imbalance, 0)), 0)
	out[4*m.K+1] = math.Max(m.MSell.At(s.Bids[0].Depth)*execMult*(1+m.SI*math.Max(s.Imbalance, 0)), 0)
	return out, nil
}

// DecodeWeightIndex maps an index into the Weights() vector back to an
// (EventType, level) pair, the inverse the sampler needs after drawing
// an index via SampleIndexFromWeights.
func (m *CurveIntensity) DecodeWeightIndex(idx int) (types.EventType, int) {
	k := m.K
	switch {
	case idx < k:
		return types.AddBid, idx
	case idx < 2*k:
		return types.AddAsk, idx - k
	case idx < 3*k:
		return types.CancelBid, idx - 2*k
	case idx < 4*k:
		return types.CancelAsk, idx - 3*k
	case idx == 4*k:
		return types.ExecuteBuy, -1
	default:
		return types.ExecuteSell, -1
	}
}
