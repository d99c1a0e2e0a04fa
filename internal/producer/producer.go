// Package producer implements the competing-risk simulation loop
// (spec §4.6) that drives one book through one trading session,
// writing every event to a sink.
package producer

import (
	"fmt"
	"math"
	"time"

	"qrsdp/internal/book"
	"qrsdp/internal/config"
	"qrsdp/internal/intensity"
	"qrsdp/internal/rng"
	"qrsdp/internal/sampler"
	"qrsdp/internal/sink"
	"qrsdp/pkg/types"
)

// Producer owns the book, the RNG, and the per-session counters
// (t_seconds, order_id, events_written). It borrows the intensity
// model and samplers; it never retries the RNG and never catches sink
// errors (spec §4.6, §4.1).
type Producer struct {
	cfg    config.TradingSession
	book   *book.Book
	source *rng.Source
	model  intensity.Model
	events *sampler.EventSampler
	attrs  *sampler.AttributeSampler
	refill book.DepthRefillFunc

	tSeconds      float64
	orderID       uint64
	eventsWritten uint64

	// realtimeSpeed > 0 enables wall-clock pacing (spec §5): the
	// session sleeps between events so simulated time advances at
	// wall-clock-time * realtimeSpeed. Zero disables pacing, the
	// default, and matches RunSession producing output as fast as
	// possible.
	realtimeSpeed float64
}

// SetRealtimePacing enables wall-clock pacing at the given speed
// multiplier (1.0 == real time, 2.0 == twice as fast as real time). A
// non-positive speed disables pacing.
func (p *Producer) SetRealtimePacing(speed float64) {
	p.realtimeSpeed = speed
}

// Result is the outcome of a completed session (spec §4.6).
type Result struct {
	CloseTicks    int32
	EventsWritten uint64
}

// New builds a Producer for one session. model must already be
// configured for cfg.LevelsPerSide; the caller (SessionRunner) is
// responsible for selecting SimpleImbalance vs CurveIntensity from
// cfg.Intensity.Kind.
func New(cfg config.TradingSession, model intensity.Model) *Producer {
	source := rng.NewSource(cfg.Seed)
	b := book.New(cfg.LevelsPerSide, source)

	var refill book.DepthRefillFunc
	if cfg.DepthRefill == "constant" {
		refill = book.ConstantRefill()
	} else {
		refill = book.PoissonRefill(source)
	}

	return &Producer{
		cfg:    cfg,
		book:   b,
		source: source,
		model:  model,
		events: sampler.NewEventSampler(source),
		attrs:  sampler.NewAttributeSampler(source, cfg.Intensity.LevelDecayAlpha, cfg.Intensity.SpreadImproveC),
		refill: refill,
	}
}

// StartSession reseeds the book around p0Ticks and resets the session
// counters (spec §4.1: "startSession(cfg) reseeds the RNG, clears and
// reseeds the book ... resets t_seconds=0, order_id=1").
func (p *Producer) StartSession(p0Ticks int32) {
	p.source.Seed(p.cfg.Seed)
	p.book.Seed(p0Ticks, p.cfg.InitialSpread, p.cfg.InitialDepth)
	p.tSeconds = 0
	p.orderID = 1
	p.eventsWritten = 0
}

// StepOneEvent advances the session by at most one event (spec §4.6).
// It returns false once the session horizon has been reached, leaving
// the book and counters in their final state.
func (p *Producer) StepOneEvent(s sink.EventSink) (bool, error) {
	sessionSeconds := float64(p.cfg.SessionSeconds)
	if p.tSeconds >= sessionSeconds {
		return false, nil
	}

	state := p.book.State()
	intensities, err := p.model.Compute(state)
	if err != nil {
		return false, fmt.Errorf("producer: compute intensities: %w", err)
	}

	dt := p.events.SampleDeltaT(intensities.Total())
	tNew := p.tSeconds + dt
	if tNew >= sessionSeconds {
		p.tSeconds = sessionSeconds
		return false, nil
	}

	eventType, levelHint := p.chooseEvent(state, intensities)
	attrs := p.attrs.Sample(eventType, state, levelHint)

	result, err := p.book.Apply(eventType, attrs.PriceTicks, attrs.Qty, p.refill)
	if err != nil {
		return false, fmt.Errorf("producer: apply event: %w", err)
	}

	var flags types.EventFlag
	if result.Shifted {
		flags |= types.FlagShift
	}

	orderID := p.orderID
	p.orderID++

	rec := types.EventRecord{
		TsNs:       uint64(tNew * 1e9),
		Type:       eventType,
		Side:       attrs.Side,
		PriceTicks: attrs.PriceTicks,
		Qty:        attrs.Qty,
		OrderID:    orderID,
		Flags:      flags,
	}
	if err := s.Append(rec); err != nil {
		return false, err
	}

	if p.realtimeSpeed > 0 {
		time.Sleep(time.Duration(dt / p.realtimeSpeed * float64(time.Second)))
	}

	p.tSeconds = tNew
	p.eventsWritten++
	return true, nil
}

// chooseEvent implements spec §4.6 step 6: draw a joint (type, level)
// from a WeightedModel when available, else fall back to an
// intensity-only type draw with no level hint.
func (p *Producer) chooseEvent(state types.BookState, in types.Intensities) (types.EventType, int) {
	if wm, ok := p.model.(intensity.WeightedModel); ok {
		weights, err := wm.Weights(state)
		if err == nil && len(weights) > 0 {
			idx := p.events.SampleIndexFromWeights(weights)
			if decoder, ok := wm.(interface {
				DecodeWeightIndex(int) (types.EventType, int)
			}); ok {
				return decoder.DecodeWeightIndex(idx)
			}
		}
	}
	return p.events.SampleType(in), -1
}

// RunSession calls StartSession then loops StepOneEvent to exhaustion
// (spec §4.6).
func (p *Producer) RunSession(p0Ticks int32, s sink.EventSink) (Result, error) {
	p.StartSession(p0Ticks)
	for {
		ok, err := p.StepOneEvent(s)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			break
		}
	}
	closeTicks := int32(math.Floor(float64(p.book.BestBid()+p.book.BestAsk()) / 2))
	return Result{CloseTicks: closeTicks, EventsWritten: p.eventsWritten}, nil
}

// Book exposes the underlying book for callers (tests, diagnostics)
// that need direct read access between steps.
func (p *Producer) Book() *book.Book { return p.book }
