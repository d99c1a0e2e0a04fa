// Package intensity implements the pure book-state -> event-rate
// functions of spec §4.3. Model.Compute never mutates its input and
// never touches the RNG; on a structurally inconsistent BookState it
// returns ErrInvalidBook, which the Producer treats as fatal (spec
// §4.3, §7).
package intensity

import (
	"errors"

	"qrsdp/pkg/types"
)

// ErrInvalidBook is returned by Compute when the supplied BookState is
// structurally inconsistent (missing depths, wrong level count).
var ErrInvalidBook = errors.New("intensity: invalid book state")

// Model computes event-type arrival rates from book state.
type Model interface {
	Compute(types.BookState) (types.Intensities, error)
}

// WeightedModel is the optional capability (spec §4.3.2, §9) a model
// may implement to expose per-level (type, level) sampling weights.
// The Producer type-asserts for this so it can draw a joint
// (event type, level) outcome in one call.
type WeightedModel interface {
	Model
	Weights(types.BookState) ([]float64, error)
}

func validateLevels(s types.BookState, k int) error {
	if len(s.Bids) != k || len(s.Asks) != k {
		return ErrInvalidBook
	}
	return nil
}
