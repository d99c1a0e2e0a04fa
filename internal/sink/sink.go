// Package sink implements spec §4.7's EventSink variants: everything
// the Producer can hand a finished EventRecord to. Each sink is
// append/flush/close; flush and close default to no-ops where the
// underlying storage needs none.
package sink

import (
	"log/slog"

	"qrsdp/pkg/types"
)

// EventSink receives one EventRecord at a time in emission order.
type EventSink interface {
	Append(types.EventRecord) error
	Flush() error
	Close() error
}

// MemorySink stores every event in an ordered in-process slice. Used
// for tests and small analysis runs (spec §4.7).
type MemorySink struct {
	Records []types.EventRecord
}

// NewMemorySink builds an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Append(r types.EventRecord) error {
	m.Records = append(m.Records, r)
	return nil
}

func (m *MemorySink) Flush() error { return nil }
func (m *MemorySink) Close() error { return nil }

// FanOutSink forwards each event to a list of downstream sinks it does
// not own. A failing sink is logged and skipped; the others still see
// the event, so one broken downstream never aborts the producer (spec
// §4.7, §5).
type FanOutSink struct {
	sinks  []EventSink
	logger *slog.Logger
}

// NewFanOutSink builds a FanOutSink over sinks, using logger to report
// per-sink append/flush/close failures. A nil logger falls back to
// slog.Default().
func NewFanOutSink(logger *slog.Logger, sinks ...EventSink) *FanOutSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &FanOutSink{sinks: sinks, logger: logger}
}

func (f *FanOutSink) Append(r types.EventRecord) error {
	for i, s := range f.sinks {
		if err := s.Append(r); err != nil {
			f.logger.Error("fan-out sink append failed", "sink_index", i, "error", err)
		}
	}
	return nil
}

func (f *FanOutSink) Flush() error {
	for i, s := range f.sinks {
		if err := s.Flush(); err != nil {
			f.logger.Error("fan-out sink flush failed", "sink_index", i, "error", err)
		}
	}
	return nil
}

func (f *FanOutSink) Close() error {
	for i, s := range f.sinks {
		if err := s.Close(); err != nil {
			f.logger.Error("fan-out sink close failed", "sink_index", i, "error", err)
		}
	}
	return nil
}
