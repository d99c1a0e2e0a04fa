// Package session implements the SessionRunner orchestrator (spec
// §4.11): iterating days and securities, deriving seeds, chaining
// close-to-open mid prices, and writing the run manifest.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"qrsdp/internal/calendar"
	"qrsdp/internal/config"
	"qrsdp/internal/intensity"
	"qrsdp/internal/itch"
	"qrsdp/internal/producer"
	"qrsdp/internal/qrsdplog"
	"qrsdp/internal/sink"
	"qrsdp/internal/store"
	"qrsdp/internal/wire"
)

// Runner drives a whole RunConfig to completion: one or more
// securities, each a sequential chain of days, writing one .qrsdp
// file per day and a manifest at the end.
type Runner struct {
	cfg       *config.RunConfig
	logger    *slog.Logger
	webhook   *resty.Client
	wireStore *store.Store
}

// New builds a Runner for cfg. A nil logger falls back to
// slog.Default().
func New(cfg *config.RunConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	var webhook *resty.Client
	if cfg.ManifestWebhookURL != "" {
		webhook = resty.New().SetTimeout(10 * time.Second).SetRetryCount(2)
	}
	r := &Runner{cfg: cfg, logger: logger, webhook: webhook}
	if cfg.Wire.Enabled {
		if s, err := store.Open(filepath.Join(cfg.OutputDir, ".wire_state")); err == nil {
			r.wireStore = s
		} else {
			logger.Warn("wire counter store unavailable, match/sequence numbers will not persist across runs", "error", err)
		}
	}
	return r
}

// securityTarget is one (symbol, template, p0) unit of work; the
// implicit single-security run is modeled as one securityTarget with
// an empty symbol.
type securityTarget struct {
	index   int
	symbol  string
	p0Ticks int32
	session config.TradingSession
}

// Run executes the full RunConfig and returns the completed manifest.
// Securities run in parallel goroutines (spec §4.11, §5: "independent,
// no shared state... MAY be executed in parallel"); days within one
// security run strictly sequentially because each day's open depends
// on the previous close.
func (r *Runner) Run(ctx context.Context) (Manifest, error) {
	targets := r.targets()

	results := make([][]SessionEntry, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t securityTarget) {
			defer wg.Done()
			entries, err := r.runSecurity(ctx, t)
			results[i] = entries
			errs[i] = err
		}(i, t)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return Manifest{}, fmt.Errorf("session: security %q: %w", targets[i].symbol, err)
		}
	}

	manifest := r.buildManifest(targets, results)
	if err := r.writeManifest(manifest); err != nil {
		return Manifest{}, err
	}
	r.postManifestWebhook(manifest)

	return manifest, nil
}

func (r *Runner) targets() []securityTarget {
	if !r.cfg.IsMultiSecurity() {
		ts := *r.cfg.Session
		return []securityTarget{{index: 0, symbol: "", p0Ticks: ts.P0Ticks, session: ts}}
	}
	out := make([]securityTarget, len(r.cfg.Securities))
	base := *r.cfg.Session
	for i, sec := range r.cfg.Securities {
		ts := base
		ts.P0Ticks = sec.P0Ticks
		out[i] = securityTarget{index: i, symbol: sec.Symbol, p0Ticks: sec.P0Ticks, session: ts}
	}
	return out
}

// runSecurity iterates num_days sequential trading days for one
// security, chaining each day's close mid into the next day's open.
func (r *Runner) runSecurity(ctx context.Context, t securityTarget) ([]SessionEntry, error) {
	model := buildModel(t.session)
	entries := make([]SessionEntry, 0, r.cfg.NumDays)

	date := r.cfg.StartDate
	mid := t.p0Ticks

	for d := 0; d < r.cfg.NumDays; d++ {
		if err := ctx.Err(); err != nil {
			return entries, fmt.Errorf("session cancelled: %w", err)
		}
		if d > 0 {
			next, err := calendar.NextBusinessDay(date)
			if err != nil {
				return nil, fmt.Errorf("advance calendar: %w", err)
			}
			date = next
		}

		seed := deriveSeed(r.cfg.BaseSeed, t.index, d, r.cfg.IsMultiSecurity())
		daySession := t.session
		daySession.Seed = seed
		daySession.P0Ticks = mid

		entry, closeTicks, err := r.runDay(ctx, t, daySession, date, model)
		if err != nil {
			return nil, fmt.Errorf("day %s: %w", date, err)
		}
		entries = append(entries, entry)
		mid = closeTicks
	}
	return entries, nil
}

func buildModel(ts config.TradingSession) intensity.Model {
	ic := ts.Intensity
	switch ic.Kind {
	case "curve":
		if ic.CurveFile != "" {
			m, err := intensity.LoadCurveFile(ic.CurveFile)
			if err == nil {
				return m
			}
		}
		return intensity.DefaultCurveIntensity(ts.LevelsPerSide, ic.SI, ic.SS)
	default:
		return intensity.NewSimpleImbalance(ic.BaseL, ic.BaseC, ic.BaseM, ic.SI, ic.SC, ic.Eps, ic.SS)
	}
}

// runDay runs one (security, date) trading session end to end: opens
// the sink composition, runs the producer, closes the sink, then
// re-opens it as a reader to verify record counts (spec §4.11).
func (r *Runner) runDay(ctx context.Context, t securityTarget, ts config.TradingSession, date string, model intensity.Model) (SessionEntry, int32, error) {
	relPath := date + ".qrsdp"
	if t.symbol != "" {
		relPath = filepath.Join(t.symbol, relPath)
	}
	fullPath := filepath.Join(r.cfg.OutputDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return SessionEntry{}, 0, fmt.Errorf("create output dir: %w", err)
	}

	header := qrsdplog.FileHeader{
		Seed: ts.Seed, P0Ticks: ts.P0Ticks, TickSize: ts.TickSize,
		SessionSeconds: ts.SessionSeconds, LevelsPerSide: uint32(ts.LevelsPerSide),
		InitialSpread: uint32(ts.InitialSpread), InitialDepth: ts.InitialDepth,
		ChunkCapacity: ts.ChunkCapacity, MarketOpenNs: ts.MarketOpenNs,
	}
	fileSink, err := qrsdplog.NewBinaryFileSink(fullPath, header)
	if err != nil {
		return SessionEntry{}, 0, err
	}

	eventSink, wireSink, err := r.composeSink(t, fileSink)
	if err != nil {
		fileSink.Close()
		return SessionEntry{}, 0, err
	}
	if wireSink != nil {
		wireSink.SendStartOfSession(ts.MarketOpenNs)
	}

	p := producer.New(ts, model)
	if r.cfg.Realtime {
		speed := r.cfg.SpeedMultiplier
		if speed <= 0 {
			speed = 1.0
		}
		p.SetRealtimePacing(speed)
	}
	result, err := p.RunSession(ts.P0Ticks, eventSink)
	closeErr := eventSink.Close()
	if wireSink != nil {
		matchNumber, sequence := wireSink.NextCounters()
		wireSink.Close()
		if r.wireStore != nil {
			if saveErr := r.wireStore.SaveWireCounters(wireCounterSymbol(t.symbol), store.WireCounters{
				NextMatchNumber: matchNumber, NextSequence: sequence,
			}); saveErr != nil {
				r.logger.Warn("failed to persist wire counters", "symbol", t.symbol, "error", saveErr)
			}
		}
	}
	if err != nil {
		return SessionEntry{}, 0, fmt.Errorf("run session: %w", err)
	}
	if closeErr != nil {
		return SessionEntry{}, 0, fmt.Errorf("close sink: %w", closeErr)
	}

	reader, err := qrsdplog.OpenLogReader(fullPath)
	if err != nil {
		return SessionEntry{}, 0, fmt.Errorf("verify: reopen log: %w", err)
	}
	defer reader.Close()
	records, err := reader.ReadAll()
	if err != nil {
		return SessionEntry{}, 0, fmt.Errorf("verify: read log: %w", err)
	}
	if uint64(len(records)) != result.EventsWritten {
		r.logger.Warn("record count mismatch after write",
			"symbol", t.symbol, "date", date, "written", result.EventsWritten, "read_back", len(records))
	}

	entry := SessionEntry{
		Symbol: t.symbol, Date: date, Seed: ts.Seed, Filename: relPath,
		Events: result.EventsWritten, OpenTicks: ts.P0Ticks, CloseTicks: result.CloseTicks,
	}
	return entry, result.CloseTicks, nil
}

// composeSink builds the sink chain for one day: always a
// BinaryFileSink, optionally fanned out to a NetworkWireSink when
// wire transport is enabled (spec §4.11).
func (r *Runner) composeSink(t securityTarget, fileSink sink.EventSink) (sink.EventSink, *wire.NetworkWireSink, error) {
	if !r.cfg.Wire.Enabled {
		return fileSink, nil, nil
	}
	encoder := itchEncoderFor(t.symbol, r.cfg.Wire.StockLocate, t.session.TickSize)
	wireSink, err := wire.Dial(r.cfg.Wire.Addr, encoder, r.cfg.Wire.SessionID, r.cfg.Wire.MTU)
	if err != nil {
		return nil, nil, fmt.Errorf("open wire sink: %w", err)
	}
	if r.wireStore != nil {
		counters, err := r.wireStore.LoadWireCounters(wireCounterSymbol(t.symbol))
		if err != nil {
			return nil, nil, fmt.Errorf("load wire counters: %w", err)
		}
		wireSink.SetCounters(counters.NextMatchNumber, counters.NextSequence)
	}
	return sink.NewFanOutSink(r.logger, fileSink, wireSink), wireSink, nil
}

// wireCounterSymbol gives the implicit single-security run (empty
// symbol) a stable key in the wire counter store.
func wireCounterSymbol(symbol string) string {
	if symbol == "" {
		return "SYM0"
	}
	return symbol
}

// itchEncoderFor builds an ITCH encoder for one security's wire
// stream. The implicit single-security symbol falls back to "SYM0"
// when none is configured.
func itchEncoderFor(symbol string, stockLocate uint16, tickSize uint32) *itch.Encoder {
	if symbol == "" {
		symbol = "SYM0"
	}
	return itch.NewEncoder(symbol, stockLocate, tickSize)
}

func (r *Runner) buildManifest(targets []securityTarget, results [][]SessionEntry) Manifest {
	m := Manifest{
		RunID:        fmt.Sprintf("qrsdp-%d", r.cfg.BaseSeed),
		Producer:     "qrsdp",
		BaseSeed:     r.cfg.BaseSeed,
		SeedStrategy: "sequential",
	}
	if r.cfg.IsMultiSecurity() {
		m.FormatVersion = "1.1"
		m.Securities = make([]SecurityEntry, len(targets))
		for i, t := range targets {
			m.Securities[i] = SecurityEntry{Symbol: t.symbol, P0Ticks: t.p0Ticks}
			m.Sessions = append(m.Sessions, results[i]...)
		}
		if len(targets) > 0 {
			m.TickSize = targets[0].session.TickSize
		}
	} else {
		m.FormatVersion = "1.0"
		if len(targets) > 0 {
			m.TickSize = targets[0].session.TickSize
			m.P0Ticks = targets[0].p0Ticks
		}
		if len(results) > 0 {
			m.Sessions = results[0]
		}
	}
	return m
}

func (r *Runner) writeManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal manifest: %w", err)
	}
	path := filepath.Join(r.cfg.OutputDir, "manifest.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("session: write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// postManifestWebhook POSTs the completed manifest to
// cfg.ManifestWebhookURL when configured. Failures are logged, not
// fatal: the run has already succeeded and written its files.
func (r *Runner) postManifestWebhook(m Manifest) {
	if r.webhook == nil {
		return
	}
	resp, err := r.webhook.R().SetBody(m).Post(r.cfg.ManifestWebhookURL)
	if err != nil {
		r.logger.Error("manifest webhook post failed", "error", err)
		return
	}
	if resp.IsError() {
		r.logger.Error("manifest webhook rejected", "status", resp.StatusCode())
	}
}
