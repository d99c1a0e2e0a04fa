// qrsdp_cli generates a single trading session and writes it to one
// .qrsdp file. It is the minimal entry point for spec §4.1: given a
// seed and a session length, produce a deterministic event stream.
//
//	qrsdp_cli <seed> <seconds> [output.qrsdp]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"qrsdp/internal/config"
	"qrsdp/internal/intensity"
	"qrsdp/internal/producer"
	"qrsdp/internal/qrsdplog"
)

func main() {
	levels := flag.Int("levels", 5, "levels per side")
	p0 := flag.Int64("p0", 10000, "opening mid price, in ticks")
	tickSize := flag.Uint("tick-size", 100, "tick size in scaled price units")
	chunkCap := flag.Uint("chunk-size", 4096, "records per compressed chunk")
	depthRefill := flag.String("depth-refill", "poisson", "poisson or constant")
	curveFile := flag.String("curve-file", "", "path to a CurveIntensity JSON file; empty uses SimpleImbalance")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: qrsdp_cli [flags] <seed> <seconds> [output.qrsdp]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	seed, err := parseUint(args[0])
	if err != nil {
		slog.Error("invalid seed", "error", err)
		os.Exit(2)
	}
	seconds, err := parseUint(args[1])
	if err != nil {
		slog.Error("invalid seconds", "error", err)
		os.Exit(2)
	}
	outPath := "session.qrsdp"
	if len(args) >= 3 {
		outPath = args[2]
	}

	ts := config.DefaultTradingSession()
	ts.Seed = seed
	ts.SessionSeconds = uint32(seconds)
	ts.LevelsPerSide = *levels
	ts.P0Ticks = int32(*p0)
	ts.TickSize = uint32(*tickSize)
	ts.ChunkCapacity = uint32(*chunkCap)
	ts.DepthRefill = *depthRefill
	if *curveFile != "" {
		ts.Intensity.Kind = "curve"
		ts.Intensity.CurveFile = *curveFile
	}
	if err := ts.Validate(); err != nil {
		slog.Error("invalid session parameters", "error", err)
		os.Exit(2)
	}

	model := buildModel(ts)

	header := qrsdplog.FileHeader{
		Seed: ts.Seed, P0Ticks: ts.P0Ticks, TickSize: ts.TickSize,
		SessionSeconds: ts.SessionSeconds, LevelsPerSide: uint32(ts.LevelsPerSide),
		InitialSpread: uint32(ts.InitialSpread), InitialDepth: ts.InitialDepth,
		ChunkCapacity: ts.ChunkCapacity, MarketOpenNs: ts.MarketOpenNs,
	}
	fileSink, err := qrsdplog.NewBinaryFileSink(outPath, header)
	if err != nil {
		slog.Error("create output file", "error", err)
		os.Exit(1)
	}

	p := producer.New(ts, model)
	result, err := p.RunSession(ts.P0Ticks, fileSink)
	closeErr := fileSink.Close()
	if err != nil {
		slog.Error("run session", "error", err)
		os.Exit(1)
	}
	if closeErr != nil {
		slog.Error("close output file", "error", closeErr)
		os.Exit(1)
	}

	slog.Info("session complete",
		"output", outPath, "seed", seed, "events", result.EventsWritten,
		"open_ticks", ts.P0Ticks, "close_ticks", result.CloseTicks)
}

func buildModel(ts config.TradingSession) intensity.Model {
	ic := ts.Intensity
	if ic.Kind == "curve" {
		if ic.CurveFile != "" {
			if m, err := intensity.LoadCurveFile(ic.CurveFile); err == nil {
				return m
			}
			slog.Warn("failed to load curve file, falling back to default curve", "path", ic.CurveFile)
		}
		return intensity.DefaultCurveIntensity(ts.LevelsPerSide, ic.SI, ic.SS)
	}
	return intensity.NewSimpleImbalance(ic.BaseL, ic.BaseC, ic.BaseM, ic.SI, ic.SC, ic.Eps, ic.SS)
}

func parseUint(s string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "%d", &v)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}
