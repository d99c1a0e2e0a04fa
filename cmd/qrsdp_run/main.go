// qrsdp_run drives a multi-day, optionally multi-security simulation
// run end to end via internal/session.Runner, writing one .qrsdp file
// per (security, day) plus a run manifest (spec §4.11, §6.3).
//
//	qrsdp_run --seed N --days N [--seconds N] [--p0 ticks] [--output dir]
//	          [--start-date YYYY-MM-DD] [--chunk-size N] [--depth N]
//	          [--levels N] [--securities SYM:P0,SYM:P0,...]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"qrsdp/internal/config"
	"qrsdp/internal/session"
)

func main() {
	seed := flag.Uint64("seed", 42, "base seed")
	days := flag.Int("days", 1, "number of trading days")
	seconds := flag.Uint("seconds", 23400, "session length in seconds")
	p0 := flag.Int64("p0", 10000, "opening mid price in ticks (single-security only)")
	output := flag.String("output", "out", "output directory")
	startDate := flag.String("start-date", "", "first trading day, YYYY-MM-DD (required)")
	chunkSize := flag.Uint("chunk-size", 4096, "records per compressed chunk")
	depth := flag.Uint("depth", 5, "initial depth per level")
	levels := flag.Int("levels", 5, "levels per side")
	depthRefill := flag.String("depth-refill", "poisson", "poisson or constant")
	securities := flag.String("securities", "", "comma-separated SYMBOL:P0TICKS pairs for a multi-security run")
	realtime := flag.Bool("realtime", false, "pace event emission to wall-clock time")
	speed := flag.Float64("speed", 1.0, "wall-clock speed multiplier when --realtime is set")
	webhook := flag.String("manifest-webhook", "", "URL to POST the completed manifest to")
	flag.Parse()

	if *startDate == "" {
		fmt.Fprintln(os.Stderr, "--start-date is required")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := &config.RunConfig{
		BaseSeed:           *seed,
		OutputDir:          *output,
		StartDate:          *startDate,
		NumDays:            *days,
		Realtime:           *realtime,
		SpeedMultiplier:    *speed,
		ManifestWebhookURL: *webhook,
	}

	secs, err := parseSecurities(*securities)
	if err != nil {
		logger.Error("invalid --securities", "error", err)
		os.Exit(2)
	}

	template := config.DefaultTradingSession()
	template.SessionSeconds = uint32(*seconds)
	template.LevelsPerSide = *levels
	template.InitialDepth = uint32(*depth)
	template.ChunkCapacity = uint32(*chunkSize)
	template.DepthRefill = *depthRefill

	if len(secs) > 0 {
		// Session is still required in multi-security mode: it is the
		// shared template the runner copies once per symbol, overlaying
		// each SecurityConfig's P0Ticks (spec §4.11).
		cfg.Securities = secs
	} else {
		template.P0Ticks = int32(*p0)
	}
	cfg.Session = &template

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	r := session.New(cfg, logger)
	manifest, err := r.Run(context.Background())
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run complete",
		"format_version", manifest.FormatVersion,
		"sessions", len(manifest.Sessions),
		"output", *output)
}

// parseSecurities parses "SYM:P0,SYM:P0,..." into SecurityConfig
// entries. An empty input yields a nil slice (single-security run).
func parseSecurities(spec string) ([]config.SecurityConfig, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	out := make([]config.SecurityConfig, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("%w: %q must be SYMBOL:P0TICKS", config.ErrInvalidSecurities, part)
		}
		p0, err := strconv.ParseInt(kv[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", config.ErrInvalidSecurities, part, err)
		}
		out = append(out, config.SecurityConfig{Symbol: kv[0], P0Ticks: int32(p0)})
	}
	return out, nil
}
