// Package config defines the run configuration for the simulator and
// loads it from a YAML file with environment-variable overrides.
//
// Config is loaded the same way the teacher bot loads its trading
// config: viper.New() + SetConfigFile + mapstructure tags, plus
// SetEnvPrefix for override — here QRSDP_ instead of POLY_.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// TradingSession is the per-day, per-security set of parameters that
// drive one generation session (spec §3.1).
type TradingSession struct {
	Seed              uint64  `mapstructure:"seed"`
	P0Ticks           int32   `mapstructure:"p0_ticks"`
	SessionSeconds    uint32  `mapstructure:"session_seconds"`
	LevelsPerSide     int     `mapstructure:"levels_per_side"`
	TickSize          uint32  `mapstructure:"tick_size"`
	InitialSpread     int32   `mapstructure:"initial_spread_ticks"`
	InitialDepth      uint32  `mapstructure:"initial_depth"`
	MarketOpenNs      uint64  `mapstructure:"market_open_ns"`
	ChunkCapacity     uint32  `mapstructure:"chunk_capacity"`
	DepthRefill       string  `mapstructure:"depth_refill"` // "poisson" (default) or "constant"
	Intensity         IntensityConfig `mapstructure:"intensity"`
}

// IntensityConfig selects and parameterizes an IntensityModel variant.
// Kind is either "simple" (SimpleImbalance) or "curve" (CurveIntensity).
type IntensityConfig struct {
	Kind string `mapstructure:"kind"`

	// SimpleImbalance parameters (spec §4.3.1).
	BaseL float64 `mapstructure:"base_l"`
	BaseC float64 `mapstructure:"base_c"`
	BaseM float64 `mapstructure:"base_m"`
	SI    float64 `mapstructure:"s_i"`
	SC    float64 `mapstructure:"s_c"`
	Eps   float64 `mapstructure:"eps"`
	SS    float64 `mapstructure:"s_s"`

	// CurveIntensity parameters (spec §4.3.2).
	CurveFile string `mapstructure:"curve_file"`

	// AttributeSampler parameters (spec §4.5).
	LevelDecayAlpha float64 `mapstructure:"level_decay_alpha"`
	SpreadImproveC  float64 `mapstructure:"spread_improve_c"`
}

// DefaultIntensityConfig returns the SimpleImbalance defaults used when
// a TradingSession does not specify one.
func DefaultIntensityConfig() IntensityConfig {
	return IntensityConfig{
		Kind:            "simple",
		BaseL:           8,
		BaseC:           0.02,
		BaseM:           3,
		SI:              0.8,
		SC:              1.0,
		Eps:             0.1,
		SS:              0.35,
		LevelDecayAlpha: 0.6,
		SpreadImproveC:  0.3,
	}
}

// DefaultTradingSession returns a single-security session template with
// reasonable defaults, the same role as the teacher's zero-value
// Config before Load overlays the YAML file.
func DefaultTradingSession() TradingSession {
	return TradingSession{
		SessionSeconds: 23400, // 6.5h NYSE-length session
		LevelsPerSide:  5,
		TickSize:       100,
		InitialSpread:  2,
		InitialDepth:   5,
		ChunkCapacity:  4096,
		DepthRefill:    "poisson",
		Intensity:      DefaultIntensityConfig(),
	}
}

// SecurityConfig names one security and its opening mid price in ticks.
// All securities share RunConfig's TradingSession template across their
// days.
type SecurityConfig struct {
	Symbol  string         `mapstructure:"symbol"`
	P0Ticks int32          `mapstructure:"p0_ticks"`
}

// WireConfig controls the optional ITCH/MoldUDP64 network wire sink.
type WireConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr"`        // "239.1.1.1:5001" default multicast group/port
	SessionID  string `mapstructure:"session_id"`  // 10-byte MoldUDP64 session id
	MTU        int    `mapstructure:"mtu"`         // default 1400
	StockLocate uint16 `mapstructure:"stock_locate"`
}

// RunConfig is the top-level configuration for a qrsdp_run invocation
// (spec §3.1, §6.1).
type RunConfig struct {
	BaseSeed  uint64 `mapstructure:"base_seed"`
	OutputDir string `mapstructure:"output_dir"`
	StartDate string `mapstructure:"start_date"` // ISO YYYY-MM-DD
	NumDays   int    `mapstructure:"num_days"`

	// Session is the shared TradingSession template and is always
	// required. Securities, when non-empty, switches the run to
	// multi-security mode: each symbol gets a copy of Session with its
	// own P0Ticks overlaid (see Sessions). Validate enforces this.
	Session    *TradingSession  `mapstructure:"session"`
	Securities []SecurityConfig `mapstructure:"securities"`

	Wire WireConfig `mapstructure:"wire"`

	Realtime        bool    `mapstructure:"realtime"`
	SpeedMultiplier float64 `mapstructure:"speed"`

	// ManifestWebhookURL, if set, receives an HTTP POST of the
	// completed run manifest (see SPEC_FULL.md §2).
	ManifestWebhookURL string `mapstructure:"manifest_webhook_url"`
}

// IsMultiSecurity reports whether this run targets more than one symbol.
func (c RunConfig) IsMultiSecurity() bool {
	return len(c.Securities) > 0
}

// Load reads config from a YAML file with QRSDP_ environment overrides,
// the same two-step viper.ReadInConfig + Unmarshal pattern the teacher
// uses for its trading config.
func Load(path string) (*RunConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("QRSDP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := RunConfig{
		OutputDir: "out",
		NumDays:   1,
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if seed := os.Getenv("QRSDP_BASE_SEED"); seed != "" {
		if n, err := strconv.ParseUint(seed, 10, 64); err == nil {
			cfg.BaseSeed = n
		}
	}
	if dir := os.Getenv("QRSDP_OUTPUT_DIR"); dir != "" {
		cfg.OutputDir = dir
	}

	return &cfg, nil
}

// ErrInvalidSecurities marks a malformed --securities specification
// or config securities list (spec §7 ConfigurationError).
var ErrInvalidSecurities = fmt.Errorf("invalid securities configuration")

// Validate checks required fields and value ranges, mirroring the
// teacher's Config.Validate: one fmt.Errorf per failed constraint,
// checked in field order.
func (c *RunConfig) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.NumDays <= 0 {
		return fmt.Errorf("num_days must be > 0")
	}
	if c.StartDate == "" {
		return fmt.Errorf("start_date is required (YYYY-MM-DD)")
	}

	if c.Session == nil {
		return fmt.Errorf("session is required: it is the shared TradingSession template for both single- and multi-security runs")
	}
	multi := len(c.Securities) > 0

	sessions := c.Sessions()
	for i, ts := range sessions {
		if err := ts.Validate(); err != nil {
			return fmt.Errorf("session %d: %w", i, err)
		}
	}

	if multi {
		seen := make(map[string]bool, len(c.Securities))
		for _, s := range c.Securities {
			if s.Symbol == "" {
				return fmt.Errorf("%w: symbol must not be empty", ErrInvalidSecurities)
			}
			if seen[s.Symbol] {
				return fmt.Errorf("%w: duplicate symbol %q", ErrInvalidSecurities, s.Symbol)
			}
			seen[s.Symbol] = true
		}
	}

	if c.Wire.Enabled {
		if c.Wire.Addr == "" {
			return fmt.Errorf("wire.addr is required when wire.enabled")
		}
		if c.Wire.MTU <= 0 {
			return fmt.Errorf("wire.mtu must be > 0 when wire.enabled")
		}
	}

	return nil
}

// Sessions returns the effective TradingSession template(s): the shared
// Session template once for a single-security run, or once per symbol
// (each a copy of Session with that symbol's P0Ticks) for a
// multi-security run.
func (c *RunConfig) Sessions() []TradingSession {
	if len(c.Securities) == 0 {
		return []TradingSession{*c.Session}
	}
	out := make([]TradingSession, len(c.Securities))
	for i, sec := range c.Securities {
		ts := *c.Session
		ts.P0Ticks = sec.P0Ticks
		out[i] = ts
	}
	return out
}

// Validate checks a single TradingSession's field ranges (spec §7:
// "levels_per_side outside [1, 64]" is explicitly called out).
func (t TradingSession) Validate() error {
	if t.LevelsPerSide < 1 || t.LevelsPerSide > 64 {
		return fmt.Errorf("levels_per_side must be in [1, 64], got %d", t.LevelsPerSide)
	}
	if t.SessionSeconds == 0 {
		return fmt.Errorf("session_seconds must be > 0")
	}
	if t.TickSize == 0 {
		return fmt.Errorf("tick_size must be > 0")
	}
	if t.InitialSpread < 1 {
		return fmt.Errorf("initial_spread_ticks must be >= 1")
	}
	if t.ChunkCapacity == 0 {
		return fmt.Errorf("chunk_capacity must be > 0")
	}
	switch t.Intensity.Kind {
	case "simple", "curve":
	default:
		return fmt.Errorf("intensity.kind must be \"simple\" or \"curve\", got %q", t.Intensity.Kind)
	}
	return nil
}
