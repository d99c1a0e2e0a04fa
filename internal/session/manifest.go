package session

// SessionEntry is one day's result recorded in the manifest (spec §6.3).
type SessionEntry struct {
	Symbol     string `json:"symbol,omitempty"`
	Date       string `json:"date"`
	Seed       uint64 `json:"seed"`
	Filename   string `json:"filename"`
	Events     uint64 `json:"events"`
	OpenTicks  int32  `json:"open_ticks"`
	CloseTicks int32  `json:"close_ticks"`
}

// SecurityEntry describes one symbol in a multi-security manifest
// (spec §6.3, v1.1).
type SecurityEntry struct {
	Symbol  string `json:"symbol"`
	P0Ticks int32  `json:"p0_ticks"`
}

// Manifest is the JSON document written next to the log files at run
// completion (spec §6.3). FormatVersion is "1.0" for single-security
// runs and "1.1" for multi-security runs, which additionally populate
// Securities.
type Manifest struct {
	FormatVersion string          `json:"format_version"`
	RunID         string          `json:"run_id"`
	Producer      string          `json:"producer"`
	BaseSeed      uint64          `json:"base_seed"`
	SeedStrategy  string          `json:"seed_strategy"`
	TickSize      uint32          `json:"tick_size"`
	P0Ticks       int32           `json:"p0_ticks,omitempty"`
	Securities    []SecurityEntry `json:"securities,omitempty"`
	Sessions      []SessionEntry  `json:"sessions"`
}
