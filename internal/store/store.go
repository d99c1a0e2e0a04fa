// Package store persists per-symbol wire counters (ITCH match numbers,
// MoldUDP64 sequence numbers) as JSON files, using the same atomic
// write pattern the teacher bot uses for positions: write to a .tmp
// file, then rename over the target so a crash never leaves a partial
// file (spec §4.9: "callers that need determinism across resumes must
// persist that counter themselves").
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// WireCounters is the persisted state for one symbol's network wire
// sink between runs.
type WireCounters struct {
	NextMatchNumber uint64 `json:"next_match_number"`
	NextSequence    uint64 `json:"next_sequence"`
}

// Store persists WireCounters to JSON files in a designated directory.
// All operations are mutex-protected to prevent concurrent file
// corruption (spec §5: one producer worker per security, but the
// store itself may be shared).
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates a store backed by dir, creating it if necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error { return nil }

func (s *Store) path(symbol string) string {
	return filepath.Join(s.dir, "wire_"+symbol+".json")
}

// SaveWireCounters atomically persists symbol's counters.
func (s *Store) SaveWireCounters(symbol string, c WireCounters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: marshal wire counters: %w", err)
	}

	path := s.path(symbol)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("store: write wire counters: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadWireCounters restores symbol's counters from disk. Returns
// counters of 1 and 1 and no error if nothing has been saved yet, so a
// fresh symbol starts its match number and sequence number at their
// spec-mandated defaults (1).
func (s *Store) LoadWireCounters(symbol string) (WireCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return WireCounters{NextMatchNumber: 1, NextSequence: 1}, nil
		}
		return WireCounters{}, fmt.Errorf("store: read wire counters: %w", err)
	}

	var c WireCounters
	if err := json.Unmarshal(data, &c); err != nil {
		return WireCounters{}, fmt.Errorf("store: unmarshal wire counters: %w", err)
	}
	return c, nil
}
