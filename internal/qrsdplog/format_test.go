package qrsdplog

import "testing"

func TestFileHeaderRoundTrip(t *testing.T) {
	t.Parallel()
	h := FileHeader{
		VersionMajor: 1, VersionMinor: 0, RecordSize: 26,
		Seed: 12345, P0Ticks: -10000, TickSize: 100,
		SessionSeconds: 23400, LevelsPerSide: 5, InitialSpread: 2,
		InitialDepth: 5, ChunkCapacity: 4096, HeaderFlags: HasIndex,
		MarketOpenNs: 34200000000000,
	}
	buf := h.MarshalBinary()
	if len(buf) != FileHeaderSize {
		t.Fatalf("len = %d, want %d", len(buf), FileHeaderSize)
	}
	got, err := UnmarshalFileHeader(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestUnmarshalFileHeaderRejectsBadMagic(t *testing.T) {
	t.Parallel()
	buf := make([]byte, FileHeaderSize)
	copy(buf, "GARBAGE!")
	if _, err := UnmarshalFileHeader(buf); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestUnmarshalFileHeaderRejectsWrongRecordSize(t *testing.T) {
	t.Parallel()
	h := FileHeader{VersionMajor: 1, RecordSize: 99}
	buf := h.MarshalBinary()
	if _, err := UnmarshalFileHeader(buf); err == nil {
		t.Fatal("expected error for wrong record_size")
	}
}

func TestChunkHeaderRoundTrip(t *testing.T) {
	t.Parallel()
	c := ChunkHeader{UncompressedSize: 1000, CompressedSize: 400, RecordCount: 10, FirstTsNs: 1, LastTsNs: 99}
	got, err := UnmarshalChunkHeader(c.MarshalBinary())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != c {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
	}
}

func TestIndexEntryRoundTrip(t *testing.T) {
	t.Parallel()
	e := IndexEntry{FileOffset: 64, FirstTsNs: 1, LastTsNs: 2, RecordCount: 5}
	got, err := UnmarshalIndexEntry(e.MarshalBinary())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != e {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestIndexTailRoundTrip(t *testing.T) {
	t.Parallel()
	tail := IndexTail{ChunkCount: 3, IndexStartOffset: 4096}
	got, err := UnmarshalIndexTail(tail.MarshalBinary())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != tail {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, tail)
	}
}

func TestIndexTailRejectsBadMagic(t *testing.T) {
	t.Parallel()
	buf := make([]byte, IndexTailSize)
	copy(buf[4:8], "XXXX")
	if _, err := UnmarshalIndexTail(buf); err == nil {
		t.Fatal("expected error for bad index magic")
	}
}
