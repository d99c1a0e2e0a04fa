// Package qrsdplog implements the .qrsdp chunked, LZ4-compressed,
// seekable binary event-log format (spec §4.8, §6.2): a 64-byte file
// header, a sequence of compressed chunks, and an optional index
// footer that lets a reader seek straight to the chunks covering a
// timestamp range without decompressing the whole file.
package qrsdplog

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrCorruptLog marks a file that fails header validation or whose
// chunk stream is internally inconsistent.
var ErrCorruptLog = errors.New("qrsdplog: corrupt log")

// ErrShortWrite marks an underlying io.Writer that accepted fewer
// bytes than requested without itself returning an error.
var ErrShortWrite = errors.New("qrsdplog: short write")

const (
	magic        = "QRSDPLOG"
	versionMajor = 1
	versionMinor = 0

	// FileHeaderSize is the fixed 64-byte file header (spec §6.2).
	FileHeaderSize = 64
	// ChunkHeaderSize is the fixed 32-byte per-chunk header.
	ChunkHeaderSize = 32
	// IndexEntrySize is the fixed 32-byte per-chunk index record.
	IndexEntrySize = 32
	// IndexTailSize is the fixed 16-byte index-footer trailer.
	IndexTailSize = 16

	indexMagic = "QIDX"

	// HasIndex is header_flags bit 0: the index footer was written and
	// the reader can trust it instead of scanning.
	HasIndex uint32 = 1 << 0
)

// FileHeader is the 64-byte .qrsdp file header (spec §6.2).
type FileHeader struct {
	VersionMajor   uint16
	VersionMinor   uint16
	RecordSize     uint32
	Seed           uint64
	P0Ticks        int32
	TickSize       uint32
	SessionSeconds uint32
	LevelsPerSide  uint32
	InitialSpread  uint32
	InitialDepth   uint32
	ChunkCapacity  uint32
	HeaderFlags    uint32
	MarketOpenNs   uint64
}

// MarshalBinary encodes the header into the fixed 64-byte layout.
func (h FileHeader) MarshalBinary() []byte {
	buf := make([]byte, FileHeaderSize)
	copy(buf[0:8], magic)
	binary.LittleEndian.PutUint16(buf[8:10], h.VersionMajor)
	binary.LittleEndian.PutUint16(buf[10:12], h.VersionMinor)
	binary.LittleEndian.PutUint32(buf[12:16], h.RecordSize)
	binary.LittleEndian.PutUint64(buf[16:24], h.Seed)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.P0Ticks))
	binary.LittleEndian.PutUint32(buf[28:32], h.TickSize)
	binary.LittleEndian.PutUint32(buf[32:36], h.SessionSeconds)
	binary.LittleEndian.PutUint32(buf[36:40], h.LevelsPerSide)
	binary.LittleEndian.PutUint32(buf[40:44], h.InitialSpread)
	binary.LittleEndian.PutUint32(buf[44:48], h.InitialDepth)
	binary.LittleEndian.PutUint32(buf[48:52], h.ChunkCapacity)
	binary.LittleEndian.PutUint32(buf[52:56], h.HeaderFlags)
	binary.LittleEndian.PutUint64(buf[56:64], h.MarketOpenNs)
	return buf
}

// UnmarshalFileHeader decodes and validates a 64-byte file header.
func UnmarshalFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) < FileHeaderSize {
		return FileHeader{}, fmt.Errorf("%w: header too short (%d < %d)", ErrCorruptLog, len(buf), FileHeaderSize)
	}
	if string(buf[0:8]) != magic {
		return FileHeader{}, fmt.Errorf("%w: bad magic %q", ErrCorruptLog, buf[0:8])
	}
	h := FileHeader{
		VersionMajor:   binary.LittleEndian.Uint16(buf[8:10]),
		VersionMinor:   binary.LittleEndian.Uint16(buf[10:12]),
		RecordSize:     binary.LittleEndian.Uint32(buf[12:16]),
		Seed:           binary.LittleEndian.Uint64(buf[16:24]),
		P0Ticks:        int32(binary.LittleEndian.Uint32(buf[24:28])),
		TickSize:       binary.LittleEndian.Uint32(buf[28:32]),
		SessionSeconds: binary.LittleEndian.Uint32(buf[32:36]),
		LevelsPerSide:  binary.LittleEndian.Uint32(buf[36:40]),
		InitialSpread:  binary.LittleEndian.Uint32(buf[40:44]),
		InitialDepth:   binary.LittleEndian.Uint32(buf[44:48]),
		ChunkCapacity:  binary.LittleEndian.Uint32(buf[48:52]),
		HeaderFlags:    binary.LittleEndian.Uint32(buf[52:56]),
		MarketOpenNs:   binary.LittleEndian.Uint64(buf[56:64]),
	}
	if h.VersionMajor != versionMajor {
		return FileHeader{}, fmt.Errorf("%w: version major %d, want %d", ErrCorruptLog, h.VersionMajor, versionMajor)
	}
	if h.RecordSize != 26 {
		return FileHeader{}, fmt.Errorf("%w: record_size %d, want 26", ErrCorruptLog, h.RecordSize)
	}
	return h, nil
}

// ChunkHeader precedes every compressed chunk payload (spec §6.2).
type ChunkHeader struct {
	UncompressedSize uint32
	CompressedSize   uint32
	RecordCount      uint32
	ChunkFlags       uint32
	FirstTsNs        uint64
	LastTsNs         uint64
}

func (c ChunkHeader) MarshalBinary() []byte {
	buf := make([]byte, ChunkHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], c.UncompressedSize)
	binary.LittleEndian.PutUint32(buf[4:8], c.CompressedSize)
	binary.LittleEndian.PutUint32(buf[8:12], c.RecordCount)
	binary.LittleEndian.PutUint32(buf[12:16], c.ChunkFlags)
	binary.LittleEndian.PutUint64(buf[16:24], c.FirstTsNs)
	binary.LittleEndian.PutUint64(buf[24:32], c.LastTsNs)
	return buf
}

func UnmarshalChunkHeader(buf []byte) (ChunkHeader, error) {
	if len(buf) < ChunkHeaderSize {
		return ChunkHeader{}, fmt.Errorf("%w: chunk header too short", ErrCorruptLog)
	}
	return ChunkHeader{
		UncompressedSize: binary.LittleEndian.Uint32(buf[0:4]),
		CompressedSize:   binary.LittleEndian.Uint32(buf[4:8]),
		RecordCount:      binary.LittleEndian.Uint32(buf[8:12]),
		ChunkFlags:       binary.LittleEndian.Uint32(buf[12:16]),
		FirstTsNs:        binary.LittleEndian.Uint64(buf[16:24]),
		LastTsNs:         binary.LittleEndian.Uint64(buf[24:32]),
	}, nil
}

// IndexEntry locates one chunk in the file (spec §6.2).
type IndexEntry struct {
	FileOffset  uint64
	FirstTsNs   uint64
	LastTsNs    uint64
	RecordCount uint32
	Reserved    uint32
}

func (e IndexEntry) MarshalBinary() []byte {
	buf := make([]byte, IndexEntrySize)
	binary.LittleEndian.PutUint64(buf[0:8], e.FileOffset)
	binary.LittleEndian.PutUint64(buf[8:16], e.FirstTsNs)
	binary.LittleEndian.PutUint64(buf[16:24], e.LastTsNs)
	binary.LittleEndian.PutUint32(buf[24:28], e.RecordCount)
	binary.LittleEndian.PutUint32(buf[28:32], e.Reserved)
	return buf
}

func UnmarshalIndexEntry(buf []byte) (IndexEntry, error) {
	if len(buf) < IndexEntrySize {
		return IndexEntry{}, fmt.Errorf("%w: index entry too short", ErrCorruptLog)
	}
	return IndexEntry{
		FileOffset:  binary.LittleEndian.Uint64(buf[0:8]),
		FirstTsNs:   binary.LittleEndian.Uint64(buf[8:16]),
		LastTsNs:    binary.LittleEndian.Uint64(buf[16:24]),
		RecordCount: binary.LittleEndian.Uint32(buf[24:28]),
		Reserved:    binary.LittleEndian.Uint32(buf[28:32]),
	}, nil
}

// IndexTail is the 16-byte trailer that closes the index footer.
type IndexTail struct {
	ChunkCount       uint32
	IndexStartOffset uint64
}

func (t IndexTail) MarshalBinary() []byte {
	buf := make([]byte, IndexTailSize)
	binary.LittleEndian.PutUint32(buf[0:4], t.ChunkCount)
	copy(buf[4:8], indexMagic)
	binary.LittleEndian.PutUint64(buf[8:16], t.IndexStartOffset)
	return buf
}

func UnmarshalIndexTail(buf []byte) (IndexTail, error) {
	if len(buf) < IndexTailSize {
		return IndexTail{}, fmt.Errorf("%w: index tail too short", ErrCorruptLog)
	}
	if string(buf[4:8]) != indexMagic {
		return IndexTail{}, fmt.Errorf("%w: bad index magic %q", ErrCorruptLog, buf[4:8])
	}
	return IndexTail{
		ChunkCount:       binary.LittleEndian.Uint32(buf[0:4]),
		IndexStartOffset: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}
