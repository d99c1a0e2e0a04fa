package qrsdplog

import (
	"fmt"
	"os"

	"github.com/pierrec/lz4/v4"

	"qrsdp/pkg/types"
)

// BinaryFileSink writes the .qrsdp chunked LZ4-compressed format (spec
// §4.7, §4.8, §6.2). It buffers up to chunk_capacity records in
// memory, compresses the buffer as one LZ4 block per chunk, and on
// Close writes the index footer and sets the HAS_INDEX header bit.
type BinaryFileSink struct {
	f      *os.File
	header FileHeader

	buf      []types.DiskEventRecord
	capacity int

	offset     int64 // current write offset, starts after the file header
	chunkIndex []IndexEntry

	compressor lz4.Compressor
	closed     bool
}

// NewBinaryFileSink creates path, writes the file header (with
// HAS_INDEX unset), and returns a sink ready to accept records.
func NewBinaryFileSink(path string, header FileHeader) (*BinaryFileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("qrsdplog: create %s: %w", path, err)
	}
	header.RecordSize = types.DiskEventRecordSize
	header.VersionMajor = versionMajor
	header.VersionMinor = versionMinor
	header.HeaderFlags &^= HasIndex

	if n, err := f.Write(header.MarshalBinary()); err != nil || n != FileHeaderSize {
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("qrsdplog: write header: %w", err)
		}
		return nil, fmt.Errorf("qrsdplog: write header: %w", ErrShortWrite)
	}

	capacity := int(header.ChunkCapacity)
	if capacity <= 0 {
		capacity = 4096
	}

	return &BinaryFileSink{
		f:        f,
		header:   header,
		capacity: capacity,
		offset:   FileHeaderSize,
	}, nil
}

// Append buffers r; once chunk_capacity records have accumulated, the
// buffer is flushed as one compressed chunk.
func (s *BinaryFileSink) Append(r types.EventRecord) error {
	s.buf = append(s.buf, r.ToDisk())
	if len(s.buf) >= s.capacity {
		return s.flushChunk()
	}
	return nil
}

// Flush writes any partially-filled chunk buffer to disk without
// closing the file.
func (s *BinaryFileSink) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	return s.flushChunk()
}

func (s *BinaryFileSink) flushChunk() error {
	raw := make([]byte, 0, len(s.buf)*types.DiskEventRecordSize)
	for _, d := range s.buf {
		raw = append(raw, d.MarshalBinary()...)
	}

	dst := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := s.compressor.CompressBlock(raw, dst)
	if err != nil {
		return fmt.Errorf("qrsdplog: compress chunk: %w", err)
	}
	compressed := dst[:n]
	// Incompressible input: lz4 signals this by returning n == 0.
	if n == 0 {
		compressed = raw
	}

	ch := ChunkHeader{
		UncompressedSize: uint32(len(raw)),
		CompressedSize:   uint32(len(compressed)),
		RecordCount:      uint32(len(s.buf)),
		FirstTsNs:        s.buf[0].TsNs,
		LastTsNs:         s.buf[len(s.buf)-1].TsNs,
	}
	if n == 0 {
		ch.ChunkFlags |= chunkFlagStored
	}

	headerBytes := ch.MarshalBinary()
	if nw, err := s.f.Write(headerBytes); err != nil || nw != len(headerBytes) {
		return writeErr(err, nw, len(headerBytes))
	}
	if nw, err := s.f.Write(compressed); err != nil || nw != len(compressed) {
		return writeErr(err, nw, len(compressed))
	}

	s.chunkIndex = append(s.chunkIndex, IndexEntry{
		FileOffset:  uint64(s.offset),
		FirstTsNs:   ch.FirstTsNs,
		LastTsNs:    ch.LastTsNs,
		RecordCount: ch.RecordCount,
	})
	s.offset += int64(len(headerBytes)) + int64(len(compressed))
	s.buf = s.buf[:0]
	return nil
}

func writeErr(err error, n, want int) error {
	if err != nil {
		return fmt.Errorf("qrsdplog: write: %w", err)
	}
	if n != want {
		return fmt.Errorf("qrsdplog: wrote %d of %d bytes: %w", n, want, ErrShortWrite)
	}
	return nil
}

// Close flushes any remaining buffered records, writes the index
// footer, sets HAS_INDEX in the file header, and closes the file
// (spec §4.8).
func (s *BinaryFileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.Flush(); err != nil {
		s.f.Close()
		return err
	}

	indexStart := s.offset
	for _, e := range s.chunkIndex {
		b := e.MarshalBinary()
		if n, err := s.f.Write(b); err != nil || n != len(b) {
			s.f.Close()
			return writeErr(err, n, len(b))
		}
	}
	tail := IndexTail{ChunkCount: uint32(len(s.chunkIndex)), IndexStartOffset: uint64(indexStart)}
	tb := tail.MarshalBinary()
	if n, err := s.f.Write(tb); err != nil || n != len(tb) {
		s.f.Close()
		return writeErr(err, n, len(tb))
	}

	s.header.HeaderFlags |= HasIndex
	if _, err := s.f.WriteAt(s.header.MarshalBinary(), 0); err != nil {
		s.f.Close()
		return fmt.Errorf("qrsdplog: rewrite header: %w", err)
	}

	return s.f.Close()
}

// chunkFlagStored marks a chunk whose payload was stored uncompressed
// because LZ4 could not shrink it.
const chunkFlagStored uint32 = 1 << 0
