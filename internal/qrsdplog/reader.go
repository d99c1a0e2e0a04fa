package qrsdplog

import (
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"qrsdp/pkg/types"
)

// LogReader provides random-access and sequential reads over a
// .qrsdp file (spec §4.8). When the file was closed cleanly
// (HAS_INDEX set) it seeks straight to the chunks a query needs;
// otherwise it falls back to a sequential scan from offset 64,
// discarding any truncated tail.
type LogReader struct {
	f      *os.File
	Header FileHeader
	index  []IndexEntry // empty if the file has no usable index
}

// OpenLogReader opens path, validates the file header, and loads the
// index footer if present.
func OpenLogReader(path string) (*LogReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("qrsdplog: open %s: %w", path, err)
	}
	headerBuf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: read header: %v", ErrCorruptLog, err)
	}
	header, err := UnmarshalFileHeader(headerBuf)
	if err != nil {
		f.Close()
		return nil, err
	}

	r := &LogReader{f: f, Header: header}
	if header.HeaderFlags&HasIndex != 0 {
		idx, err := r.loadIndex()
		if err != nil {
			// A corrupt footer degrades to scan-fallback rather than failing
			// outright; the chunk stream itself may still be intact.
			r.index = nil
		} else {
			r.index = idx
		}
	}
	return r, nil
}

func (r *LogReader) loadIndex() ([]IndexEntry, error) {
	size, err := r.fileSize()
	if err != nil {
		return nil, err
	}
	if size < IndexTailSize {
		return nil, fmt.Errorf("%w: file too short for index tail", ErrCorruptLog)
	}
	tailBuf := make([]byte, IndexTailSize)
	if _, err := r.f.ReadAt(tailBuf, size-IndexTailSize); err != nil {
		return nil, fmt.Errorf("%w: read index tail: %v", ErrCorruptLog, err)
	}
	tail, err := UnmarshalIndexTail(tailBuf)
	if err != nil {
		return nil, err
	}

	entries := make([]IndexEntry, tail.ChunkCount)
	off := int64(tail.IndexStartOffset)
	for i := range entries {
		buf := make([]byte, IndexEntrySize)
		if _, err := r.f.ReadAt(buf, off); err != nil {
			return nil, fmt.Errorf("%w: read index entry %d: %v", ErrCorruptLog, i, err)
		}
		entry, err := UnmarshalIndexEntry(buf)
		if err != nil {
			return nil, err
		}
		entries[i] = entry
		off += IndexEntrySize
	}
	return entries, nil
}

func (r *LogReader) fileSize() (int64, error) {
	fi, err := r.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("qrsdplog: stat: %w", err)
	}
	return fi.Size(), nil
}

// HasIndex reports whether the reader is using the index footer
// rather than scan-fallback.
func (r *LogReader) HasIndex() bool { return r.index != nil }

// ChunkCount returns the number of chunks the index knows about; only
// meaningful when HasIndex is true.
func (r *LogReader) ChunkCount() int { return len(r.index) }

// ReadChunk decompresses a single chunk by index; O(chunk size).
// Requires an index (spec §4.8).
func (r *LogReader) ReadChunk(idx int) ([]types.DiskEventRecord, error) {
	if idx < 0 || idx >= len(r.index) {
		return nil, fmt.Errorf("qrsdplog: chunk index %d out of range [0, %d)", idx, len(r.index))
	}
	return r.readChunkAt(int64(r.index[idx].FileOffset))
}

func (r *LogReader) readChunkAt(offset int64) ([]types.DiskEventRecord, error) {
	headerBuf := make([]byte, ChunkHeaderSize)
	if _, err := r.f.ReadAt(headerBuf, offset); err != nil {
		return nil, fmt.Errorf("%w: read chunk header at %d: %v", ErrCorruptLog, offset, err)
	}
	ch, err := UnmarshalChunkHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, ch.CompressedSize)
	if _, err := r.f.ReadAt(payload, offset+ChunkHeaderSize); err != nil {
		return nil, fmt.Errorf("%w: read chunk payload at %d: %v", ErrCorruptLog, offset, err)
	}

	var raw []byte
	if ch.ChunkFlags&chunkFlagStored != 0 {
		raw = payload
	} else {
		raw = make([]byte, ch.UncompressedSize)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress chunk at %d: %v", ErrCorruptLog, offset, err)
		}
		raw = raw[:n]
	}

	return decodeRecords(raw, int(ch.RecordCount))
}

func decodeRecords(raw []byte, count int) ([]types.DiskEventRecord, error) {
	out := make([]types.DiskEventRecord, 0, count)
	for i := 0; i < count; i++ {
		start := i * types.DiskEventRecordSize
		end := start + types.DiskEventRecordSize
		if end > len(raw) {
			return nil, fmt.Errorf("%w: truncated record %d of %d", ErrCorruptLog, i, count)
		}
		rec, err := types.UnmarshalDiskEventRecord(raw[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptLog, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadRange scans the index for chunks whose [first_ts_ns, last_ts_ns]
// overlaps [tsStart, tsEnd] and decompresses only those; per-record
// filtering within a chunk is the caller's responsibility (spec §4.8).
// Falls back to a full scan when there is no usable index.
func (r *LogReader) ReadRange(tsStart, tsEnd uint64) ([]types.DiskEventRecord, error) {
	if !r.HasIndex() {
		return r.scanFallback(func(ch ChunkHeader) bool {
			return ch.FirstTsNs <= tsEnd && ch.LastTsNs >= tsStart
		})
	}

	var out []types.DiskEventRecord
	for i, e := range r.index {
		if e.FirstTsNs > tsEnd || e.LastTsNs < tsStart {
			continue
		}
		recs, err := r.ReadChunk(i)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// ReadAll is a sequential scan convenience returning every record.
func (r *LogReader) ReadAll() ([]types.DiskEventRecord, error) {
	if r.HasIndex() {
		var out []types.DiskEventRecord
		for i := range r.index {
			recs, err := r.ReadChunk(i)
			if err != nil {
				return nil, err
			}
			out = append(out, recs...)
		}
		return out, nil
	}
	return r.scanFallback(func(ChunkHeader) bool { return true })
}

// scanFallback walks chunks sequentially from offset 64, stopping at
// the first short/incomplete chunk header or payload rather than
// erroring: a crash mid-chunk leaves a truncated tail that is silently
// discarded (spec §4.8).
func (r *LogReader) scanFallback(keep func(ChunkHeader) bool) ([]types.DiskEventRecord, error) {
	size, err := r.fileSize()
	if err != nil {
		return nil, err
	}

	var out []types.DiskEventRecord
	offset := int64(FileHeaderSize)
	for offset+ChunkHeaderSize <= size {
		headerBuf := make([]byte, ChunkHeaderSize)
		if _, err := r.f.ReadAt(headerBuf, offset); err != nil {
			break
		}
		ch, err := UnmarshalChunkHeader(headerBuf)
		if err != nil {
			break
		}
		payloadEnd := offset + ChunkHeaderSize + int64(ch.CompressedSize)
		if payloadEnd > size {
			break
		}

		if keep(ch) {
			recs, err := r.readChunkAt(offset)
			if err != nil {
				break
			}
			out = append(out, recs...)
		}
		offset = payloadEnd
	}
	return out, nil
}

// Close releases the underlying file handle.
func (r *LogReader) Close() error {
	return r.f.Close()
}
