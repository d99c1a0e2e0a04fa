package itch

import (
	"encoding/binary"
	"testing"

	"qrsdp/pkg/types"
)

func TestEncodeAddMatchesLiteralScenario(t *testing.T) {
	t.Parallel()
	e := NewEncoder("AAPL", 0, 100)
	rec := types.EventRecord{
		Type: types.AddBid, TsNs: 1000000, OrderID: 42, PriceTicks: 10050, Qty: 10,
	}
	buf, err := e.Encode(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) != 36 {
		t.Fatalf("len = %d, want 36", len(buf))
	}
	if buf[0] != 'A' {
		t.Fatalf("byte 0 = %q, want 'A'", buf[0])
	}
	if got := binary.BigEndian.Uint64(buf[11:19]); got != 42 {
		t.Fatalf("order ref = %d, want 42", got)
	}
	if buf[19] != 'B' {
		t.Fatalf("side byte = %q, want 'B'", buf[19])
	}
	if got := binary.BigEndian.Uint32(buf[20:24]); got != 10 {
		t.Fatalf("shares = %d, want 10", got)
	}
	if string(buf[24:32]) != "AAPL    " {
		t.Fatalf("stock = %q, want %q", buf[24:32], "AAPL    ")
	}
	if got := binary.BigEndian.Uint32(buf[32:36]); got != 1005000 {
		t.Fatalf("price = %d, want 1005000", got)
	}
}

func TestEncodeAddAskSideByte(t *testing.T) {
	t.Parallel()
	e := NewEncoder("MSFT", 1, 100)
	buf, err := e.Encode(types.EventRecord{Type: types.AddAsk, OrderID: 1, PriceTicks: 100, Qty: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf[19] != 'S' {
		t.Fatalf("side byte = %q, want 'S'", buf[19])
	}
}

func TestEncodeDeleteSize(t *testing.T) {
	t.Parallel()
	e := NewEncoder("AAPL", 0, 100)
	buf, err := e.Encode(types.EventRecord{Type: types.CancelBid, OrderID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buf) != 19 {
		t.Fatalf("len = %d, want 19", len(buf))
	}
	if got := binary.BigEndian.Uint64(buf[11:19]); got != 7 {
		t.Fatalf("order ref = %d, want 7", got)
	}
}

func TestEncodeExecutedSizeAndMatchNumberMonotonic(t *testing.T) {
	t.Parallel()
	e := NewEncoder("AAPL", 0, 100)
	var prev uint64
	for i := 0; i < 5; i++ {
		buf, err := e.Encode(types.EventRecord{Type: types.ExecuteBuy, OrderID: uint64(i + 1), Qty: 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(buf) != 31 {
			t.Fatalf("len = %d, want 31", len(buf))
		}
		match := binary.BigEndian.Uint64(buf[23:31])
		if i == 0 && match != 1 {
			t.Fatalf("first match number = %d, want 1", match)
		}
		if match <= prev && i > 0 {
			t.Fatalf("match number not strictly increasing: %d <= %d", match, prev)
		}
		prev = match
	}
}

func TestEncodeSystemEventSize(t *testing.T) {
	t.Parallel()
	e := NewEncoder("AAPL", 0, 100)
	buf := e.EncodeSystemEvent(0, EventCodeStartOfSystem)
	if len(buf) != 12 {
		t.Fatalf("len = %d, want 12", len(buf))
	}
	if buf[0] != 'S' {
		t.Fatalf("byte 0 = %q, want 'S'", buf[0])
	}
	if buf[11] != EventCodeStartOfSystem {
		t.Fatalf("event code = %q", buf[11])
	}
}

func TestEncodeStockDirectorySize(t *testing.T) {
	t.Parallel()
	e := NewEncoder("MSFT", 3, 100)
	buf := e.EncodeStockDirectory(0)
	if len(buf) != 39 {
		t.Fatalf("len = %d, want 39", len(buf))
	}
	if buf[0] != 'R' {
		t.Fatalf("byte 0 = %q, want 'R'", buf[0])
	}
	if string(buf[11:19]) != "MSFT    " {
		t.Fatalf("stock = %q", buf[11:19])
	}
}

func TestEncodeUnsupportedEventType(t *testing.T) {
	t.Parallel()
	e := NewEncoder("AAPL", 0, 100)
	if _, err := e.Encode(types.EventRecord{Type: types.EventType(99)}); err == nil {
		t.Fatal("expected ErrUnsupportedEvent")
	}
}

func TestSymbolTruncatedToEightChars(t *testing.T) {
	t.Parallel()
	e := NewEncoder("TOOLONGNAME", 0, 100)
	buf, err := e.Encode(types.EventRecord{Type: types.AddBid, OrderID: 1, PriceTicks: 1, Qty: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(string(buf[24:32])) != 8 {
		t.Fatalf("stock field must be exactly 8 bytes")
	}
}
