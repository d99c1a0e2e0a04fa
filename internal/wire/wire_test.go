package wire

import (
	"net"
	"testing"
	"time"

	"qrsdp/internal/itch"
	"qrsdp/pkg/types"
)

func TestNetworkWireSinkLoopbackUDP(t *testing.T) {
	t.Parallel()

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer listener.Close()

	encoder := itch.NewEncoder("AAPL", 0, 100)
	s, err := Dial(listener.LocalAddr().String(), encoder, "SESSION1", moldUDPTestMTU)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer s.Close()

	rec := types.EventRecord{Type: types.AddBid, TsNs: 1000, OrderID: 1, PriceTicks: 100, Qty: 5}
	if err := s.Append(rec); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	buf := make([]byte, 2048)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("did not receive datagram: %v", err)
	}
	if n < 20 {
		t.Fatalf("datagram too short: %d bytes", n)
	}
	if string(buf[0:8]) != "SESSION1" {
		t.Fatalf("session id = %q", buf[0:8])
	}
}

const moldUDPTestMTU = 1400

func TestSendStartOfSessionEmitsControlMessages(t *testing.T) {
	t.Parallel()

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer listener.Close()

	encoder := itch.NewEncoder("AAPL", 0, 100)
	s, err := Dial(listener.LocalAddr().String(), encoder, "SESSION1", moldUDPTestMTU)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer s.Close()

	s.SendStartOfSession(0)
	if err := s.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	buf := make([]byte, 2048)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("did not receive datagram: %v", err)
	}
	if n < 20 {
		t.Fatalf("datagram too short: %d bytes", n)
	}
	// Two framed messages (System Event + Stock Directory), each behind
	// its own 2-byte length prefix, should follow the 20-byte MoldUDP64
	// header, whose last 2 bytes are the message count.
	if n <= 20 {
		t.Fatalf("expected message payload beyond the header, got %d bytes", n)
	}
}
