package sink

import (
	"errors"
	"log/slog"
	"testing"

	"qrsdp/pkg/types"
)

type failingSink struct {
	appendErr error
	flushErr  error
	closeErr  error
	appended  int
}

func (f *failingSink) Append(types.EventRecord) error {
	f.appended++
	return f.appendErr
}
func (f *failingSink) Flush() error { return f.flushErr }
func (f *failingSink) Close() error { return f.closeErr }

func TestMemorySinkAppendsInOrder(t *testing.T) {
	t.Parallel()
	m := NewMemorySink()
	for i := uint64(1); i <= 3; i++ {
		if err := m.Append(types.EventRecord{OrderID: i}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(m.Records) != 3 {
		t.Fatalf("len = %d, want 3", len(m.Records))
	}
	for i, r := range m.Records {
		if r.OrderID != uint64(i+1) {
			t.Fatalf("record %d order id = %d, want %d", i, r.OrderID, i+1)
		}
	}
}

func TestFanOutSinkForwardsToAll(t *testing.T) {
	t.Parallel()
	a, b := NewMemorySink(), NewMemorySink()
	f := NewFanOutSink(slog.Default(), a, b)
	if err := f.Append(types.EventRecord{OrderID: 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Records) != 1 || len(b.Records) != 1 {
		t.Fatalf("expected both sinks to receive the event: a=%d b=%d", len(a.Records), len(b.Records))
	}
}

func TestFanOutSinkOneFailureDoesNotBlockOthers(t *testing.T) {
	t.Parallel()
	bad := &failingSink{appendErr: errors.New("boom")}
	good := NewMemorySink()
	f := NewFanOutSink(slog.Default(), bad, good)

	if err := f.Append(types.EventRecord{OrderID: 1}); err != nil {
		t.Fatalf("fan-out append itself should not fail: %v", err)
	}
	if bad.appended != 1 {
		t.Fatalf("bad sink should still have been called")
	}
	if len(good.Records) != 1 {
		t.Fatalf("good sink should have received the event despite bad sink's failure")
	}
}

func TestFanOutSinkFlushAndCloseToleratePerSinkFailure(t *testing.T) {
	t.Parallel()
	bad := &failingSink{flushErr: errors.New("flush boom"), closeErr: errors.New("close boom")}
	good := NewMemorySink()
	f := NewFanOutSink(slog.Default(), bad, good)

	if err := f.Flush(); err != nil {
		t.Fatalf("fan-out flush should not propagate per-sink errors: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("fan-out close should not propagate per-sink errors: %v", err)
	}
}

type recordingPublisher struct {
	topic string
	key   []byte
	value []byte
}

func (p *recordingPublisher) Publish(topic string, key, value []byte) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func TestMessageBusSinkPublishesDiskRecord(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	s := NewMessageBusSink(pub, "qrsdp.events", []byte("AAPL"))
	rec := types.EventRecord{TsNs: 123, Type: types.AddBid, Side: types.SideBid, PriceTicks: 10000, Qty: 1, OrderID: 1}
	if err := s.Append(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.topic != "qrsdp.events" {
		t.Fatalf("topic = %q", pub.topic)
	}
	if len(pub.value) != types.DiskEventRecordSize {
		t.Fatalf("payload size = %d, want %d", len(pub.value), types.DiskEventRecordSize)
	}
}
