package sink

import "qrsdp/pkg/types"

// Publisher is the minimal capability MessageBusSink needs from a
// message broker client: publish a key/value pair to a topic,
// best-effort and async.
type Publisher interface {
	Publish(topic string, key []byte, value []byte) error
}

// MessageBusSink serialises each event as the 26-byte DiskEventRecord
// and publishes it to a topic with the symbol as key. This is a
// sketch (spec §4.7): out of normative scope, not wired into
// SessionRunner, and intentionally left without a concrete Publisher
// implementation (see DESIGN.md).
type MessageBusSink struct {
	Pub   Publisher
	Topic string
	Key   []byte
}

func NewMessageBusSink(pub Publisher, topic string, symbolKey []byte) *MessageBusSink {
	return &MessageBusSink{Pub: pub, Topic: topic, Key: symbolKey}
}

func (m *MessageBusSink) Append(r types.EventRecord) error {
	payload := r.ToDisk().MarshalBinary()
	return m.Pub.Publish(m.Topic, m.Key, payload)
}

func (m *MessageBusSink) Flush() error { return nil }
func (m *MessageBusSink) Close() error { return nil }
