package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter delivers messages to a topic.
type MessageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
	Close() error
}

// batchTimeout bounds how long a synchronous publish waits for a batch to fill.
const batchTimeout = 10 * time.Millisecond

// KafkaProducer lazily manages one writer per topic.
type KafkaProducer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a producer for brokers.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes msgs to topic, creating its writer on first use.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writerFor(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerFor(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}
	p.writers[topic] = w
	return w
}

// Close releases every writer and returns the first error.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}

// MemoryWriter keeps messages in memory. It backs the publisher when no
// brokers are configured.
type MemoryWriter struct {
	mu       sync.Mutex
	capacity int
	messages map[string][]kafka.Message
}

// NewMemoryWriter keeps at most capacity messages per topic; older ones are dropped.
func NewMemoryWriter(capacity int) *MemoryWriter {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryWriter{capacity: capacity, messages: make(map[string][]kafka.Message)}
}

// WriteMessages appends msgs to topic.
func (m *MemoryWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := append(m.messages[topic], msgs...)
	if over := len(buf) - m.capacity; over > 0 {
		buf = buf[over:]
	}
	m.messages[topic] = buf
	return nil
}

// Messages returns a copy of what was written to topic.
func (m *MemoryWriter) Messages(topic string) []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.messages[topic]...)
}

// Close is a no-op.
func (m *MemoryWriter) Close() error { return nil }
