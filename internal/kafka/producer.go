package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes messages from a buffered inbox on a single goroutine.
// Writes go through a circuit breaker so a dead broker fails fast instead of
// stalling the loop on every message.
type Producer struct {
	w       messageWriter
	cb      *gobreaker.CircuitBreaker[struct{}]
	log     *slog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, buf int, log *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, buf, log)
}

func newProducer(w messageWriter, buf int, log *slog.Logger) *Producer {
	p := &Producer{
		w:       w,
		log:     log,
		timeout: 5 * time.Second,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
	p.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

// Start runs the write loop until Close is called and the inbox is drained.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			p.write(ctx, m)
		}
		if err := p.w.Close(); err != nil {
			p.log.Error("close kafka writer", "err", err)
		}
	}()
}

func (p *Producer) write(ctx context.Context, m kafka.Message) {
	// detached from ctx so queued messages still flush during shutdown
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.w.WriteMessages(wctx, m)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		p.log.Warn("kafka publish skipped, breaker open", "topic", m.Topic, "key", string(m.Key))
	case err != nil:
		p.log.Error("kafka publish failed", "topic", m.Topic, "key", string(m.Key), "err", err)
	}
}

// Publish queues a message. It never blocks: when the inbox is full or the
// producer is closed the message is dropped and logged.
func (p *Producer) Publish(topic string, key, value []byte) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("kafka publish after close", "topic", topic, "key", string(key))
		return
	}
	m := kafka.Message{Topic: topic, Key: key, Value: value, Time: time.Now()}
	select {
	case p.inbox <- m:
	default:
		p.log.Warn("kafka inbox full, dropping message", "topic", topic, "key", string(key))
	}
}

// Close stops accepting messages; the loop flushes what is queued and exits.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

func (p *Producer) WaitClosed() { <-p.closeCh }
