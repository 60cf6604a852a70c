package kafka

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler returns nil only when the message was processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       messageReader
	workers int
	log     *slog.Logger
	backoff time.Duration
	retries int
}

func NewConsumer(brokers []string, group string, topics []string, workers int, log *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		GroupTopics:    topics,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, log)
}

func newConsumer(r messageReader, workers int, log *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log, backoff: 200 * time.Millisecond, retries: 3}
}

// Start fetches messages and hands them to the worker pool until ctx is
// cancelled or the reader fails. Messages with the same key always go to the
// same worker, so they are handled in partition order. A failing message is
// retried in place; once retries run out it is logged and skipped, and later
// offsets of its partition commit past it. Workers are drained before Start
// returns.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 128)
		wg.Add(1)
		go func(id int, jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if err := c.handle(ctx, id, h, m); err != nil {
					c.log.Error("drop message after retries", "worker", id, "topic", m.Topic,
						"partition", m.Partition, "offset", m.Offset, "key", string(m.Key), "err", err)
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil && !errors.Is(err, context.Canceled) {
					c.log.Error("commit offset", "worker", id, "topic", m.Topic, "offset", m.Offset, "err", err)
				}
			}
		}(i, lanes[i])
	}
	stop := func() {
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[c.lane(m)] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, worker int, h Handler, m kafka.Message) error {
	err := h(ctx, m)
	for attempt := 1; err != nil && attempt <= c.retries; attempt++ {
		c.log.Warn("handle message", "worker", worker, "topic", m.Topic, "offset", m.Offset,
			"attempt", attempt, "err", err)
		select {
		case <-time.After(time.Duration(attempt) * c.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		err = h(ctx, m)
	}
	return err
}

// lane picks the worker for m by key, falling back to the partition.
func (c *Consumer) lane(m kafka.Message) int {
	if len(m.Key) == 0 {
		return m.Partition % c.workers
	}
	f := fnv.New32a()
	f.Write(m.Key)
	return int(f.Sum32() % uint32(c.workers))
}
