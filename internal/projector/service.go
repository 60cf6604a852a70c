// Package projector keeps the Redis order-status cache in step with the
// order event stream.
package projector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type Recorder interface {
	EventProjected(eventType, result string)
}

type Service struct {
	Redis       *redis.Client
	Cache       *redisx.StatusCache
	Metrics     Recorder
	Log         *slog.Logger
	ServiceName string
}

// HandleEvent is installed as the consumer handler.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m)
	if err != nil {
		// poison message: log and let the offset move on
		s.Log.ErrorContext(ctx, "skip undecodable event", "topic", m.Topic, "offset", m.Offset, "err", err)
		s.record("unknown", "invalid")
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		s.record(env.EventType, "duplicate")
		return nil
	}

	if err := s.apply(ctx, env); err != nil {
		s.record(env.EventType, "error")
		return fmt.Errorf("project %s %s: %w", env.EventType, env.EventID, err)
	}

	if _, err := redisx.MarkOnce(ctx, s.Redis, s.ServiceName, env.EventID); err != nil {
		s.Log.WarnContext(ctx, "mark event processed", "event_id", env.EventID, "err", err)
	}
	s.record(env.EventType, "applied")
	return nil
}

func (s *Service) apply(ctx context.Context, env orders.Envelope) error {
	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.set(ctx, p.OrderID, p.CustomerID, p.Status, p.PlacedAt)
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.set(ctx, p.OrderID, p.CustomerID, p.To, p.ChangedAt)
	case orders.EventOrderCancelled:
		p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.set(ctx, p.OrderID, p.CustomerID, orders.StatusCancelled, p.At)
	case orders.EventOrderDeleted:
		p, err := kafkax.UnwrapPayload[orders.OrderDeletedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.Cache.Forget(ctx, p.OrderID)
	default:
		s.Log.DebugContext(ctx, "ignoring event", "event_type", env.EventType)
		return nil
	}
}

func (s *Service) set(ctx context.Context, orderID, customerID string, st orders.Status, at time.Time) error {
	return s.Cache.SetStatusIfNewer(ctx, orders.StatusSnapshot{
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     st,
		UpdatedAt:  at,
	})
}

func (s *Service) record(eventType, result string) {
	if s.Metrics != nil {
		s.Metrics.EventProjected(eventType, result)
	}
}
