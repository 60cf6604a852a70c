package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// StatusCache keeps order status snapshots for the status fast path.
type StatusCache struct {
	Client *redis.Client
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID string) (*orders.StatusSnapshot, error) {
	b, err := c.Client.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get status: %w", err)
	}
	var s orders.StatusSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal status: %w", err)
	}
	return &s, nil
}

// SetStatus stores s unless the order was deleted.
func (c *StatusCache) SetStatus(ctx context.Context, s orders.StatusSnapshot) error {
	return c.put(ctx, s, false)
}

// SetStatusIfNewer stores s unless the cached snapshot is more recent or the
// order was deleted. Events can arrive after a fresher write from the API.
func (c *StatusCache) SetStatusIfNewer(ctx context.Context, s orders.StatusSnapshot) error {
	return c.put(ctx, s, true)
}

const maxWatchRetries = 5

var errContended = errors.New("status key contended")

func (c *StatusCache) put(ctx context.Context, s orders.StatusSnapshot, onlyNewer bool) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	statusKey := fmt.Sprintf(KeyOrderStatus, s.OrderID)
	tombKey := fmt.Sprintf(KeyOrderDeleted, s.OrderID)

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, tombKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if onlyNewer {
			raw, err := tx.Get(ctx, statusKey).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			var cur orders.StatusSnapshot
			if err == nil && json.Unmarshal(raw, &cur) == nil && cur.UpdatedAt.After(s.UpdatedAt) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, statusKey, b, TTLStatusCache)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := c.Client.Watch(ctx, txf, statusKey, tombKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redis set status: %w", err)
		}
		return nil
	}
	return fmt.Errorf("redis set status %s: %w", s.OrderID, errContended)
}

// Forget drops the cached snapshot and leaves a tombstone, so snapshots
// written later for the same order are discarded.
func (c *StatusCache) Forget(ctx context.Context, orderID string) error {
	_, err := c.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, fmt.Sprintf(KeyOrderDeleted, orderID), "1", TTLTombstone)
		p.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis forget status: %w", err)
	}
	return nil
}

// Idempotency maps a customer's idempotency key to the order it produced.
type Idempotency struct {
	Client *redis.Client
}

func (i *Idempotency) Lookup(ctx context.Context, customerID, key string) (string, bool, error) {
	id, err := i.Client.Get(ctx, fmt.Sprintf(KeyIdemOrderPlace, customerID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get idempotency: %w", err)
	}
	return id, true, nil
}

func (i *Idempotency) Remember(ctx context.Context, customerID, key, orderID string) error {
	err := i.Client.SetNX(ctx, fmt.Sprintf(KeyIdemOrderPlace, customerID, key), orderID, TTLIdempotency).Err()
	if err != nil {
		return fmt.Errorf("redis set idempotency: %w", err)
	}
	return nil
}
