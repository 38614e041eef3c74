package redis

import (
	"context"
	"fmt"
	"time"
)

// ProcessedCache is a read-through shortcut in front of the ledger's
// idempotency lookup. It is purely an optimization: a miss (or a redis outage)
// falls back to the ledger, and correctness still rests on the ledger's
// uniqueness constraint.
type ProcessedCache struct {
	client Client
	ttl    time.Duration
}

func NewProcessedCache(client Client, ttl time.Duration) *ProcessedCache {
	return &ProcessedCache{client: client, ttl: ttl}
}

func processedKey(paymentID string) string {
	return fmt.Sprintf("processed_payment:%s", paymentID)
}

// Seen reports whether this payment_id was recently recorded.
func (c *ProcessedCache) Seen(ctx context.Context, paymentID string) bool {
	if c == nil || c.client == nil {
		return false
	}
	_, err := c.client.Get(ctx, processedKey(paymentID))
	return err == nil
}

// Mark remembers a recorded payment_id. Errors are deliberately dropped: the
// cache must never fail processing.
func (c *ProcessedCache) Mark(ctx context.Context, paymentID string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, processedKey(paymentID), "1", c.ttl)
}
