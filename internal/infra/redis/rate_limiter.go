package redis

import (
	"context"
	"fmt"
	"time"
)

type RateLimiter struct {
	client Client
}

func NewRateLimiter(client Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// WebhookKey throttles redeliveries of a single payment event. A permanently
// failing payment_id is redelivered by the provider forever; the limiter keeps
// that from hammering the permission API without affecting bookkeeping.
func WebhookKey(paymentID string) string {
	return fmt.Sprintf("rate_limit:webhook:%s", paymentID)
}
