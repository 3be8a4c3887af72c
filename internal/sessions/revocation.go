package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations tracks revoked bearer tokens in Redis. A nil client turns
// every operation into a no-op.
type Revocations struct {
	client *redis.Client
}

func NewRevocations(c *redis.Client) *Revocations {
	return &Revocations{client: c}
}

// Revoke stores the token in the blacklist for ttl.
func (r *Revocations) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if r == nil || r.client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return r.client.Set(ctx, "blacklist:access:"+token, "1", ttl).Err()
}

// IsRevoked returns true when the token exists in the blacklist.
func (r *Revocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	exists, err := r.client.Exists(ctx, "blacklist:access:"+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Enabled reports whether revocations are persisted anywhere.
func (r *Revocations) Enabled() bool { return r != nil && r.client != nil }
