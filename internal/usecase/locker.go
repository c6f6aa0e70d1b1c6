package usecase

import (
	"context"
	"time"
)

// Locker is a distributed lock used to serialize webhook deliveries for
// the same provider event across instances. Implemented by infra/redis.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
