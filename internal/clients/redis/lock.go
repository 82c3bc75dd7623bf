package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/speakpath/speakpath-backend/internal/logger"
)

// DispatchLock is a short-TTL SetNX lock. The scoring webhook is delivered
// at-least-once, so the dispatcher takes a per-call lock before starting a
// workflow; duplicate deliveries inside the TTL are dropped.
type DispatchLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Close() error
}

type dispatchLock struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewDispatchLock(log *logger.Logger) (DispatchLock, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &dispatchLock{
		log: log.With("service", "RedisDispatchLock"),
		rdb: rdb,
	}, nil
}

func (l *dispatchLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("redis dispatch lock not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return false, fmt.Errorf("lock key required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return l.rdb.SetNX(ctx, key, "1", ttl).Result()
}

// Release drops the lock early so the holder's failure does not block
// redelivery for the rest of the TTL.
func (l *dispatchLock) Release(ctx context.Context, key string) error {
	if l == nil || l.rdb == nil {
		return fmt.Errorf("redis dispatch lock not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("lock key required")
	}
	return l.rdb.Del(ctx, key).Err()
}

func (l *dispatchLock) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
