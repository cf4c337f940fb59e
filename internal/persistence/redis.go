package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/config"
)

// sweepLockKey guards the deadline sweep so only one API instance runs it at
// a time. The value is informational; expiry is what releases a dead holder.
const sweepLockKey = "aftersales:sweep:leader"

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// AcquireSweepLock takes the sweep leader lock for ttl. It returns false when
// another instance already holds it.
func (r *Redis) AcquireSweepLock(ctx context.Context, ttl time.Duration) (bool, error) {
	if r == nil || r.Client == nil {
		return false, errors.New("redis client not configured")
	}
	return r.Client.SetNX(ctx, sweepLockKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// ReleaseSweepLock drops the sweep leader lock early so the next interval does
// not wait for the TTL to lapse.
func (r *Redis) ReleaseSweepLock(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Del(ctx, sweepLockKey).Err()
}
