package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/portal-service/internal/lifecycle"
)

// releaseScript deletes the lease only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisEntityLocker implements lifecycle.EntityLocker with Redis leases, for
// deployments running more than one replica. The lease TTL bounds how long a
// crashed holder can block an entity.
type RedisEntityLocker struct {
	client     *redis.Client
	logger     *zap.Logger
	leaseTTL   time.Duration
	retryEvery time.Duration
}

// NewRedisEntityLocker builds the locker.
func NewRedisEntityLocker(client *redis.Client, leaseTTL time.Duration, logger *zap.Logger) *RedisEntityLocker {
	if leaseTTL <= 0 {
		leaseTTL = 15 * time.Second
	}
	return &RedisEntityLocker{
		client:     client,
		logger:     logger,
		leaseTTL:   leaseTTL,
		retryEvery: 25 * time.Millisecond,
	}
}

// Acquire polls SET NX until the lease is obtained or ctx expires.
func (l *RedisEntityLocker) Acquire(ctx context.Context, key string) (func(), error) {
	leaseKey := "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryEvery)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, leaseKey, token, l.leaseTTL).Result()
		if err != nil {
			return nil, &lifecycle.Failure{Code: lifecycle.FailureCollaboratorUnavailable, Detail: "acquire lease", Err: err}
		}
		if ok {
			return func() {
				if err := releaseScript.Run(context.Background(), l.client, []string{leaseKey}, token).Err(); err != nil {
					l.logger.Warn("failed to release entity lease", zap.String("key", leaseKey), zap.Error(err))
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, &lifecycle.Failure{Code: lifecycle.FailureBusy, Detail: key}
		case <-ticker.C:
		}
	}
}
