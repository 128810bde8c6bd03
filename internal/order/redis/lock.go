package redis

import (
	"context"
	"fmt"
	"time"

	"ms-booking/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Second

// releaseScript deletes the key only if it still holds the caller's token, so
// a lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// OrderLock serializes status changes of a single order across instances.
type OrderLock struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewOrderLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *OrderLock {
	if ttl <= 0 {
		log.Warn("REDIS", fmt.Sprintf("Invalid order lock TTL %s, using default %s", ttl, defaultLockTTL))
		ttl = defaultLockTTL
	}
	return &OrderLock{
		Client: client,
		TTL:    ttl,
		Logger: log,
	}
}

func lockKey(orderID string) string {
	return "order_lock:" + orderID
}

// Acquire takes the lock for orderID. It returns the token needed to release
// it, or ok=false if another holder has it.
func (l *OrderLock) Acquire(ctx context.Context, orderID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, lockKey(orderID), token, l.TTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire order lock %s: %w", orderID, err)
	}
	if !ok {
		l.Logger.Debug("REDIS", fmt.Sprintf("Order %s is locked by another request", orderID))
		return "", false, nil
	}
	return token, true, nil
}

// Release frees the lock if token still owns it.
func (l *OrderLock) Release(ctx context.Context, orderID, token string) error {
	n, err := releaseScript.Run(ctx, l.Client, []string{lockKey(orderID)}, token).Int()
	if err != nil {
		return fmt.Errorf("release order lock %s: %w", orderID, err)
	}
	if n == 0 {
		l.Logger.Warn("REDIS", fmt.Sprintf("Order lock %s expired before release", orderID))
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (l *OrderLock) Ping(ctx context.Context) error {
	return l.Client.Ping(ctx).Err()
}
