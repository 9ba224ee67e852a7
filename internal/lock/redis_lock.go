package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when its value matches the caller's
// token, so a slow worker cannot release a lock that was taken over after
// its TTL expired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker on a shared Redis instance. SET NX PX makes
// acquisition atomic across processes; expiry handles crashed owners.
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key Key, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("ttl must be > 0")
	}

	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key.String(), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAlreadyHeld
	}
	return token, nil
}

func (l *RedisLocker) Release(ctx context.Context, key Key, token string) error {
	deleted, err := releaseScript.Run(ctx, l.rdb, []string{key.String()}, token).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotOwner
	}
	return nil
}
