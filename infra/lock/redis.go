// Package lock provides distributed Locker backends for the dispatch
// executor.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/anhkiet307/swapstation/core/dispatch"
	"github.com/anhkiet307/swapstation/core/factory"
	"github.com/anhkiet307/swapstation/core/logger"
	infralogger "github.com/anhkiet307/swapstation/infra/logger"
)

// acquireScript sets every key to the owner token only when none of them
// exists.
var acquireScript = redis.NewScript(`
for i, k in ipairs(KEYS) do
  if redis.call("EXISTS", k) == 1 then
    return 0
  end
end
for i, k in ipairs(KEYS) do
  redis.call("SET", k, ARGV[1], "PX", ARGV[2])
end
return 1`)

// releaseScript deletes the keys still owned by the token.
var releaseScript = redis.NewScript(`
local n = 0
for i, k in ipairs(KEYS) do
  if redis.call("GET", k) == ARGV[1] then
    n = n + redis.call("DEL", k)
  end
end
return n`)

// RedisLocker acquires slot keys on a shared Redis so several service
// instances never swap the same slot at once.
type RedisLocker struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	log    logger.Logger
}

type RedisOption func(*RedisLocker)

// WithTTL bounds how long a key survives a crashed holder.
func WithTTL(d time.Duration) RedisOption {
	return func(l *RedisLocker) { l.ttl = d }
}

// WithPrefix namespaces the lock keys.
func WithPrefix(p string) RedisOption {
	return func(l *RedisLocker) { l.prefix = p }
}

func WithLogger(log logger.Logger) RedisOption {
	return func(l *RedisLocker) { l.log = log }
}

// NewRedisLocker returns a Locker backed by rdb.
func NewRedisLocker(rdb redis.UniversalClient, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{rdb: rdb, ttl: 10 * time.Second, prefix: "lock:", log: infralogger.NopLogger{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = dispatch.SortedKeys(keys)
	if len(keys) == 0 {
		return func() {}, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = l.prefix + k
	}
	token := uuid.NewString()
	ok, err := acquireScript.Run(ctx, l.rdb, full, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("redis lock: %w", err)
	}
	if ok == 0 {
		return nil, fmt.Errorf("%v: %w", keys, dispatch.ErrLockBusy)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.rdb, full, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				l.log.Warnf("redis unlock %v: %v", keys, err)
			}
		})
	}, nil
}

type redisConf struct {
	Addr     string        `json:"addr"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
	Prefix   string        `json:"prefix"`
}

func init() {
	_ = dispatch.RegisterLocker("redis", func(m map[string]any) (dispatch.Locker, error) {
		var c redisConf
		if err := factory.Decode(m, &c); err != nil {
			return nil, err
		}
		if c.Addr == "" {
			c.Addr = "localhost:6379"
		}
		rdb := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("locker: ping redis %s: %w", c.Addr, err)
		}
		var opts []RedisOption
		if c.TTL > 0 {
			opts = append(opts, WithTTL(c.TTL))
		}
		if c.Prefix != "" {
			opts = append(opts, WithPrefix(c.Prefix))
		}
		return NewRedisLocker(rdb, opts...), nil
	})
}
