package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces package keys in Redis
const DefaultKeyPrefix = "bustcall:"

// Redis invalidates entries stored as keys in Redis
type Redis struct {
	client  redis.Cmdable
	prefix  string
	timeout time.Duration
}

// RedisOptions configures the Redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Timeout  time.Duration
}

// NewRedisClient creates a go-redis client for the options
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
		MaxRetries:   1,
	})
}

// NewRedis creates a Redis invalidator. A zero timeout leaves deadlines to
// the caller's context.
func NewRedis(client redis.Cmdable, prefix string, timeout time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix, timeout: timeout}
}

// Locate implements Invalidator
func (r *Redis) Locate(pkg PackageID) Handle {
	return Handle{
		Package:  pkg,
		Backend:  "redis",
		Location: r.prefix + string(pkg),
	}
}

// Invalidate implements Invalidator. DEL is atomic, so concurrent
// invalidations of one key see exactly one Removed.
func (r *Redis) Invalidate(ctx context.Context, h Handle) Result {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	n, err := r.client.Del(ctx, h.Location).Result()
	switch {
	case err != nil:
		return Result{Handle: h, Outcome: Failed, Err: err}
	case n == 0:
		return Result{Handle: h, Outcome: AlreadyAbsent}
	default:
		return Result{Handle: h, Outcome: Removed}
	}
}
