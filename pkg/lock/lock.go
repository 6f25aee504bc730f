// Package lock provides the cross-process job lock used by the scheduler
// when several ingestion processes share a tenant.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces job locks in Redis.
const KeyPrefix = "ingest:lock"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis is a SET NX PX lock keyed by tenant and job.
type Redis struct {
	client client
	tenant string
}

// New wraps an existing client.
func New(c client, tenant string) *Redis {
	return &Redis{client: c, tenant: tenant}
}

// Dial connects to the Redis server at rawURL and verifies it answers.
func Dial(ctx context.Context, rawURL, tenant string) (*Redis, func() error, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	c := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return New(c, tenant), c.Close, nil
}

// Key returns the lock key for job.
func (l *Redis) Key(job string) string {
	return fmt.Sprintf("%s:%s:%s", KeyPrefix, l.tenant, job)
}

// Acquire takes the lock for job for at most ttl. ok is false when another
// holder has it. release gives the lock back if it is still ours.
func (l *Redis) Acquire(ctx context.Context, job string, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	key := l.Key(job)
	token := uuid.NewString()

	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}
