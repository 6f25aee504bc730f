package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements SET NX and the release script over a map.
type fakeRedis struct {
	redis.Scripter

	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, held := f.data[key]; held {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	f.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[keys[0]] != args[0] {
		return redis.NewCmdResult(int64(0), nil)
	}
	delete(f.data, keys[0])
	return redis.NewCmdResult(int64(1), nil)
}

const tenant = "8b0f6c1e-3f51-4c4e-9d0a-3a0f0c6b2d11"

func TestKey(t *testing.T) {
	l := New(newFakeRedis(), tenant)
	assert.Equal(t, "ingest:lock:"+tenant+":github", l.Key("github"))
}

func TestAcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	f := newFakeRedis()
	l := New(f, tenant)

	release, ok, err := l.Acquire(ctx, "github", 30*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Minute, f.ttls[l.Key("github")])

	_, ok, err = l.Acquire(ctx, "github", 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.Acquire(ctx, "google_workspace", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "distinct jobs lock independently")

	require.NoError(t, release(ctx))
	_, ok, err = l.Acquire(ctx, "github", 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	ctx := context.Background()
	f := newFakeRedis()
	l := New(f, tenant)

	release, ok, err := l.Acquire(ctx, "github", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// expired and taken by another process
	f.data[l.Key("github")] = "someone-else"

	require.NoError(t, release(ctx))
	assert.Equal(t, "someone-else", f.data[l.Key("github")])
}

func TestAcquireError(t *testing.T) {
	f := newFakeRedis()
	f.err = errors.New("connection refused")

	_, ok, err := New(f, tenant).Acquire(context.Background(), "github", time.Minute)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDialInvalidURL(t *testing.T) {
	_, _, err := Dial(context.Background(), "http://nope", tenant)
	assert.ErrorContains(t, err, "invalid redis url")
}
