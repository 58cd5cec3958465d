package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values  map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values:  map[string]string{},
		counts:  map[string]int64{},
		expires: map[string]time.Duration{},
	}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	f.expires[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func TestIdempotencyStore_MissingKeyIsEmpty(t *testing.T) {
	s := &IdempotencyStore{rdb: newFakeRedis()}

	v, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Empty(t, v)

	require.NoError(t, s.Set(context.Background(), "k", "v", time.Minute))
	v, err = s.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestRateCounter_FixedWindow(t *testing.T) {
	fr := newFakeRedis()
	now := time.Unix(1_700_000_000, 0)
	c := &RateCounter{rdb: fr, now: func() time.Time { return now }}

	for want := int64(1); want <= 3; want++ {
		n, err := c.Hit(context.Background(), "ip:1.2.3.4", time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}
	require.Len(t, fr.expires, 1, "expiry is set once per window")

	now = now.Add(time.Minute)
	n, err := c.Hit(context.Background(), "ip:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRateCounter_RejectsNonPositiveWindow(t *testing.T) {
	fr := newFakeRedis()
	c := &RateCounter{rdb: fr, now: time.Now}

	_, err := c.Hit(context.Background(), "ip:1.2.3.4", 0)
	require.Error(t, err)
	require.Empty(t, fr.counts)
}
