package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	_, found, err := s.Get(ctx, "idem:1:a")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := s.Reserve(ctx, "idem:1:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Reserve(ctx, "idem:1:a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	rec, found, err := s.Get(ctx, "idem:1:a")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, rec.Pending)

	want := Record{Status: 200, ContentType: "application/json; charset=utf-8", Body: []byte(`{"success":true}`)}
	require.NoError(t, s.Save(ctx, "idem:1:a", want, time.Minute))
	rec, found, err = s.Get(ctx, "idem:1:a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, rec)

	// TTL で消える
	mr.FastForward(2 * time.Minute)
	_, found, err = s.Get(ctx, "idem:1:a")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = s.Reserve(ctx, "idem:1:b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Delete(ctx, "idem:1:b"))
	ok, err = s.Reserve(ctx, "idem:1:b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStoreErrors(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	require.NoError(t, mr.Set("idem:1:junk", "not json"))
	_, _, err := s.Get(ctx, "idem:1:junk")
	assert.Error(t, err)

	mr.Close()
	_, err = s.Reserve(ctx, "idem:1:c", time.Minute)
	assert.Error(t, err)
}
