package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	ID      string `json:"id"`
	Stage   string `json:"stage"`
	Version int64  `json:"version"`
}

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *snapshot) func() error {
		return func() error {
			calls++
			*dest = snapshot{ID: "r1", Stage: "COMPANY_REVIEW", Version: 3}
			return nil
		}
	}

	var first snapshot
	require.NoError(t, Aside(ctx, RequestKey("r1"), &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("request:r1"))

	var second snapshot
	require.NoError(t, Aside(ctx, RequestKey("r1"), &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, calls, "second read must be served from cache")
	assert.Equal(t, first, second)

	InvalidateRequest(ctx, "r1")
	assert.False(t, mr.Exists("request:r1"))

	var third snapshot
	require.NoError(t, Aside(ctx, RequestKey("r1"), &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_TTLExpires(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	var s snapshot
	require.NoError(t, Aside(ctx, RequestKey("r2"), &s, time.Minute, func() error {
		s = snapshot{ID: "r2"}
		return nil
	}))
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("request:r2"))
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupRedis(t)
	boom := errors.New("boom")

	var s snapshot
	err := Aside(context.Background(), RequestKey("r3"), &s, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("request:r3"))
}

func TestAside_WithoutClientCallsFetch(t *testing.T) {
	SetClient(nil)
	calls := 0
	var s snapshot
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), RequestKey("r4"), &s, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
	found, err := GetJSON(context.Background(), "request:r4", &s)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestAside_CorruptEntryFallsBackToFetch(t *testing.T) {
	mr := setupRedis(t)
	require.NoError(t, mr.Set("request:r5", "{not json"))

	var s snapshot
	require.NoError(t, Aside(context.Background(), RequestKey("r5"), &s, time.Minute, func() error {
		s = snapshot{ID: "r5", Version: 1}
		return nil
	}))
	assert.Equal(t, "r5", s.ID)
}

func TestInitRedis(t *testing.T) {
	t.Cleanup(func() { SetClient(nil) })
	assert.Nil(t, InitRedis(""))

	mr := miniredis.RunT(t)
	c := InitRedis("redis://" + mr.Addr())
	require.NotNil(t, c)
	assert.Same(t, c, GetClient())

	assert.Nil(t, InitRedis("redis://%zz"))
	assert.Nil(t, GetClient())
}

func TestSetRequestTTL(t *testing.T) {
	orig := RequestTTL
	t.Cleanup(func() { RequestTTL = orig })
	SetRequestTTL(0)
	assert.Equal(t, orig, RequestTTL)
	SetRequestTTL(time.Second)
	assert.Equal(t, time.Second, RequestTTL)
}
