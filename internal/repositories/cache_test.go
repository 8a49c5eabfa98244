package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache() *Cache {
	return NewCache(NewMemoryStore(), "test", time.Minute)
}

func TestCacheKey(t *testing.T) {
	c := newTestCache()
	assert.Equal(t, "test:login_count:ada@example.com", c.Key("login_count", "ada@example.com"))
	assert.Equal(t, "test:role:42", c.Key("role", 42))
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	type entry struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.Set(ctx, c.Key("thing"), entry{Name: "ada"}))

	var out entry
	found, err := c.Get(ctx, c.Key("thing"), &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ada", out.Name)

	found, err = c.Get(ctx, c.Key("missing"), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, c.Key("thing"), "value"))
	require.NoError(t, c.Delete(ctx, c.Key("thing")))

	var out string
	found, err := c.Get(ctx, c.Key("thing"), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheExpiry(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()

	require.NoError(t, c.SetWithTTL(ctx, c.Key("fleeting"), "value", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	var out string
	found, err := c.Get(ctx, c.Key("fleeting"), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheCounter(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	key := c.Key("login_count", "ada@example.com")

	n, err := c.Counter(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := int64(1); i <= 3; i++ {
		count, err := c.Increment(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	n, err = c.Counter(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestCounterWindowExpires(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	key := c.Key("login_count", "ada@example.com")

	_, err := c.Increment(ctx, key, 10*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	count, err := c.Increment(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCachedLoadsOnceAndServesFromCache(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	loads := 0

	load := func() ([]string, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	out, err := Cached(ctx, c, c.Key("list"), time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)

	out, err = Cached(ctx, c, c.Key("list"), time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
	assert.Equal(t, 1, loads)
}

func TestCachedNeverCachesErrors(t *testing.T) {
	c := newTestCache()
	ctx := context.Background()
	loads := 0

	_, err := Cached(ctx, c, c.Key("flaky"), time.Minute, func() (string, error) {
		loads++
		return "", errors.New("boom")
	})
	require.Error(t, err)

	out, err := Cached(ctx, c, c.Key("flaky"), time.Minute, func() (string, error) {
		loads++
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 2, loads)
}
