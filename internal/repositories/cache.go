package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the minimal key-value contract the cache needs. The redis store
// backs production; the memory store backs tests and single-node setups.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a go-redis client as a Store.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *redisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 && ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

type memoryEntry struct {
	value     []byte
	count     int64
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryStore builds an in-process Store with TTL semantics.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *memoryStore) get(key string) (*memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e, true
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key)
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func (s *memoryStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(key)
	if !ok {
		e = &memoryEntry{}
		if ttl > 0 {
			e.expiresAt = time.Now().Add(ttl)
		}
		s.entries[key] = e
	}
	e.count++
	e.value = []byte(strconv.FormatInt(e.count, 10))
	return e.count, nil
}

// Cache namespaces a Store and adds JSON marshalling on top.
type Cache struct {
	store  Store
	prefix string
	ttl    time.Duration
}

// NewCache builds a Cache with a key prefix and default TTL.
func NewCache(store Store, prefix string, defaultTTL time.Duration) *Cache {
	return &Cache{store: store, prefix: prefix, ttl: defaultTTL}
}

// Key builds a namespaced cache key from parts.
func (c *Cache) Key(parts ...any) string {
	segs := make([]string, 0, len(parts)+1)
	if c.prefix != "" {
		segs = append(segs, c.prefix)
	}
	for _, p := range parts {
		segs = append(segs, fmt.Sprintf("%v", p))
	}
	return strings.Join(segs, ":")
}

// Get unmarshals the cached value into dest, reporting whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, found, err := c.store.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("unmarshal cache value: %w", err)
	}
	return true, nil
}

// Set stores a value with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores a value with an explicit TTL.
func (c *Cache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.store.Set(ctx, key, data, ttl)
}

// Delete drops keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.store.Delete(ctx, keys...)
}

// Increment bumps a counter, starting its TTL window on first use. Used for
// login failure tracking.
func (c *Cache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return c.store.Increment(ctx, key, ttl)
}

// Counter reads a counter value without bumping it.
func (c *Cache) Counter(ctx context.Context, key string) (int64, error) {
	var n int64
	found, err := c.Get(ctx, key, &n)
	if err != nil || !found {
		return 0, err
	}
	return n, nil
}

// Cached implements cache-aside lookup: return the cached value when present,
// otherwise compute, store and return it. Loader errors are never cached.
func Cached[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var out T
	found, err := c.Get(ctx, key, &out)
	if err == nil && found {
		return out, nil
	}
	out, err = load()
	if err != nil {
		return out, err
	}
	if serr := c.SetWithTTL(ctx, key, out, ttl); serr != nil {
		return out, nil
	}
	return out, nil
}
