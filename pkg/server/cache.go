package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matst80/slask-docs/pkg/common/jsoncompat"
	"github.com/matst80/slask-docs/pkg/source"
)

type localEntry struct {
	Expires time.Time
	Data    []string
}

// ChoiceCache keeps authoritative choice lists in redis with a local
// in-process layer. Choice lists are a per-load decision, a short TTL keeps
// the facet set stable across the render passes of one load without going
// upstream for every pass.
type ChoiceCache struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.Mutex
	memCache map[string]localEntry
}

func NewChoiceCache(addr, password string, db int, ttl time.Duration) *ChoiceCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &ChoiceCache{
		client:   rdb,
		ttl:      ttl,
		memCache: make(map[string]localEntry),
	}
}

func (c *ChoiceCache) Get(ctx context.Context, key string) ([]string, bool) {
	c.mu.Lock()
	local, found := c.memCache[key]
	if found && time.Now().Before(local.Expires) {
		c.mu.Unlock()
		return local.Data, true
	}
	delete(c.memCache, key)
	c.mu.Unlock()

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var choices []string
	if err := jsoncompat.Unmarshal([]byte(data), &choices); err != nil {
		return nil, false
	}
	c.put(key, choices)
	return choices, true
}

func (c *ChoiceCache) Set(ctx context.Context, key string, choices []string) error {
	c.put(key, choices)
	data, err := jsoncompat.Marshal(choices)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *ChoiceCache) put(key string, choices []string) {
	c.mu.Lock()
	c.memCache[key] = localEntry{Expires: time.Now().Add(c.ttl), Data: choices}
	c.mu.Unlock()
}

// Invalidate drops the in-process layer so the next load makes a fresh
// per-load decision. Redis entries expire with their TTL.
func (c *ChoiceCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.memCache = make(map[string]localEntry)
	c.mu.Unlock()
}

func (c *ChoiceCache) Close() {
	c.client.Close()
}

// CachedSource serves choice lists through the cache and passes everything
// else to the wrapped source.
type CachedSource struct {
	source.DocumentSource
	Cache *ChoiceCache
}

func (s *CachedSource) FetchChoices(ctx context.Context, library, column string) ([]string, error) {
	if column == "" {
		return []string{}, nil
	}
	key := fmt.Sprintf("choices:%s:%s", library, column)
	if choices, ok := s.Cache.Get(ctx, key); ok {
		return choices, nil
	}
	choices, err := s.DocumentSource.FetchChoices(ctx, library, column)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Set(ctx, key, choices); err != nil {
		// cache write failures are not fatal, the next pass goes upstream
		return choices, nil
	}
	return choices, nil
}

var _ source.DocumentSource = &CachedSource{}
