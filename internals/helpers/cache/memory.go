package cache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the single-process fallback used when no redis is configured.
// Values are stored encoded so callers never share mutable state.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(defaultTTL, cleanup time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(defaultTTL, cleanup)}
}

func (m *MemoryCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return false, nil
	}
	if err := sonic.Unmarshal(v.([]byte), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, data, ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}
