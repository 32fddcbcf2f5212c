package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// RegisterCache stores register arrays that never change while an adapter
// is powered, such as its chip ID and MAC address.
type RegisterCache struct {
	cache Cache
	keys  *KeyGenerator
	ttl   time.Duration
}

// NewRegisterCache wraps c. A zero ttl keeps entries until they are evicted.
func NewRegisterCache(c Cache, ttl time.Duration) *RegisterCache {
	return &RegisterCache{
		cache: c,
		keys:  NewKeyGenerator(""),
		ttl:   ttl,
	}
}

// Get returns the cached words, or ok=false on a miss.
func (rc *RegisterCache) Get(ctx context.Context, host, endpoint string) ([]string, bool) {
	if rc == nil || rc.cache == nil {
		return nil, false
	}
	data, err := rc.cache.Get(ctx, rc.keys.RegisterKey(host, endpoint))
	if err != nil {
		return nil, false
	}
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, false
	}
	return words, true
}

// Put stores the words for later polls.
func (rc *RegisterCache) Put(ctx context.Context, host, endpoint string, words []string) error {
	if rc == nil || rc.cache == nil {
		return nil
	}
	data, err := json.Marshal(words)
	if err != nil {
		return err
	}
	return rc.cache.Set(ctx, rc.keys.RegisterKey(host, endpoint), data, rc.ttl)
}

// Metrics returns the backing cache's counters, or nil without a cache.
func (rc *RegisterCache) Metrics() *Metrics {
	if rc == nil || rc.cache == nil {
		return nil
	}
	return rc.cache.GetMetrics()
}

// Invalidate drops every cached register of host.
func (rc *RegisterCache) Invalidate(ctx context.Context, host string) error {
	if rc == nil || rc.cache == nil {
		return nil
	}
	err := rc.cache.DeleteByPattern(ctx, rc.keys.HostPattern(host))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
