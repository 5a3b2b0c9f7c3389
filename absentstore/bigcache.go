package absentstore

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"
)

// BigCache holds absent markers in an allegro/bigcache instance. BigCache has
// no per-entry TTL - expiry is its global LifeWindow - so this store requires
// a positive TTL. It avoids GC pressure when a collection accumulates
// millions of markers.
type BigCache struct {
	c *bc.BigCache
}

var _ Store = (*BigCache)(nil)

type BigCacheConfig struct {
	// TTL for markers; must be positive (bigcache cannot express "never").
	TTL time.Duration
	// HardMaxCacheSizeMB caps memory; 0 = unlimited.
	HardMaxCacheSizeMB int
}

func NewBigCache(cfg BigCacheConfig) (*BigCache, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("absentstore: BigCache requires a positive TTL")
	}
	conf := bc.DefaultConfig(cfg.TTL)
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &BigCache{c: c}, nil
}

// sentinel payload; bigcache stores bytes and we only care about presence.
var sentinel = []byte{1}

func (s *BigCache) MarkAbsent(id string) {
	_ = s.c.Set(id, sentinel)
}

func (s *BigCache) IsAbsent(id string) bool {
	_, err := s.c.Get(id)
	return err == nil
}

func (s *BigCache) Clear(id string) {
	_ = s.c.Delete(id)
}

func (s *BigCache) ClearAll() {
	_ = s.c.Reset()
}

func (s *BigCache) Close() error {
	return s.c.Close()
}
