package absentstore

import (
	"errors"

	rc "github.com/dgraph-io/ristretto"

	"time"
)

// Ristretto holds absent markers in a dgraph-io/ristretto cache. Unlike
// Local, memory is bounded: under pressure ristretto evicts markers, which
// only costs an extra remote lookup for the affected id. Suited to
// collections with very large absent-id cardinality.
type Ristretto struct {
	c   *rc.Cache
	ttl time.Duration
}

var _ Store = (*Ristretto)(nil)

type RistrettoConfig struct {
	// TTL for markers; 0 => never expires.
	TTL time.Duration
	// MaxMarkers caps the number of markers held (approximate).
	MaxMarkers int64
}

func NewRistretto(cfg RistrettoConfig) (*Ristretto, error) {
	if cfg.MaxMarkers <= 0 {
		return nil, errors.New("absentstore: MaxMarkers must be positive")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.MaxMarkers * 10,
		MaxCost:     cfg.MaxMarkers,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto{c: c, ttl: cfg.TTL}, nil
}

func (s *Ristretto) MarkAbsent(id string) {
	// ristretto treats ttl 0 as no expiry, matching the Store contract
	s.c.SetWithTTL(id, struct{}{}, 1, s.ttl)
	// markers must be visible to an immediately following IsAbsent
	s.c.Wait()
}

func (s *Ristretto) IsAbsent(id string) bool {
	_, ok := s.c.Get(id)
	return ok
}

func (s *Ristretto) Clear(id string) { s.c.Del(id) }

func (s *Ristretto) ClearAll() { s.c.Clear() }

func (s *Ristretto) Close() error {
	s.c.Close()
	return nil
}
