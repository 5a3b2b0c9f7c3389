package absentstore

import (
	"sync"
	"time"
)

// Local keeps absent markers in a plain map (default).
// Expired markers are dropped lazily on read and swept by an optional
// background loop so a high-churn collection does not accumulate garbage.
type Local struct {
	mu      sync.RWMutex
	markers map[string]marker
	ttl     time.Duration // 0 => never expires

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ Store = (*Local)(nil)

// NewLocal builds a Local store. ttl == 0 disables expiry; sweepInterval <= 0
// or ttl == 0 disables the background sweep (lazy expiry still applies).
func NewLocal(ttl, sweepInterval time.Duration) *Local {
	s := &Local{
		markers: make(map[string]marker),
		ttl:     ttl,
	}
	if ttl > 0 && sweepInterval > 0 {
		s.ticker = time.NewTicker(sweepInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.sweep()
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Local) MarkAbsent(id string) {
	s.mu.Lock()
	s.markers[id] = marker{recordedAt: time.Now()}
	s.mu.Unlock()
}

func (s *Local) IsAbsent(id string) bool {
	s.mu.RLock()
	m, ok := s.markers[id]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if s.expired(m, time.Now()) {
		s.mu.Lock()
		// re-check under the write lock; a newer marker may have landed
		if m2, ok := s.markers[id]; ok && s.expired(m2, time.Now()) {
			delete(s.markers, id)
		}
		s.mu.Unlock()
		return false
	}
	return true
}

func (s *Local) Clear(id string) {
	s.mu.Lock()
	delete(s.markers, id)
	s.mu.Unlock()
}

func (s *Local) ClearAll() {
	s.mu.Lock()
	s.markers = make(map[string]marker)
	s.mu.Unlock()
}

func (s *Local) expired(m marker, now time.Time) bool {
	return s.ttl > 0 && now.Sub(m.recordedAt) >= s.ttl
}

func (s *Local) sweep() {
	now := time.Now()
	s.mu.Lock()
	for id, m := range s.markers {
		if s.expired(m, now) {
			delete(s.markers, id)
		}
	}
	s.mu.Unlock()
}

func (s *Local) Close() error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
	})
	return nil
}
