package absentstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalMarkAndClear(t *testing.T) {
	s := NewLocal(0, 0) // never expires
	defer s.Close()

	assert.False(t, s.IsAbsent("1"))

	s.MarkAbsent("1")
	assert.True(t, s.IsAbsent("1"))

	s.Clear("1")
	assert.False(t, s.IsAbsent("1"))

	// clearing an unknown id is a no-op
	s.Clear("nope")
}

func TestLocalTTLExpiry(t *testing.T) {
	s := NewLocal(40*time.Millisecond, 0)
	defer s.Close()

	s.MarkAbsent("1")
	require.True(t, s.IsAbsent("1"))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, s.IsAbsent("1"), "marker should lapse after its TTL")
}

func TestLocalZeroTTLNeverExpires(t *testing.T) {
	s := NewLocal(0, 0)
	defer s.Close()

	s.MarkAbsent("1")
	time.Sleep(30 * time.Millisecond)
	assert.True(t, s.IsAbsent("1"))
}

func TestLocalSweep(t *testing.T) {
	s := NewLocal(20*time.Millisecond, 10*time.Millisecond)
	defer s.Close()

	s.MarkAbsent("1")
	s.MarkAbsent("2")

	require.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.markers) == 0
	}, time.Second, 10*time.Millisecond, "sweep should reclaim expired markers")
}

func TestLocalClearAll(t *testing.T) {
	s := NewLocal(0, 0)
	defer s.Close()

	s.MarkAbsent("1")
	s.MarkAbsent("2")
	s.ClearAll()
	assert.False(t, s.IsAbsent("1"))
	assert.False(t, s.IsAbsent("2"))
}
