package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShadowTagArray_FullMapSamplesEverySet(t *testing.T) {
	s := NewShadowTagArray(2, 1024, 2, 64, 0) // 0 -> full map
	require.Equal(t, s.TotalSets(), s.NumLeaderSets())
	require.True(t, s.IsLeaderSet(0))
	require.True(t, s.IsLeaderSet(s.TotalSets()-1))
}

func TestShadowTagArray_MissThenHitPerCore(t *testing.T) {
	s := NewShadowTagArray(2, 1024, 2, 64, 0)

	hit, sampled, evicted := s.Access(0, 0x1000)
	require.False(t, hit)
	require.True(t, sampled)
	require.False(t, evicted)

	hit, sampled, _ = s.Access(0, 0x1000)
	require.True(t, hit)
	require.True(t, sampled)

	// Core 1's shadow is independent: still a miss for the same address.
	hit, _, _ = s.Access(1, 0x1000)
	require.False(t, hit)
}

func TestShadowTagArray_NonLeaderSetIsNotSampled(t *testing.T) {
	// Per-core shadow is 512B / 2-way / 64B lines = 4 sets; keeping only 1
	// leader set gives a constituency of 4 (only set 0 is sampled).
	s := NewShadowTagArray(2, 1024, 2, 64, 1)
	require.Equal(t, 1, s.NumLeaderSets())

	// addr mapping to set 1 (non-multiple of constituency 4) is skipped.
	store := s.perCore[0]
	// Pick an address whose set index is 1, guaranteed non-leader here.
	addr := uint64(1) * 64 // line 1 -> set (1 % totalSets)
	require.Equal(t, 1, store.setOf(addr))

	_, sampled, _ := s.Access(0, addr)
	require.False(t, sampled)
}
