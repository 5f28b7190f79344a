package bpred

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBTB_MissThenInsertThenHit(t *testing.T) {
	b := NewBTB(4, 2)
	_, hit := b.Lookup(0x1000)
	require.False(t, hit)

	b.InsertOrPromote(0x1000, 0x2000)
	target, hit := b.Lookup(0x1000)
	require.True(t, hit)
	require.Equal(t, uint64(0x2000), target)
}

func TestBTB_LRUEvictsLeastRecentlyUsedWay(t *testing.T) {
	b := NewBTB(1, 2) // single set, 2 ways, forces collisions
	b.InsertOrPromote(0x1000, 0x1)
	b.InsertOrPromote(0x2000, 0x2)
	// Touch 0x1000 again so 0x2000 becomes the LRU victim.
	b.InsertOrPromote(0x1000, 0x1)

	b.InsertOrPromote(0x3000, 0x3) // should evict 0x2000, not 0x1000

	_, hit := b.Lookup(0x2000)
	require.False(t, hit)

	target, hit := b.Lookup(0x1000)
	require.True(t, hit)
	require.Equal(t, uint64(0x1), target)

	target, hit = b.Lookup(0x3000)
	require.True(t, hit)
	require.Equal(t, uint64(0x3), target)
}

func TestBTB_LookupDoesNotAffectLRU(t *testing.T) {
	b := NewBTB(1, 2)
	b.InsertOrPromote(0x1000, 0x1)
	b.InsertOrPromote(0x2000, 0x2)

	// Repeated lookups of 0x1000 must not promote it; 0x1000 stays LRU.
	for i := 0; i < 5; i++ {
		b.Lookup(0x1000)
	}

	b.InsertOrPromote(0x3000, 0x3) // should evict 0x1000 (still LRU)
	_, hit := b.Lookup(0x1000)
	require.False(t, hit)
}
