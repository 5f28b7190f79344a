package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhysRegFile_RenameThenCommitAdvancesArchMap(t *testing.T) {
	f := NewPhysRegFile(4, 6) // 4 arch, 6 phys -> 2 free initially
	require.Equal(t, 2, f.NumFree())

	newPhys, prevPhys, ok := f.Rename(1)
	require.True(t, ok)
	require.Equal(t, 1, f.NumFree())
	require.Equal(t, 1, prevPhys) // initial 1:1 mapping

	f.Commit(1, newPhys, prevPhys)
	require.Equal(t, newPhys, f.archMap[1])
	require.Equal(t, newPhys, f.CurrentMapping(1))
	require.Equal(t, 2, f.NumFree()) // prevPhys returned
}

func TestPhysRegFile_SquashRestoresPriorMapping(t *testing.T) {
	f := NewPhysRegFile(4, 6)
	newPhys, prevPhys, ok := f.Rename(2)
	require.True(t, ok)
	require.Equal(t, newPhys, f.CurrentMapping(2))

	f.Squash(2, newPhys, prevPhys)
	require.Equal(t, prevPhys, f.CurrentMapping(2))
}

func TestPhysRegFile_ExhaustsFreeList(t *testing.T) {
	f := NewPhysRegFile(2, 2) // no spares
	require.False(t, f.HasFree())
	_, _, ok := f.Rename(0)
	require.False(t, ok)
}
