package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magnusjahre/MM5-sub002/internal/memreq"
)

func TestSnoopingMSI_ReadOfModifiedLineDowngradesAndSupplies(t *testing.T) {
	var proto SnoopingMSI
	blk := &Block{Valid: true, State: StateValid | StateWritable | StateDirty}

	result := proto.Snoop(memreq.CmdRead, blk)
	require.True(t, result.SuppliesData)
	require.True(t, result.Downgrade)
	require.False(t, result.Invalidate)
}

func TestSnoopingMSI_WriteInvalidatesPeerCopy(t *testing.T) {
	var proto SnoopingMSI
	blk := &Block{Valid: true, State: StateValid | StateShared}

	result := proto.Snoop(memreq.CmdWrite, blk)
	require.True(t, result.Invalidate)
	require.False(t, result.SuppliesData)
}

func TestSnoopingMSI_SnoopOfInvalidBlockIsANoop(t *testing.T) {
	var proto SnoopingMSI
	result := proto.Snoop(memreq.CmdRead, nil)
	require.Equal(t, SnoopResult{}, result)
}

func TestDirectoryCoherence_WritebackOwnerIsAlwaysTrueRequester(t *testing.T) {
	blk := &Block{Valid: true, TrueRequester: 2, PrevRequester: 5}
	var dc DirectoryCoherence
	require.Equal(t, 2, dc.WritebackOwner(blk))
}

func TestDirectoryCoherence_SharerBitvectorTracksAddRemove(t *testing.T) {
	blk := &Block{Valid: true}
	var dc DirectoryCoherence
	dc.AddSharer(blk, 0)
	dc.AddSharer(blk, 3)
	require.Equal(t, uint64(1<<0|1<<3), blk.Sharers)

	dc.RemoveSharer(blk, 0)
	require.Equal(t, uint64(1<<3), blk.Sharers)
}
