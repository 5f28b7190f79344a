package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magnusjahre/MM5-sub002/internal/memreq"
)

func TestMSHRTable_AllocateThenFindThenRelease(t *testing.T) {
	tbl := NewMSHRTable(2, 4)
	req := &memreq.Request{PAddr: 0x1000, Cmd: memreq.CmdRead}

	handle, _, ok := tbl.Allocate(0x1000, req)
	require.True(t, ok)
	require.True(t, handle.Valid)
	require.True(t, req.MSHR.Valid)

	found, _, ok := tbl.Find(0x1000)
	require.True(t, ok)
	require.Equal(t, handle, found)

	targets := tbl.Release(handle)
	require.Equal(t, []*memreq.Request{req}, targets)

	_, _, ok = tbl.Find(0x1000)
	require.False(t, ok)
}

func TestMSHRTable_ExhaustsFreeSlots(t *testing.T) {
	tbl := NewMSHRTable(1, 4)
	req1 := &memreq.Request{PAddr: 0x1000}
	req2 := &memreq.Request{PAddr: 0x2000}

	require.True(t, tbl.HasFreeSlot())
	_, _, ok := tbl.Allocate(0x1000, req1)
	require.True(t, ok)

	require.False(t, tbl.HasFreeSlot())
	_, _, ok = tbl.Allocate(0x2000, req2)
	require.False(t, ok)
}

func TestMSHRTable_TargetMergeRespectsTargetsPerMSHR(t *testing.T) {
	tbl := NewMSHRTable(1, 2)
	req1 := &memreq.Request{PAddr: 0x1000}
	req2 := &memreq.Request{PAddr: 0x1004}
	req3 := &memreq.Request{PAddr: 0x1008}

	handle, _, _ := tbl.Allocate(0x1000, req1)
	require.True(t, tbl.HasFreeTarget(handle))
	require.True(t, tbl.AddTarget(handle, req2))

	require.False(t, tbl.HasFreeTarget(handle))
	require.False(t, tbl.AddTarget(handle, req3))
}

func TestMSHRTable_StaleHandleAfterReleaseIsRejected(t *testing.T) {
	tbl := NewMSHRTable(1, 4)
	req := &memreq.Request{PAddr: 0x1000}
	handle, _, _ := tbl.Allocate(0x1000, req)
	tbl.Release(handle)

	req2 := &memreq.Request{PAddr: 0x2000}
	handle2, _, ok := tbl.Allocate(0x2000, req2)
	require.True(t, ok)
	require.Equal(t, handle.Index, handle2.Index)
	require.NotEqual(t, handle.Gen, handle2.Gen)

	require.False(t, tbl.AddTarget(handle, req))
}

func TestWBBuffer_FillsThenRejects(t *testing.T) {
	b := NewWBBuffer(1)
	require.True(t, b.Push(&memreq.Request{PAddr: 0x1000}))
	require.False(t, b.Push(&memreq.Request{PAddr: 0x2000}))

	req, ok := b.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(0x1000), req.PAddr)

	_, ok = b.Pop()
	require.False(t, ok)
}
