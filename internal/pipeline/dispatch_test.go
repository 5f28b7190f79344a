package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDispatcher(robCap, iqCap, lsqCap, width int) (*Dispatcher, *ROB, IQ, *LSQ) {
	intRegs := NewPhysRegFile(8, 10) // 2 spare physical int registers
	fpRegs := NewPhysRegFile(4, 4)
	rob := NewROB(robCap)
	iq := NewUnorderedIQ(iqCap)
	lsq := NewLSQ(lsqCap, lsqCap)
	d := NewDispatcher(intRegs, fpRegs, rob, iq, lsq, width, 0, 0)
	return d, rob, iq, lsq
}

func TestDispatcher_DispatchesUpToWidthThenStopsOnBandwidth(t *testing.T) {
	d, rob, _, _ := newTestDispatcher(8, 8, 8, 2)
	pending := []*DynInst{
		{SeqNum: 1, Dsts: []RegRef{{Type: RegInt, Arch: 1}}},
		{SeqNum: 2, Dsts: []RegRef{{Type: RegInt, Arch: 2}}},
		{SeqNum: 3, Dsts: []RegRef{{Type: RegInt, Arch: 3}}},
	}
	res := d.Dispatch(pending)
	require.Len(t, res.Dispatched, 2)
	require.Equal(t, DispatchBandwidth, res.Cause)
	require.Equal(t, 2, rob.Len())
}

func TestDispatcher_StopsOnOutOfPhysicalInt(t *testing.T) {
	d, _, _, _ := newTestDispatcher(8, 8, 8, 4)
	pending := []*DynInst{
		{SeqNum: 1, Dsts: []RegRef{{Type: RegInt, Arch: 1}}},
		{SeqNum: 2, Dsts: []RegRef{{Type: RegInt, Arch: 2}}}, // exhausts the 2 spares
		{SeqNum: 3, Dsts: []RegRef{{Type: RegInt, Arch: 3}}},
	}
	res := d.Dispatch(pending)
	require.Len(t, res.Dispatched, 2)
	require.Equal(t, DispatchOutOfPhysicalInt, res.Cause)
}

func TestDispatcher_StopsOnROBFull(t *testing.T) {
	d, _, _, _ := newTestDispatcher(1, 8, 8, 4)
	pending := []*DynInst{
		{SeqNum: 1},
		{SeqNum: 2},
	}
	res := d.Dispatch(pending)
	require.Len(t, res.Dispatched, 1)
	require.Equal(t, DispatchROBFull, res.Cause)
}

func TestDispatcher_SerializingInstructionDispatchesAlone(t *testing.T) {
	d, _, _, _ := newTestDispatcher(8, 8, 8, 4)
	pending := []*DynInst{
		{SeqNum: 1, IsSerializing: true},
		{SeqNum: 2},
	}
	res := d.Dispatch(pending)
	require.Len(t, res.Dispatched, 1)
	require.True(t, res.Dispatched[0].IsSerializing)
}

func TestDispatcher_IQPushFailureRollsBackRenameAndLeavesROBUntouched(t *testing.T) {
	intRegs := NewPhysRegFile(8, 10)
	fpRegs := NewPhysRegFile(4, 4)
	rob := NewROB(8)
	iq := NewPreScheduledIQ(4, 2) // ringSize 2: FUOpLatency >= 2 overflows
	lsq := NewLSQ(8, 8)
	d := NewDispatcher(intRegs, fpRegs, rob, iq, lsq, 4, 0, 0)

	freeBefore := intRegs.NumFree()
	inst := &DynInst{
		SeqNum:      1,
		Dsts:        []RegRef{{Type: RegInt, Arch: 1}},
		Srcs:        []RegRef{{Type: RegInt, Arch: 0}}, // valid source: not trivially ready
		FUOpLatency: 2,
	}

	res := d.Dispatch([]*DynInst{inst})

	require.Empty(t, res.Dispatched)
	require.Equal(t, DispatchIQFull, res.Cause)
	require.Equal(t, 0, rob.Len(), "ROB must not allocate a slot for an instruction the IQ rejected")
	require.Equal(t, 0, iq.Len())
	require.Equal(t, freeBefore, intRegs.NumFree(), "the rename must be rolled back on IQ push failure")
}

func TestDispatcher_RenamesSourceToCurrentMapping(t *testing.T) {
	d, _, _, _ := newTestDispatcher(8, 8, 8, 4)
	producer := &DynInst{SeqNum: 1, Dsts: []RegRef{{Type: RegInt, Arch: 1}}}
	d.Dispatch([]*DynInst{producer})

	consumer := &DynInst{SeqNum: 2, Srcs: []RegRef{{Type: RegInt, Arch: 1}}}
	d.Dispatch([]*DynInst{consumer})

	require.Equal(t, producer.PhysDsts[0], consumer.PhysSrcs[0])
	require.False(t, consumer.SrcReady[0])
}
