package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitManager_CommitsCompletedHeadsUpToWidth(t *testing.T) {
	rob := NewROB(4)
	a := &DynInst{SeqNum: 1, Completed: true}
	b := &DynInst{SeqNum: 2, Completed: true}
	c := &DynInst{SeqNum: 3, Completed: true}
	rob.Push(a)
	rob.Push(b)
	rob.Push(c)

	intRegs := NewPhysRegFile(4, 4)
	fpRegs := NewPhysRegFile(4, 4)
	cm := NewCommitManager(map[int]*ROB{0: rob}, map[int]*LSQ{0: NewLSQ(4, 4)}, intRegs, fpRegs, &RoundRobinCommit{}, 2)

	results := cm.CommitCycle()
	require.Equal(t, []*DynInst{a, b}, results[0].Committed)
	require.Equal(t, CommitBandwidth, results[0].Cause)
	require.Equal(t, 1, rob.Len())
}

func TestCommitManager_StopsAtIncompleteHead(t *testing.T) {
	rob := NewROB(4)
	rob.Push(&DynInst{SeqNum: 1, Completed: false})

	intRegs := NewPhysRegFile(4, 4)
	fpRegs := NewPhysRegFile(4, 4)
	cm := NewCommitManager(map[int]*ROB{0: rob}, map[int]*LSQ{0: NewLSQ(4, 4)}, intRegs, fpRegs, &RoundRobinCommit{}, 4)

	results := cm.CommitCycle()
	require.Empty(t, results[0].Committed)
	require.Equal(t, CommitFU, results[0].Cause)
}

func TestCommitManager_StoreBufferFullStallsCommit(t *testing.T) {
	lsq := NewLSQ(4, 1) // store-buffer capacity 1

	// An earlier, unrelated store fills the one store-buffer slot.
	lsq.Push(&LSQEntry{IsStore: true, Addr: 0x8})
	lsq.CommitHead()
	require.Equal(t, 1, lsq.StoreBufferLen())

	idx, _ := lsq.Push(&LSQEntry{IsStore: true, Addr: 0x10})
	inst := &DynInst{SeqNum: 1, Completed: true, IsStore: true, LSQIndex: idx}
	rob := NewROB(4)
	rob.Push(inst)

	intRegs := NewPhysRegFile(4, 4)
	fpRegs := NewPhysRegFile(4, 4)
	cm := NewCommitManager(map[int]*ROB{0: rob}, map[int]*LSQ{0: lsq}, intRegs, fpRegs, &RoundRobinCommit{}, 4)

	results := cm.CommitCycle()
	require.Empty(t, results[0].Committed)
	require.Equal(t, CommitStoreBufferFull, results[0].Cause)
}

func TestPerThreadStrictCommit_OrdersAscendingThreadID(t *testing.T) {
	m := PerThreadStrictCommit{}
	require.Equal(t, []int{0, 1, 2}, m.Order([]int{2, 0, 1}))
}

func TestSuperscalarOneThreadPerCycle_PicksOneThreadAndRotates(t *testing.T) {
	m := &SuperscalarOneThreadPerCycle{}
	first := m.Order([]int{0, 1})
	second := m.Order([]int{0, 1})
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	require.NotEqual(t, first[0], second[0])
}
