package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestROB_PushThenPopHeadInOrder(t *testing.T) {
	r := NewROB(2)
	a := &DynInst{SeqNum: 1}
	b := &DynInst{SeqNum: 2}

	_, ok := r.Push(a)
	require.True(t, ok)
	_, ok = r.Push(b)
	require.True(t, ok)
	require.True(t, r.Full())

	_, ok = r.Push(&DynInst{})
	require.False(t, ok)

	require.Same(t, a, r.PopHead())
	require.Same(t, b, r.PopHead())
	require.True(t, r.Empty())
}

func TestROB_SquashAfterReturnsYoungestFirst(t *testing.T) {
	r := NewROB(4)
	a := &DynInst{SeqNum: 1}
	b := &DynInst{SeqNum: 2}
	c := &DynInst{SeqNum: 3}
	idxA, _ := r.Push(a)
	r.Push(b)
	r.Push(c)

	squashed := r.SquashAfter(idxA)
	require.Equal(t, []*DynInst{c, b}, squashed)
	require.Equal(t, 1, r.Len())
	require.Same(t, a, r.Head())
}
