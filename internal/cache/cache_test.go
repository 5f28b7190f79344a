package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magnusjahre/MM5-sub002/internal/memreq"
)

type fakeResponder struct {
	delivered  []*memreq.Request
	misses     []*memreq.Request
	writebacks []*memreq.Request
	blocking   BlockingCondition
}

func (f *fakeResponder) DeliverResponse(req *memreq.Request)  { f.delivered = append(f.delivered, req) }
func (f *fakeResponder) ForwardMiss(req *memreq.Request)      { f.misses = append(f.misses, req) }
func (f *fakeResponder) ForwardWriteback(req *memreq.Request) { f.writebacks = append(f.writebacks, req) }
func (f *fakeResponder) BlockingChanged(c BlockingCondition)  { f.blocking = c }

func newTestCache(resp *fakeResponder) *Cache {
	return New("L1D", 512, 2, 64, 2, 4, 2, 2, NoCoherence{}, resp, nil)
}

func TestCache_MissThenResponseDeliversToRequester(t *testing.T) {
	resp := &fakeResponder{}
	c := newTestCache(resp)

	req := &memreq.Request{PAddr: 0x1000, Cmd: memreq.CmdRead, TrueRequester: 0}
	outcome := c.Access(req)
	require.Equal(t, AccessMiss, outcome)
	require.Len(t, resp.misses, 1)
	require.True(t, req.MSHR.Valid)

	c.HandleResponse(req)
	require.Len(t, resp.delivered, 1)
	require.Same(t, req, resp.delivered[0])
}

func TestCache_SecondAccessSameLineHits(t *testing.T) {
	resp := &fakeResponder{}
	c := newTestCache(resp)

	req := &memreq.Request{PAddr: 0x1000, Cmd: memreq.CmdRead, TrueRequester: 0}
	c.Access(req)
	c.HandleResponse(req)

	req2 := &memreq.Request{PAddr: 0x1004, Cmd: memreq.CmdRead, TrueRequester: 0}
	outcome := c.Access(req2)
	require.Equal(t, AccessHit, outcome)
}

func TestCache_MergesSecondMissIntoSameMSHRAsTarget(t *testing.T) {
	resp := &fakeResponder{}
	c := newTestCache(resp)

	req1 := &memreq.Request{PAddr: 0x1000, Cmd: memreq.CmdRead, TrueRequester: 0}
	req2 := &memreq.Request{PAddr: 0x1004, Cmd: memreq.CmdRead, TrueRequester: 0}
	require.Equal(t, AccessMiss, c.Access(req1))
	require.Equal(t, AccessMiss, c.Access(req2))
	require.Len(t, resp.misses, 1) // req2 merged, no second downward request

	c.HandleResponse(req1)
	require.Len(t, resp.delivered, 2)
}

func TestCache_ExhaustingMSHRsBlocks(t *testing.T) {
	resp := &fakeResponder{}
	c := newTestCache(resp) // 2 MSHRs

	c.Access(&memreq.Request{PAddr: 0x1000, Cmd: memreq.CmdRead, TrueRequester: 0})
	c.Access(&memreq.Request{PAddr: 0x2000, Cmd: memreq.CmdRead, TrueRequester: 0})

	outcome := c.Access(&memreq.Request{PAddr: 0x3000, Cmd: memreq.CmdRead, TrueRequester: 0})
	require.Equal(t, AccessBlocked, outcome)
	require.Equal(t, BlockNoMSHRs, resp.blocking&BlockNoMSHRs)
}

func TestCache_DirtyEvictionProducesWriteback(t *testing.T) {
	resp := &fakeResponder{}
	c := New("L1D", 128, 1, 64, 4, 4, 4, 2, NoCoherence{}, resp, nil) // 2 sets, 1 way

	req1 := &memreq.Request{PAddr: 0x0, Cmd: memreq.CmdWrite, TrueRequester: 0}
	c.Access(req1)
	c.HandleResponse(req1)
	require.Equal(t, AccessHit, c.Access(&memreq.Request{PAddr: 0x0, Cmd: memreq.CmdWrite, TrueRequester: 0}))

	// A different line mapping to the same set (0x0 and 0x1000 both index
	// set 0) must evict the dirty
	// block and push a writeback before the new miss is forwarded.
	req2 := &memreq.Request{PAddr: 0x1000, Cmd: memreq.CmdRead, TrueRequester: 0}
	c.Access(req2)
	require.Len(t, resp.writebacks, 1)
	require.Equal(t, memreq.CmdWriteback, resp.writebacks[0].Cmd)
}

func TestCache_UncacheableBypassesTagsEntirely(t *testing.T) {
	resp := &fakeResponder{}
	c := newTestCache(resp)

	req := &memreq.Request{PAddr: 0x1000, Cmd: memreq.CmdRead, Flags: memreq.FlagUncacheable}
	outcome := c.Access(req)
	require.Equal(t, AccessMiss, outcome)
	require.Len(t, resp.misses, 1)
	require.Nil(t, c.tags.Lookup(0x1000))
}

func TestCache_WayPartitioningRestrictsVictimSelection(t *testing.T) {
	resp := &fakeResponder{}
	c := New("LLC", 128, 2, 64, 4, 4, 4, 4, NoCoherence{}, resp, nil) // 1 set, 2 ways
	c.EnableWayPartitioning(map[int]int{0: 1, 1: 1})

	req0 := &memreq.Request{PAddr: 0x0, Cmd: memreq.CmdRead, TrueRequester: 0}
	c.Access(req0)
	c.HandleResponse(req0)

	req1 := &memreq.Request{PAddr: 0x1000, Cmd: memreq.CmdRead, TrueRequester: 1}
	c.Access(req1)
	c.HandleResponse(req1)

	// Both cores' lines must coexist (one way each); neither should have
	// evicted the other given disjoint 1-way quotas.
	require.NotNil(t, c.tags.Lookup(0x0))
	require.NotNil(t, c.tags.Lookup(0x1000))
}
