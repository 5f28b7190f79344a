package cache

import "github.com/magnusjahre/MM5-sub002/internal/memreq"

// MSHR is one outstanding miss handler: the original fill request plus any
// further requests to the same block that arrived while it was pending
// (its "targets"), grounded on cache_impl.hh's MSHR/mshr.hh.
type MSHR struct {
	valid     bool
	gen       uint32
	BlockAddr uint64
	Requests  []*memreq.Request // Requests[0] is the request driving the fill
}

func (m *MSHR) Targets() []*memreq.Request {
	if len(m.Requests) <= 1 {
		return nil
	}
	return m.Requests[1:]
}

// MSHRTable is a fixed-capacity arena of MSHRs, indexed by
// memreq.MSHRHandle, following the teacher's generation-tagged handle
// idiom (memreq.MSHRHandle.Gen guards against stale-handle reuse the way
// a free-list-backed registry would).
type MSHRTable struct {
	entries        []MSHR
	free           []int
	targetsPerMSHR int
	byAddr         map[uint64]int // blockAddr -> entries index, valid MSHRs only
}

func NewMSHRTable(count, targetsPerMSHR int) *MSHRTable {
	t := &MSHRTable{
		entries:        make([]MSHR, count),
		free:           make([]int, count),
		targetsPerMSHR: targetsPerMSHR,
		byAddr:         make(map[uint64]int, count),
	}
	for i := range t.free {
		t.free[i] = count - 1 - i
	}
	return t
}

// Find returns the MSHR servicing blockAddr, if any.
func (t *MSHRTable) Find(blockAddr uint64) (memreq.MSHRHandle, *MSHR, bool) {
	idx, ok := t.byAddr[blockAddr]
	if !ok {
		return memreq.MSHRHandle{}, nil, false
	}
	e := &t.entries[idx]
	return memreq.MSHRHandle{Valid: true, Index: idx, Gen: e.gen}, e, true
}

// HasFreeSlot reports whether a new MSHR can be allocated right now,
// backing the {no-MSHRs} blocking condition.
func (t *MSHRTable) HasFreeSlot() bool { return len(t.free) > 0 }

// Allocate reserves a new MSHR for blockAddr driven by req.
func (t *MSHRTable) Allocate(blockAddr uint64, req *memreq.Request) (memreq.MSHRHandle, *MSHR, bool) {
	if len(t.free) == 0 {
		return memreq.MSHRHandle{}, nil, false
	}
	idx := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]

	e := &t.entries[idx]
	e.valid = true
	e.gen++
	e.BlockAddr = blockAddr
	e.Requests = append(e.Requests[:0], req)
	t.byAddr[blockAddr] = idx

	req.MSHR = memreq.MSHRHandle{Valid: true, Index: idx, Gen: e.gen}
	return req.MSHR, e, true
}

// AddTarget merges req into an already-allocated MSHR, backing the
// {no-targets} blocking condition via HasFreeTarget.
func (t *MSHRTable) AddTarget(handle memreq.MSHRHandle, req *memreq.Request) bool {
	e := t.get(handle)
	if e == nil {
		return false
	}
	if t.targetsPerMSHR > 0 && len(e.Requests) >= t.targetsPerMSHR {
		return false
	}
	e.Requests = append(e.Requests, req)
	req.MSHR = handle
	return true
}

// HasFreeTarget reports whether handle's MSHR can accept another target.
func (t *MSHRTable) HasFreeTarget(handle memreq.MSHRHandle) bool {
	e := t.get(handle)
	if e == nil {
		return false
	}
	return t.targetsPerMSHR <= 0 || len(e.Requests) < t.targetsPerMSHR
}

// get resolves handle to its MSHR, rejecting stale generations.
func (t *MSHRTable) get(handle memreq.MSHRHandle) *MSHR {
	if !handle.Valid || handle.Index < 0 || handle.Index >= len(t.entries) {
		return nil
	}
	e := &t.entries[handle.Index]
	if !e.valid || e.gen != handle.Gen {
		return nil
	}
	return e
}

// Release frees handle's MSHR and returns its targets so the caller can
// drain/resume them.
func (t *MSHRTable) Release(handle memreq.MSHRHandle) []*memreq.Request {
	e := t.get(handle)
	if e == nil {
		return nil
	}
	targets := e.Requests
	delete(t.byAddr, e.BlockAddr)
	e.valid = false
	e.Requests = nil
	t.free = append(t.free, handle.Index)
	return targets
}

// WBBuffer is the fixed-capacity displaced-writeback queue named in
// spec.md section 4.6.
type WBBuffer struct {
	capacity int
	pending  []*memreq.Request
}

func NewWBBuffer(capacity int) *WBBuffer {
	return &WBBuffer{capacity: capacity}
}

// HasFreeSlot backs the {no-WB-buffers} blocking condition.
func (b *WBBuffer) HasFreeSlot() bool { return len(b.pending) < b.capacity }

func (b *WBBuffer) Push(req *memreq.Request) bool {
	if !b.HasFreeSlot() {
		return false
	}
	b.pending = append(b.pending, req)
	return true
}

func (b *WBBuffer) Pop() (*memreq.Request, bool) {
	if len(b.pending) == 0 {
		return nil, false
	}
	req := b.pending[0]
	b.pending = b.pending[1:]
	return req, true
}

func (b *WBBuffer) Len() int { return len(b.pending) }
