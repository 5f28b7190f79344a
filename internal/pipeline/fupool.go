package pipeline

import "github.com/magnusjahre/MM5-sub002/internal/config"

// unit is one physical functional unit of some class, identified by a
// flat index into FUPool.classOf/opLatency/issueLatency.
type unit struct {
	class        int
	opLatency    int
	issueLatency int
}

// FUPool is the functional-unit pool of spec.md section 4.4: a set of
// classes, each with some number of identical units, each able to service
// one opclass at a time for issueLatency cycles before it may be
// re-acquired. Grounded on the teacher's catrate/ring.go power-of-two ring
// buffer (fixed-size slot array plus a wrapping cursor), here holding
// "units due back at ring slot S" instead of rate-limiter timestamps:
// acquire places the unit issueLatency slots ahead of the current cursor,
// and Tick advances the cursor one slot, freeing whatever's due.
type FUPool struct {
	units        []unit
	classOfName  map[string]int
	opclassUnits map[string][]int // opclass -> candidate unit indices

	free map[int][]int // class -> free unit indices

	ring     [][]int // ring[slot] = unit indices due back at that slot
	ringSize int
	cursor   int
}

// NewFUPool builds a pool from the configured FU classes. ringSize must
// exceed the longest issueLatency among classes; callers typically size it
// to the max issueLatency rounded up to a power of two, matching
// catrate's ring-size convention, though this pool does not itself require
// a power of two.
func NewFUPool(classes []config.FUClass, ringSize int) *FUPool {
	p := &FUPool{
		classOfName:  make(map[string]int),
		opclassUnits: make(map[string][]int),
		free:         make(map[int][]int),
		ring:         make([][]int, ringSize),
		ringSize:     ringSize,
	}
	for ci, fc := range classes {
		p.classOfName[fc.Name] = ci
		for u := 0; u < fc.Count; u++ {
			idx := len(p.units)
			p.units = append(p.units, unit{class: ci, opLatency: fc.OpLatency, issueLatency: fc.IssueLatency})
			p.free[ci] = append(p.free[ci], idx)
		}
		for _, oc := range fc.Opclasses {
			p.opclassUnits[oc] = append(p.opclassUnits[oc], p.free[ci]...)
		}
	}
	return p
}

// CanAcquire reports whether some unit servicing opclass is currently
// free, without consuming it.
func (p *FUPool) CanAcquire(opclass string) bool {
	for _, idx := range p.opclassUnits[opclass] {
		class := p.units[idx].class
		if slicesContains(p.free[class], idx) {
			return true
		}
	}
	return false
}

// Acquire claims a free unit servicing opclass, marking it busy for its
// issueLatency cycles (scheduled for release onto the ring), and returns
// the (opLatency, issueLatency, ok) the caller needs to schedule the
// consuming instruction's wakeup.
func (p *FUPool) Acquire(opclass string) (opLatency, issueLatency int, ok bool) {
	for _, idx := range p.opclassUnits[opclass] {
		u := p.units[idx]
		freeList := p.free[u.class]
		if i := indexOfInt(freeList, idx); i >= 0 {
			p.free[u.class] = append(freeList[:i], freeList[i+1:]...)
			slot := (p.cursor + u.issueLatency) % p.ringSize
			p.ring[slot] = append(p.ring[slot], idx)
			return u.opLatency, u.issueLatency, true
		}
	}
	return 0, 0, false
}

// Tick advances the ring one slot and returns every unit freed this cycle
// to its class's free list, per spec.md section 4.4's "tick() advances the
// ring one slot and returns units whose release expired to the free
// list".
func (p *FUPool) Tick() {
	p.cursor = (p.cursor + 1) % p.ringSize
	due := p.ring[p.cursor]
	p.ring[p.cursor] = nil
	for _, idx := range due {
		class := p.units[idx].class
		p.free[class] = append(p.free[class], idx)
	}
}

func slicesContains(s []int, v int) bool { return indexOfInt(s, v) >= 0 }

func indexOfInt(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
