package pipeline

import "golang.org/x/exp/slices"

// IQKind selects which instruction-queue scheduling discipline a CPU uses,
// per spec.md section 4.4's three named variants.
type IQKind int

const (
	IQUnordered IQKind = iota
	IQReadyQueue
	IQPreScheduled
)

// IQ is the common interface the three instruction-queue variants
// implement, letting dispatch/issue stay agnostic to which scheduling
// discipline backs a given CPU. Grounded on spec.md section 9's guidance
// to model the IQ variants as a tagged sum type over one interface rather
// than deep inheritance.
type IQ interface {
	Cap() int
	Len() int
	Full() bool
	Push(inst *DynInst) bool
	// NotifyReady tells the queue that inst now has every source operand
	// available (called by writeback's consumer walk).
	NotifyReady(inst *DynInst)
	// Issue selects up to n ready instructions to leave the queue this
	// cycle, oldest-ready-first.
	Issue(n int) []*DynInst
	// Remove drops inst from the queue outright, used by squash.
	Remove(inst *DynInst)
	// Tick advances any internal scheduling clock (a no-op for the
	// non-pre-scheduled variants).
	Tick()
}

// unorderedIQ holds every waiting instruction in one slice and rescans it
// for ready entries on every Issue call, grounded on the simplest IQ
// model named in spec.md section 4.4 (no separate ready tracking).
type unorderedIQ struct {
	cap     int
	entries []*DynInst
}

func NewUnorderedIQ(capacity int) IQ { return &unorderedIQ{cap: capacity} }

func (q *unorderedIQ) Cap() int  { return q.cap }
func (q *unorderedIQ) Len() int  { return len(q.entries) }
func (q *unorderedIQ) Full() bool { return len(q.entries) >= q.cap }

func (q *unorderedIQ) Push(inst *DynInst) bool {
	if q.Full() {
		return false
	}
	q.entries = append(q.entries, inst)
	return true
}

func (q *unorderedIQ) NotifyReady(inst *DynInst) {}

func (q *unorderedIQ) Issue(n int) []*DynInst {
	var issued []*DynInst
	remaining := q.entries[:0]
	for _, inst := range q.entries {
		if len(issued) < n && inst.AllSourcesReady() {
			issued = append(issued, inst)
		} else {
			remaining = append(remaining, inst)
		}
	}
	q.entries = remaining
	return issued
}

func (q *unorderedIQ) Remove(inst *DynInst) {
	if i := slices.Index(q.entries, inst); i >= 0 {
		q.entries = slices.Delete(q.entries, i, i+1)
	}
}

func (q *unorderedIQ) Tick() {}

// readyQueueIQ keeps waiting instructions partitioned into a not-ready
// slice and an explicit FIFO ready queue, so Issue never has to rescan the
// not-ready population; NotifyReady moves an entry across the partition
// once, grounded on the same file's "ready list" variant of the IQ model.
type readyQueueIQ struct {
	cap      int
	notReady []*DynInst
	ready    []*DynInst
}

func NewReadyQueueIQ(capacity int) IQ { return &readyQueueIQ{cap: capacity} }

func (q *readyQueueIQ) Cap() int  { return q.cap }
func (q *readyQueueIQ) Len() int  { return len(q.notReady) + len(q.ready) }
func (q *readyQueueIQ) Full() bool { return q.Len() >= q.cap }

func (q *readyQueueIQ) Push(inst *DynInst) bool {
	if q.Full() {
		return false
	}
	if inst.AllSourcesReady() {
		q.ready = append(q.ready, inst)
	} else {
		q.notReady = append(q.notReady, inst)
	}
	return true
}

func (q *readyQueueIQ) NotifyReady(inst *DynInst) {
	if i := slices.Index(q.notReady, inst); i >= 0 {
		q.notReady = slices.Delete(q.notReady, i, i+1)
		q.ready = append(q.ready, inst)
	}
}

func (q *readyQueueIQ) Issue(n int) []*DynInst {
	if n > len(q.ready) {
		n = len(q.ready)
	}
	issued := append([]*DynInst(nil), q.ready[:n]...)
	q.ready = slices.Delete(q.ready, 0, n)
	return issued
}

func (q *readyQueueIQ) Remove(inst *DynInst) {
	if i := slices.Index(q.notReady, inst); i >= 0 {
		q.notReady = slices.Delete(q.notReady, i, i+1)
		return
	}
	if i := slices.Index(q.ready, inst); i >= 0 {
		q.ready = slices.Delete(q.ready, i, i+1)
	}
}

func (q *readyQueueIQ) Tick() {}

// preScheduledIQ is the ring-of-line-buckets variant: each waiting
// instruction is filed into the bucket corresponding to the scheduler's
// best estimate of the cycle ("line") its last-arriving operand becomes
// ready, and activeLine walks the ring one slot per Tick, picking up
// entries whose estimate has arrived. Grounded on the teacher's
// catrate/ring.go power-of-two ring-buffer idiom (fixed-capacity slot
// array indexed by a wrapping cursor), here reused for "busy-until-cycle"
// in the FU pool too; an instruction whose estimate turns out wrong (a
// cache miss, say) is not dropped: Issue leaves it in its line, where the
// cursor finds it again one ring revolution later, unless NotifyReady
// moves it to the active line first.
type preScheduledIQ struct {
	cap        int
	count      int
	ringSize   int
	buckets    [][]*DynInst
	activeLine int
	// unscheduled holds entries not yet known to have a target line (e.g.
	// operands still awaiting a cache-miss fill with unknown latency);
	// NotifyReady moves these straight into the active bucket.
	unscheduled []*DynInst
}

// NewPreScheduledIQ allocates a ring-of-line-buckets IQ with capacity
// entries and a ring spanning ringSize lines (must exceed the deepest
// producer latency the CPU models; spec.md leaves the exact size to the
// implementation).
func NewPreScheduledIQ(capacity, ringSize int) IQ {
	return &preScheduledIQ{
		cap:      capacity,
		ringSize: ringSize,
		buckets:  make([][]*DynInst, ringSize),
	}
}

func (q *preScheduledIQ) Cap() int  { return q.cap }
func (q *preScheduledIQ) Len() int  { return q.count }
func (q *preScheduledIQ) Full() bool { return q.count >= q.cap }

// Push files inst by its producers' estimated latency: a ready inst goes
// into the active line; a not-ready inst with FUOpLatency > 0 goes
// FUOpLatency lines ahead (failing when that is a full ring or more); any
// other inst waits on the unscheduled list until NotifyReady moves it.
func (q *preScheduledIQ) Push(inst *DynInst) bool {
	if q.Full() {
		return false
	}
	if inst.AllSourcesReady() {
		line := q.activeLine % q.ringSize
		q.buckets[line] = append(q.buckets[line], inst)
		q.count++
		return true
	}
	if inst.FUOpLatency >= q.ringSize {
		// The use-line the producer latency estimates would sit past the
		// active cursor by a full ring revolution: insertion fails, per
		// spec.md section 4.4.
		return false
	}
	if inst.FUOpLatency > 0 {
		line := (q.activeLine + inst.FUOpLatency) % q.ringSize
		q.buckets[line] = append(q.buckets[line], inst)
		q.count++
		return true
	}
	q.unscheduled = append(q.unscheduled, inst)
	q.count++
	return true
}

// NotifyReady moves inst into the currently-active bucket so the next
// Issue call can pick it up, covering the case where a real wakeup arrives
// either earlier or later than the original line estimate.
func (q *preScheduledIQ) NotifyReady(inst *DynInst) {
	if i := slices.Index(q.unscheduled, inst); i >= 0 {
		q.unscheduled = slices.Delete(q.unscheduled, i, i+1)
	} else {
		for line, bucket := range q.buckets {
			if i := slices.Index(bucket, inst); i >= 0 {
				q.buckets[line] = slices.Delete(bucket, i, i+1)
				break
			}
		}
	}
	active := q.activeLine % q.ringSize
	q.buckets[active] = append(q.buckets[active], inst)
}

// Tick advances the ring one slot, per spec.md section 4.4's "tick()
// advances the ring one slot".
func (q *preScheduledIQ) Tick() {
	q.activeLine = (q.activeLine + 1) % q.ringSize
}

// Issue returns up to n ready instructions from the active line.
func (q *preScheduledIQ) Issue(n int) []*DynInst {
	active := q.activeLine % q.ringSize
	bucket := q.buckets[active]
	var issued []*DynInst
	var remaining []*DynInst
	for _, inst := range bucket {
		if len(issued) < n && inst.AllSourcesReady() {
			issued = append(issued, inst)
			q.count--
		} else {
			remaining = append(remaining, inst)
		}
	}
	q.buckets[active] = remaining
	return issued
}

func (q *preScheduledIQ) Remove(inst *DynInst) {
	if i := slices.Index(q.unscheduled, inst); i >= 0 {
		q.unscheduled = slices.Delete(q.unscheduled, i, i+1)
		q.count--
		return
	}
	for line, bucket := range q.buckets {
		if i := slices.Index(bucket, inst); i >= 0 {
			q.buckets[line] = slices.Delete(bucket, i, i+1)
			q.count--
			return
		}
	}
}

// NewIQ constructs the configured variant.
func NewIQ(kind IQKind, capacity, ringSize int) IQ {
	switch kind {
	case IQReadyQueue:
		return NewReadyQueueIQ(capacity)
	case IQPreScheduled:
		return NewPreScheduledIQ(capacity, ringSize)
	default:
		return NewUnorderedIQ(capacity)
	}
}
