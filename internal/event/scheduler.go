// Package event implements the simulator's single global discrete-event
// scheduler (spec.md section 4.1): a min-heap keyed on (tick, priority
// class, insertion order), driving the simulation clock one tick at a
// time. All handlers run cooperatively on a single goroutine; see spec.md
// section 5 for the concurrency model this package assumes.
package event

import "container/heap"

// Priority orders events scheduled for the same tick. Lower values run
// first. The ordering mirrors the pipe stage order in spec.md section 2:
// commit < writeback < issue < dispatch < fetch < memory-controller <
// simulation-exit, so that newer pipeline stages observe state freed by
// older ones within the same cycle.
type Priority int

const (
	PriorityCommit Priority = iota
	PriorityWriteback
	PriorityIssue
	PriorityDispatch
	PriorityFetch
	PriorityMemoryController
	PriorityBus
	PrioritySimulationExit
)

// Handler is invoked when its event fires. now is the scheduler's current
// tick, which equals the event's scheduled tick.
type Handler func(now int64)

// Event is a handle to one scheduled invocation. A Handler may reschedule
// its own Event by calling Scheduler.Reschedule; a cancelled Event's
// Handler is simply never invoked, discarded lazily when popped.
type Event struct {
	tick     int64
	priority Priority
	seq      uint64
	handler  Handler
	alive    bool
	index    int // heap index, maintained by container/heap
}

// Alive reports whether this event is still pending (not yet fired or
// cancelled). Handlers that hold onto their own *Event to reschedule
// themselves should check this before re-enqueuing, per spec.md section
// 4.1's "scheduled flag" guidance.
func (e *Event) Alive() bool { return e != nil && e.alive }

// eventHeap implements container/heap.Interface, generalizing the
// teacher's eventloop timerHeap (container/heap over {when, task}) from
// wall-clock time.Time to an integer tick plus a secondary priority class.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].tick != h[j].tick {
		return h[i].tick < h[j].tick
	}
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is the global event queue driving the simulation clock.
type Scheduler struct {
	heap    eventHeap
	now     int64
	seq     uint64
	pending int // count of alive (non-cancelled) events, for diagnostics
}

// NewScheduler creates an empty Scheduler with the clock at tick 0.
func NewScheduler() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.heap)
	return s
}

// Now returns the scheduler's current tick.
func (s *Scheduler) Now() int64 { return s.now }

// Pending returns the number of live (non-cancelled) scheduled events.
func (s *Scheduler) Pending() int { return s.pending }

// Schedule enqueues h to run at tick `when` with the given priority class.
// No check is made against `when` lying strictly in the past: such an
// event runs on the next RunTick, which sets Now back to its tick. Callers
// that need "as soon as possible" semantics should pass Scheduler.Now().
func (s *Scheduler) Schedule(when int64, priority Priority, h Handler) *Event {
	e := &Event{
		tick:     when,
		priority: priority,
		seq:      s.seq,
		handler:  h,
		alive:    true,
	}
	s.seq++
	s.pending++
	heap.Push(&s.heap, e)
	return e
}

// Cancel marks e as dead. This is O(1): the heap entry is discarded lazily
// the next time it reaches the front of the queue (spec.md section 4.1).
func (s *Scheduler) Cancel(e *Event) {
	if e == nil || !e.alive {
		return
	}
	e.alive = false
	s.pending--
}

// Reschedule cancels e (if still alive) and schedules a new event with the
// same handler at a new tick/priority, returning the new Event. This is the
// idiom for self-rescheduling events (e.g. a timeout that re-arms itself).
func (s *Scheduler) Reschedule(e *Event, when int64, priority Priority) *Event {
	h := e.handler
	s.Cancel(e)
	return s.Schedule(when, priority, h)
}

// RunTick advances to the next scheduled tick (if any) and runs every live
// event due at that tick, in priority order, before returning. It returns
// false if the queue is empty. Events that a handler schedules during this
// call for this same tick also run before RunTick returns, in heap order,
// whatever their priority.
func (s *Scheduler) RunTick() bool {
	if s.heap.Len() == 0 {
		return false
	}
	s.now = s.heap[0].tick
	// Keep popping while the heap top is due at this tick, so events that
	// handlers push for this same tick are run here too.
	for s.heap.Len() > 0 && s.heap[0].tick == s.now {
		e := heap.Pop(&s.heap).(*Event)
		if !e.alive {
			continue
		}
		e.alive = false
		s.pending--
		e.handler(s.now)
	}
	return true
}

// Run drains the queue by repeatedly calling RunTick until either the
// queue empties or the clock would advance past untilTick (exclusive of
// events scheduled exactly at untilTick, which still run). Returns the
// final tick reached.
func (s *Scheduler) Run(untilTick int64) int64 {
	for s.heap.Len() > 0 && s.heap[0].tick <= untilTick {
		s.RunTick()
	}
	return s.now
}

// RunUntilEmpty drains every event in the queue, including ones scheduled
// by handlers along the way, and returns the final tick reached.
func (s *Scheduler) RunUntilEmpty() int64 {
	for s.RunTick() {
	}
	return s.now
}
