package cpu

import (
	"github.com/magnusjahre/MM5-sub002/internal/pipeline"
	"github.com/magnusjahre/MM5-sub002/internal/specstate"
)

// Thread is one hardware thread's architectural and front-end state: the
// program counter, the not-yet-dispatched fetch queue, and the per-
// thread dispatch/ROB/LSQ triple a shared IQ and shared physical
// register files are wired into, per spec.md section 4.3's "per-thread
// create-vectors... shared physical register pool".
type Thread struct {
	ID int
	PC uint64

	// SpecDepth counts in-flight control instructions fetched but not yet
	// resolved; an instruction fetched while SpecDepth > 0 executes under
	// spec_mode (spec.md section 4.3), masking faults and uncacheable
	// side effects it would otherwise take.
	SpecDepth int

	FetchQueue []*pipeline.DynInst
	ifqCap     int

	Dispatcher *pipeline.Dispatcher
	ROB        *pipeline.ROB
	LSQ        *pipeline.LSQ

	memLog *specstate.MemoryLog

	// committedInsts counts this thread's retirements since construction;
	// it is never reset (see CommittedCount).
	committedInsts int64
}

func newThread(id int, ifqCap int, dispatcher *pipeline.Dispatcher, rob *pipeline.ROB, lsq *pipeline.LSQ, mem *FunctionalMemory, blockSize uint64) *Thread {
	return &Thread{
		ID:         id,
		ifqCap:     ifqCap,
		Dispatcher: dispatcher,
		ROB:        rob,
		LSQ:        lsq,
		memLog:     specstate.NewMemoryLog(blockSize, mem),
	}
}

func (t *Thread) fetchQueueFull() bool { return len(t.FetchQueue) >= t.ifqCap }

// CommittedCount returns the number of instructions this thread has
// retired since construction.
func (t *Thread) CommittedCount() int64 { return t.committedInsts }
