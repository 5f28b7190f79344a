package pipeline

// CommitModel orders which threads get first claim on a cycle's shared
// commit bandwidth, per spec.md section 4.5's four named variants.
// Grounded on encumbered/cpu/full/commit.cc's pluggable "thread priority"
// policy object.
type CommitModel interface {
	// Order returns threadIDs reordered by this cycle's priority; the
	// caller drains commit bandwidth against threads in the returned
	// order.
	Order(threadIDs []int) []int
}

// RoundRobinCommit rotates which thread gets first claim each cycle.
type RoundRobinCommit struct{ last int }

func (m *RoundRobinCommit) Order(threadIDs []int) []int {
	if len(threadIDs) == 0 {
		return nil
	}
	out := make([]int, 0, len(threadIDs))
	start := m.last % len(threadIDs)
	for i := 0; i < len(threadIDs); i++ {
		out = append(out, threadIDs[(start+i)%len(threadIDs)])
	}
	m.last++
	return out
}

// PerThreadStrictCommit always serves threads in the same fixed priority
// order (ascending thread ID), so a higher-priority thread never yields
// to a lower one even if it could make progress.
type PerThreadStrictCommit struct{}

func (PerThreadStrictCommit) Order(threadIDs []int) []int {
	out := append([]int(nil), threadIDs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// SMTFairCommit gives priority to whichever thread has committed the
// fewest instructions so far, approximating the weighted-fair SMT commit
// policy named in spec.md section 4.5.
type SMTFairCommit struct {
	Committed map[int]uint64
}

func NewSMTFairCommit() *SMTFairCommit { return &SMTFairCommit{Committed: make(map[int]uint64)} }

func (m *SMTFairCommit) Order(threadIDs []int) []int {
	out := append([]int(nil), threadIDs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && m.Committed[out[j]] < m.Committed[out[j-1]]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (m *SMTFairCommit) Note(threadID int) { m.Committed[threadID]++ }

// SuperscalarOneThreadPerCycle restricts an entire cycle's commit
// bandwidth to a single thread, round-robining which thread owns the
// cycle - the degenerate single-thread-per-cycle SMT commit discipline
// named in spec.md section 4.5.
type SuperscalarOneThreadPerCycle struct{ next int }

func (m *SuperscalarOneThreadPerCycle) Order(threadIDs []int) []int {
	if len(threadIDs) == 0 {
		return nil
	}
	chosen := threadIDs[m.next%len(threadIDs)]
	m.next++
	return []int{chosen}
}

// ThreadCommitResult is one thread's outcome for a CommitCycle call.
type ThreadCommitResult struct {
	Committed []*DynInst
	Cause     CommitEndCause
}

// CommitManager retires completed instructions from each thread's ROB in
// program order, up to a shared per-cycle width, ordered by Model.
// Grounded on spec.md section 4.5; one ROB/LSQ pair per thread mirrors
// PerThreadROBCap in internal/config.
type CommitManager struct {
	ROBs  map[int]*ROB
	LSQs  map[int]*LSQ
	Model CommitModel
	Width int

	IntRegs *PhysRegFile
	FPRegs  *PhysRegFile

	// Dispatchers, when set, has its per-thread ROB occupancy counter
	// decremented on every retirement, keeping PerThreadROBCap accurate.
	Dispatchers map[int]*Dispatcher
}

// NewCommitManager builds a manager over the given per-thread ROB/LSQ
// maps, sharing one physical register pool per type across all threads.
func NewCommitManager(robs map[int]*ROB, lsqs map[int]*LSQ, intRegs, fpRegs *PhysRegFile, model CommitModel, width int) *CommitManager {
	return &CommitManager{ROBs: robs, LSQs: lsqs, Model: model, Width: width, IntRegs: intRegs, FPRegs: fpRegs}
}

// CommitCycle drains up to Width instructions total across every thread,
// in the order Model selects, stopping each thread at its own first
// blocking cause.
func (c *CommitManager) CommitCycle() map[int]ThreadCommitResult {
	threadIDs := make([]int, 0, len(c.ROBs))
	for tid := range c.ROBs {
		threadIDs = append(threadIDs, tid)
	}
	order := c.Model.Order(threadIDs)

	results := make(map[int]ThreadCommitResult, len(order))
	remaining := c.Width

	for _, tid := range order {
		rob := c.ROBs[tid]
		lsq := c.LSQs[tid]
		res := ThreadCommitResult{}

		for remaining > 0 {
			head := rob.Head()
			if head == nil {
				res.Cause = CommitROBEmpty
				break
			}
			if !head.Completed {
				res.Cause = CommitFU
				break
			}
			if head.Fault == FaultMemoryAccess && (head.IsLoad || head.IsStore) {
				res.Cause = CommitDCacheMiss
				break
			}
			if head.IsSerializing && len(res.Committed) > 0 {
				res.Cause = CommitMemBarrier
				break
			}

			if head.IsLoad || head.IsStore {
				if lsq == nil {
					res.Cause = CommitROBEmpty
					break
				}
				_, full := lsq.CommitHead()
				if full {
					res.Cause = CommitStoreBufferFull
					break
				}
			}

			rob.PopHead()
			c.retireRegs(head)
			if disp, ok := c.Dispatchers[tid]; ok {
				disp.ReleaseROB(tid)
			}
			res.Committed = append(res.Committed, head)
			remaining--
			if fair, ok := c.Model.(*SMTFairCommit); ok {
				fair.Note(tid)
			}
		}

		if res.Cause == CommitNone && remaining == 0 {
			res.Cause = CommitBandwidth
		}
		results[tid] = res
		if remaining == 0 {
			break
		}
	}

	return results
}

// retireRegs frees each destination's previous physical register back to
// its pool, per spec.md section 4.3's commit-time rename cleanup.
func (c *CommitManager) retireRegs(inst *DynInst) {
	for i, dst := range inst.Dsts {
		if i >= len(inst.PhysDsts) || i >= len(inst.PrevPhysDsts) {
			continue
		}
		file := c.IntRegs
		if dst.Type == RegFP {
			file = c.FPRegs
		}
		file.Commit(dst.Arch, inst.PhysDsts[i], inst.PrevPhysDsts[i])
	}
}
