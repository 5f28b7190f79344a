package dram

import (
	"fmt"

	"github.com/magnusjahre/MM5-sub002/internal/memreq"
)

// SchedulingPolicy selects which pending request the controller issues next
// when more than one bank has a ready candidate, per spec.md section 4.9
// ("scheduling policy is pluggable").
type SchedulingPolicy int

const (
	// PolicyFCFS issues requests in arrival order, ignoring page state.
	PolicyFCFS SchedulingPolicy = iota
	// PolicyPageHitFirst prefers a request that hits the bank's currently
	// open page over an older request that would require a page close,
	// trading strict fairness for throughput.
	PolicyPageHitFirst
)

type pendingEntry struct {
	req     *memreq.Request
	arrival int64
}

// MemoryController buffers requests per bank and drives BankModel's
// Activate/Access/Close transitions, presenting the single
// insert/hasMore/getRequest surface the original TimingMemoryController
// exposes to its bus (_examples/original_source/m5/mem/bus/controller/
// memory_controller.hh). It owns exactly one open page per bank at a time;
// a request whose page differs from what is open triggers a close-then-
// activate before it can be serviced.
type MemoryController struct {
	bank   *BankModel
	timing Timing
	policy SchedulingPolicy

	pending      [][]pendingEntry // indexed by bank
	openPage     []int64          // -1 means no page open
	totalPending int
}

// NewMemoryController allocates a controller over a fresh BankModel.
func NewMemoryController(t Timing, policy SchedulingPolicy) *MemoryController {
	openPage := make([]int64, t.NumBanks)
	for i := range openPage {
		openPage[i] = -1
	}
	return &MemoryController{
		bank:     NewBankModel(t),
		timing:   t,
		policy:   policy,
		pending:  make([][]pendingEntry, t.NumBanks),
		openPage: openPage,
	}
}

// Stats exposes the underlying bank model's accumulated statistics.
func (c *MemoryController) Stats() Stats { return c.bank.Stats() }

// BankModel exposes the underlying per-bank state machine, for
// shadow-tag-style read access from the interference manager.
func (c *MemoryController) BankModel() *BankModel { return c.bank }

// InsertRequest buffers req against its target bank's queue. now is the
// controller-local arrival tick, recorded for FCFS ordering and fairness
// accounting.
func (c *MemoryController) InsertRequest(req *memreq.Request, now int64) error {
	if req.Cmd != memreq.CmdRead && req.Cmd != memreq.CmdWrite && req.Cmd != memreq.CmdWriteback {
		return fmt.Errorf("dram: memory controller cannot buffer command %s", req.Cmd)
	}
	bank := c.bank.bankFor(req.PAddr)
	c.pending[bank] = append(c.pending[bank], pendingEntry{req: req, arrival: now})
	c.totalPending++
	return nil
}

// HasMoreRequests reports whether any bank queue is non-empty.
func (c *MemoryController) HasMoreRequests() bool { return c.totalPending > 0 }

// NextRequest selects, without removing, the request the controller would
// service next under its configured policy.
func (c *MemoryController) NextRequest() *memreq.Request {
	idx, bank := c.selectNext()
	if idx < 0 {
		return nil
	}
	return c.pending[bank][idx].req
}

// selectNext returns the (queue-index, bank) of the chosen candidate, or
// (-1, -1) if nothing is pending.
func (c *MemoryController) selectNext() (int, int) {
	switch c.policy {
	case PolicyPageHitFirst:
		// First pass: the oldest queued request in any bank that targets
		// that bank's open page, ahead of older requests to other pages.
		for bank, q := range c.pending {
			for i, e := range q {
				if c.openPage[bank] == PageOf(e.req.PAddr, c.timing.PageShiftBits) {
					return i, bank
				}
			}
		}
		fallthrough
	default: // PolicyFCFS
		bestBank := -1
		var bestArrival int64
		var bestSeq uint64
		for bank, q := range c.pending {
			if len(q) == 0 {
				continue
			}
			head := q[0]
			if bestBank == -1 || head.arrival < bestArrival ||
				(head.arrival == bestArrival && head.req.SeqNum < bestSeq) {
				bestBank = bank
				bestArrival = head.arrival
				bestSeq = head.req.SeqNum
			}
		}
		if bestBank == -1 {
			return -1, -1
		}
		return 0, bestBank
	}
}

// Service removes the chosen request from its bank's queue and drives it
// through Close (if the bank holds a different page open), Activate (if the
// bank is idle or was just closed), and Access. It returns the total
// latency in ticks and the DRAM outcome classification.
func (c *MemoryController) Service(now int64, req *memreq.Request) (latency int64, outcome Outcome, err error) {
	bank := c.bank.bankFor(req.PAddr)
	q := c.pending[bank]
	pos := -1
	for i, e := range q {
		if e.req == req {
			pos = i
			break
		}
	}
	if pos == -1 {
		return 0, OutcomeMiss, fmt.Errorf("dram: request not pending on bank %d", bank)
	}
	c.pending[bank] = append(q[:pos], q[pos+1:]...)
	c.totalPending--

	page := PageOf(req.PAddr, c.timing.PageShiftBits)
	cur := now

	if c.openPage[bank] != -1 && c.openPage[bank] != page {
		closeLat, cerr := c.bank.Close(cur, pagePaddr(c.openPage[bank], c.timing.PageShiftBits))
		if cerr != nil {
			return 0, OutcomeMiss, cerr
		}
		cur += closeLat
		c.openPage[bank] = -1
	}

	if c.openPage[bank] == -1 {
		actLat, aerr := c.bank.Activate(cur, req.PAddr)
		if aerr != nil {
			return 0, OutcomeMiss, aerr
		}
		cur += actLat
		c.openPage[bank] = page
	}

	accessLat, out, aerr := c.bank.Access(cur, req.PAddr, req.IssuingCPU, req.Cmd.IsWriteFamily())
	if aerr != nil {
		return 0, OutcomeMiss, aerr
	}

	req.DRAMResult = out.String()
	return (cur - now) + accessLat, out, nil
}

// pagePaddr reconstructs a representative address for a page number, for
// feeding back into BankModel.Close (which only needs the page, not the
// exact original address).
func pagePaddr(page int64, pageShiftBits uint) uint64 {
	return uint64(page) << pageShiftBits
}

// PendingCount returns the number of requests queued against bank i.
func (c *MemoryController) PendingCount(bank int) int { return len(c.pending[bank]) }

// OpenPage returns the page currently open on bank i, or -1 if none.
func (c *MemoryController) OpenPage(bank int) int64 { return c.openPage[bank] }
