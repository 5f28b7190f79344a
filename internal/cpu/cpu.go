package cpu

import (
	"github.com/magnusjahre/MM5-sub002/internal/bpred"
	"github.com/magnusjahre/MM5-sub002/internal/cache"
	"github.com/magnusjahre/MM5-sub002/internal/config"
	"github.com/magnusjahre/MM5-sub002/internal/event"
	"github.com/magnusjahre/MM5-sub002/internal/interference"
	"github.com/magnusjahre/MM5-sub002/internal/logx"
	"github.com/magnusjahre/MM5-sub002/internal/memreq"
	"github.com/magnusjahre/MM5-sub002/internal/pipeline"
	"github.com/magnusjahre/MM5-sub002/internal/simfault"
)

// MemoryHierarchy is the CPU's downstream collaborator for everything its
// own L1s cannot satisfy: a miss or writeback that leaves this core is
// handed to whatever internal/sim wired up (bus, LLC, DRAM controller),
// keeping this package ignorant of that topology.
type MemoryHierarchy interface {
	ForwardMiss(req *memreq.Request)
	ForwardWriteback(req *memreq.Request)
}

// CPU is one out-of-order superscalar core: Threads share one physical
// register pool per type, one issue queue, and one functional-unit pool,
// per spec.md section 4.3's "per-thread create-vectors, shared physical
// register pool" SMT model. Grounded on
// _examples/original_source/m5/encumbered/cpu/full/cpu.hh's FullCPU,
// here assembled from the internal/pipeline building blocks instead of
// one monolithic class.
type CPU struct {
	ID      int
	Threads []*Thread

	IntRegs *pipeline.PhysRegFile
	FPRegs  *pipeline.PhysRegFile
	intVals *physValueFile
	fpVals  *physValueFile

	IQ pipeline.IQ
	FU *pipeline.FUPool

	Commit *pipeline.CommitManager
	Pred   *bpred.Predictor

	L1I *cache.Cache
	L1D *cache.Cache

	Source InstructionSource
	Hier   MemoryHierarchy
	Sched  *event.Scheduler
	Log    logx.Logger

	Interference *interference.Manager

	fetchWidth    int
	dispatchWidth int
	issueWidth    int
	storeDrainPerCycle int

	fetchRR int
	seq     uint64

	staticInsts  map[uint64]StaticInst
	xcOf         map[uint64]*execContext
	predictedPC  map[uint64]uint64
	specAt       map[uint64]bool
	producerInt  map[int]*pipeline.DynInst
	producerFP   map[int]*pipeline.DynInst

	// fetchPending tracks an in-flight icache line fetch, keyed by the
	// memreq.Request's SeqNum: the fetched instruction only becomes
	// visible to dispatch once DeliverResponse fires for it, modeling
	// L1I timing instead of decoding straight off the functional source.
	fetchPending map[uint64]*fetchToken
	// blockedFetch holds a thread's already-decoded-but-not-yet-accepted
	// fetch token when its icache access came back AccessBlocked, so the
	// next tickFetch retries the access instead of pulling a fresh
	// instruction (and silently dropping the blocked one) from Source.
	blockedFetch map[int]*fetchToken
}

// fetchToken is the not-yet-materialized DynInst an in-flight icache
// access is blocking on.
type fetchToken struct {
	threadID int
	pc       uint64
	si       StaticInst
}

// NewCPU assembles one core's pipeline from cfg, sharing pred, l1i, l1d,
// mem and hier across threads as appropriate. Callers (internal/sim's
// composition root) own constructing the shared predictor and caches and
// wiring hier to the rest of the memory system.
func NewCPU(id int, cfg config.Config, pred *bpred.Predictor, l1i, l1d *cache.Cache, mem *FunctionalMemory, source InstructionSource, sched *event.Scheduler, hier MemoryHierarchy, log logx.Logger) *CPU {
	if log == nil {
		log = logx.NewNoop()
	}

	numPhysInt := cfg.Pipeline.ROBSize + 32
	numPhysFP := cfg.Pipeline.ROBSize + 32

	c := &CPU{
		ID:                 id,
		IntRegs:            pipeline.NewPhysRegFile(32, numPhysInt),
		FPRegs:             pipeline.NewPhysRegFile(32, numPhysFP),
		intVals:            newPhysValueFile(numPhysInt),
		fpVals:             newPhysValueFile(numPhysFP),
		IQ:                 pipeline.NewIQ(pipeline.IQUnordered, cfg.Pipeline.IQSize, 0),
		FU:                 pipeline.NewFUPool(cfg.FUClasses, maxIssueLatency(cfg.FUClasses)),
		Pred:               pred,
		L1I:                l1i,
		L1D:                l1d,
		Source:             source,
		Hier:               hier,
		Sched:              sched,
		Log:                log,
		fetchWidth:         cfg.Pipeline.FetchWidth,
		dispatchWidth:      cfg.Pipeline.DispatchWidth,
		issueWidth:         cfg.Pipeline.IssueWidth,
		storeDrainPerCycle: cfg.Pipeline.CommitWidth,
		staticInsts:        make(map[uint64]StaticInst),
		xcOf:               make(map[uint64]*execContext),
		predictedPC:        make(map[uint64]uint64),
		specAt:             make(map[uint64]bool),
		producerInt:        make(map[int]*pipeline.DynInst),
		producerFP:         make(map[int]*pipeline.DynInst),
		fetchPending:       make(map[uint64]*fetchToken),
		blockedFetch:       make(map[int]*fetchToken),
	}

	robs := make(map[int]*pipeline.ROB, cfg.ThreadsPerCPU)
	lsqs := make(map[int]*pipeline.LSQ, cfg.ThreadsPerCPU)
	dispatchers := make(map[int]*pipeline.Dispatcher, cfg.ThreadsPerCPU)

	for t := 0; t < cfg.ThreadsPerCPU; t++ {
		rob := pipeline.NewROB(cfg.Pipeline.ROBSize)
		lsq := pipeline.NewLSQ(cfg.Pipeline.LSQSize, cfg.Pipeline.LSQSize)
		disp := pipeline.NewDispatcher(c.IntRegs, c.FPRegs, rob, c.IQ, lsq, cfg.Pipeline.DispatchWidth, cfg.Pipeline.PerThreadIQCap, cfg.Pipeline.PerThreadROBCap)
		thread := newThread(t, cfg.Pipeline.IFQSize, disp, rob, lsq, mem, uint64(cfg.L1D.LineSizeBytes))
		c.Threads = append(c.Threads, thread)
		robs[t] = rob
		lsqs[t] = lsq
		dispatchers[t] = disp
	}

	mgr := pipeline.NewCommitManager(robs, lsqs, c.IntRegs, c.FPRegs, &pipeline.RoundRobinCommit{}, cfg.Pipeline.CommitWidth)
	mgr.Dispatchers = dispatchers
	c.Commit = mgr

	return c
}

func maxIssueLatency(classes []config.FUClass) int {
	max := 1
	for _, fc := range classes {
		if fc.IssueLatency+1 > max {
			max = fc.IssueLatency + 1
		}
	}
	return max
}

func (c *CPU) nextSeqNum() uint64 {
	c.seq++
	return c.seq
}

func (c *CPU) thread(id int) *Thread {
	if id < 0 || id >= len(c.Threads) {
		return nil
	}
	return c.Threads[id]
}

// RegisterEvents schedules the four recurring per-cycle stages on sched's
// priority order (commit, issue, dispatch, fetch), per spec.md section 2;
// writeback is not recurring but driven by completion events scheduled at
// issue time.
func (c *CPU) RegisterEvents(startTick int64) {
	var commitFn, issueFn, dispatchFn, fetchFn event.Handler
	commitFn = func(now int64) {
		c.tickCommit(now)
		c.Sched.Schedule(now+1, event.PriorityCommit, commitFn)
	}
	issueFn = func(now int64) {
		c.tickIssue(now)
		c.Sched.Schedule(now+1, event.PriorityIssue, issueFn)
	}
	dispatchFn = func(now int64) {
		c.tickDispatch(now)
		c.FU.Tick()
		c.IQ.Tick()
		c.Sched.Schedule(now+1, event.PriorityDispatch, dispatchFn)
	}
	fetchFn = func(now int64) {
		c.tickFetch(now)
		c.Sched.Schedule(now+1, event.PriorityFetch, fetchFn)
	}
	c.Sched.Schedule(startTick, event.PriorityCommit, commitFn)
	c.Sched.Schedule(startTick, event.PriorityIssue, issueFn)
	c.Sched.Schedule(startTick, event.PriorityDispatch, dispatchFn)
	c.Sched.Schedule(startTick, event.PriorityFetch, fetchFn)
}

// tickFetch fills every thread's fetch queue up to fetchWidth
// instructions total this cycle, round-robining across threads so none
// starves, per spec.md section 4.2's fetch stage. Each fetch is an
// actual L1I access: a hit materializes the DynInst into the fetch
// queue synchronously, a miss or block defers that until the icache
// access completes, so icache contention and miss latency are visible
// to the rest of the pipeline rather than fetch being purely
// functional.
func (c *CPU) tickFetch(now int64) {
	if len(c.Threads) == 0 {
		return
	}
	budget := c.fetchWidth
	attempts := 0
	for budget > 0 && attempts < len(c.Threads) {
		t := c.Threads[c.fetchRR%len(c.Threads)]
		c.fetchRR++
		attempts++
		if t.fetchQueueFull() {
			continue
		}

		tok := c.blockedFetch[t.ID]
		if tok == nil {
			si, pc, ok := c.Source.Next(t.ID)
			if !ok {
				continue
			}
			tok = &fetchToken{threadID: t.ID, pc: pc, si: si}
		}

		if c.issueFetch(now, tok) {
			delete(c.blockedFetch, t.ID)
		}
		budget--
		attempts = 0
	}
}

// issueFetch drives tok's icache access and reports whether it was
// accepted (hit or miss, either of which leaves tok's eventual
// materialization to completeFetch); a blocked access leaves tok in
// blockedFetch for the next tickFetch to retry.
func (c *CPU) issueFetch(now int64, tok *fetchToken) bool {
	if c.L1I == nil {
		c.completeFetch(tok)
		return true
	}
	req := &memreq.Request{
		VAddr:         tok.pc,
		PAddr:         tok.pc,
		Cmd:           memreq.CmdRead,
		Size:          4,
		Flags:         memreq.FlagInstructionFetch,
		IssuingCPU:    c.ID,
		TrueRequester: c.ID,
		ThreadID:      tok.threadID,
		OriginTick:    now,
		Ctx:           tok,
		SeqNum:        memreq.NextSeqNum(),
	}
	switch c.L1I.Access(req) {
	case cache.AccessHit:
		// DeliverResponse already ran synchronously and materialized tok.
		return true
	case cache.AccessMiss:
		c.fetchPending[req.SeqNum] = tok
		return true
	default: // cache.AccessBlocked
		c.blockedFetch[tok.threadID] = tok
		return false
	}
}

// completeFetch turns a resolved fetch token into a DynInst and appends
// it to its thread's fetch queue; called either immediately (icache hit
// or no-L1I case) or from DeliverResponse once a miss fills.
func (c *CPU) completeFetch(tok *fetchToken) {
	t := c.thread(tok.threadID)
	if t == nil || t.fetchQueueFull() {
		return
	}
	inst := c.newDynInst(tok.threadID, tok.pc, tok.si)
	t.FetchQueue = append(t.FetchQueue, inst)
}

func (c *CPU) newDynInst(threadID int, pc uint64, si StaticInst) *pipeline.DynInst {
	seq := c.nextSeqNum()
	inst := &pipeline.DynInst{
		SeqNum:        seq,
		ThreadID:      threadID,
		PC:            pc,
		Srcs:          si.SrcRegs(),
		Dsts:          si.DstRegs(),
		IsLoad:        si.IsLoad(),
		IsStore:       si.IsStore(),
		IsBranch:      si.IsControl(),
		IsSerializing: si.IsSerializing() || si.IsMemBarrier(),
		Opclass:       si.Opclass(),
	}
	c.staticInsts[seq] = si

	t := c.thread(threadID)
	c.specAt[seq] = t.SpecDepth > 0

	predicted := pc + 4
	if si.IsControl() {
		result, target, _, rec := c.Pred.Lookup(threadID, pc, true, si.IsUncondCtrl(), si.IsReturn(), si.IsCall())
		switch result {
		case bpred.PredictTakenWithTarget:
			predicted = target
		case bpred.PredictNotTaken, bpred.PredictTakenNoTarget:
			// PredictTakenNoTarget degrades to predict-fallthrough: the
			// BTB has no target for this PC yet, so rather than stall
			// fetch until the branch resolves we guess not-taken and pay
			// a squash if that guess is wrong.
			predicted = pc + 4
		}
		inst.Ctx = rec
		t.SpecDepth++
	}
	c.predictedPC[seq] = predicted
	t.PC = predicted
	return inst
}

// tickDispatch renames and allocates up to dispatchWidth instructions per
// thread from its fetch queue into the shared ROB/IQ/LSQ structures, per
// spec.md section 4.3.
func (c *CPU) tickDispatch(now int64) {
	for _, t := range c.Threads {
		res := t.Dispatcher.Dispatch(t.FetchQueue)
		if len(res.Dispatched) == 0 {
			continue
		}
		t.FetchQueue = append([]*pipeline.DynInst(nil), t.FetchQueue[len(res.Dispatched):]...)
		for _, inst := range res.Dispatched {
			c.resolveOperands(inst)
			c.recordProducer(inst)
		}
	}
}

// resolveOperands decides, for each of inst's source operands, whether its
// physical register is still awaiting an in-flight producer (register a
// wakeup dependency) or already available (mark ready now). Rename itself
// leaves this to the caller since internal/pipeline keeps no global
// physical-register scoreboard.
func (c *CPU) resolveOperands(inst *pipeline.DynInst) {
	for i, src := range inst.Srcs {
		if !src.Valid() {
			continue
		}
		phys := inst.PhysSrcs[i]
		producers := c.producerInt
		if src.Type == pipeline.RegFP {
			producers = c.producerFP
		}
		producer, ok := producers[phys]
		if !ok || producer.Completed || producer.Squashed {
			inst.ResolveSource(i)
			continue
		}
		if dstIdx := physDstIndex(producer, phys); dstIdx >= 0 {
			pipeline.RegisterDependency(producer, dstIdx, inst)
		} else {
			inst.ResolveSource(i)
		}
	}
}

func physDstIndex(inst *pipeline.DynInst, phys int) int {
	for i, p := range inst.PhysDsts {
		if p == phys {
			return i
		}
	}
	return -1
}

func (c *CPU) recordProducer(inst *pipeline.DynInst) {
	for i, dst := range inst.Dsts {
		if i >= len(inst.PhysDsts) {
			continue
		}
		if dst.Type == pipeline.RegFP {
			c.producerFP[inst.PhysDsts[i]] = inst
		} else {
			c.producerInt[inst.PhysDsts[i]] = inst
		}
	}
}

func (c *CPU) clearProducer(inst *pipeline.DynInst) {
	for i, dst := range inst.Dsts {
		if i >= len(inst.PhysDsts) {
			continue
		}
		phys := inst.PhysDsts[i]
		if dst.Type == pipeline.RegFP {
			if c.producerFP[phys] == inst {
				delete(c.producerFP, phys)
			}
		} else {
			if c.producerInt[phys] == inst {
				delete(c.producerInt, phys)
			}
		}
	}
}

// tickIssue selects up to issueWidth ready instructions from the shared
// IQ, acquires a functional unit for each, and executes it immediately
// (the functional effect is visible to the physical register/memory state
// right away; other instructions only observe it once NotifyReady fires,
// matching a real machine's bypass-then-wakeup timing), per spec.md
// section 4.4/4.5.
func (c *CPU) tickIssue(now int64) {
	ready := c.IQ.Issue(c.issueWidth)
	for _, inst := range ready {
		si := c.staticInsts[inst.SeqNum]
		if si == nil {
			continue
		}
		opLatency, _, ok := c.FU.Acquire(si.Opclass())
		if !ok {
			// No free unit this cycle; the instruction is still ready,
			// so put it straight back rather than threading a peek-then-
			// commit protocol through the IQ interface.
			c.IQ.Push(inst)
			continue
		}
		c.thread(inst.ThreadID).Dispatcher.ReleaseThread(inst.ThreadID)

		if inst.Executed && (si.IsLoad() || si.IsStore()) {
			// Retrying a memory op whose cache access was blocked last
			// time: the functional effect already happened, so only
			// retry the cache access, never StaticInst.Execute again.
			if xc, ok := c.xcOf[inst.SeqNum]; ok {
				c.issueMemoryAccess(now, inst, si, xc)
			}
			continue
		}
		c.executeInst(now, inst, si, opLatency)
	}
}

func (c *CPU) executeInst(now int64, inst *pipeline.DynInst, si StaticInst, opLatency int) {
	xc := &execContext{
		cpu:    c,
		thread: c.thread(inst.ThreadID),
		inst:   inst,
		pc:     inst.PC,
		nextPC: inst.PC + 4,
		spec:   c.specAt[inst.SeqNum],
	}
	c.xcOf[inst.SeqNum] = xc

	flt := si.Execute(xc)
	inst.Executed = true

	if si.IsControl() {
		c.resolveBranch(now, inst, xc)
	}

	if flt != simfault.FaultNone && !xc.spec {
		inst.Fault = coarsenFault(flt)
	}

	if si.IsLoad() || si.IsStore() {
		c.issueMemoryAccess(now, inst, si, xc)
		return
	}

	c.scheduleCompletion(now+int64(opLatency), inst)
}

// resolveBranch compares the functionally resolved next PC against the
// one predicted at fetch time, squashing the thread's wrong-path
// instructions and rolling the predictor's speculative state back on a
// misprediction, per spec.md section 4.2's recover-then-squash protocol.
func (c *CPU) resolveBranch(now int64, inst *pipeline.DynInst, xc *execContext) {
	t := c.thread(inst.ThreadID)
	t.SpecDepth--
	if t.SpecDepth < 0 {
		t.SpecDepth = 0
	}

	predicted := c.predictedPC[inst.SeqNum]
	actual := xc.NextPC()
	rec, _ := inst.Ctx.(bpred.UpdateRecord)

	taken := actual != inst.PC+4
	c.Pred.Update(inst.ThreadID, inst.PC, taken, true, rec.IsConditional, rec)
	if taken {
		c.Pred.UpdateTarget(inst.PC, actual)
	}

	if predicted != actual {
		c.Pred.Recover(inst.ThreadID, rec)
		c.squashAfter(t, inst, actual)
	}
	delete(c.predictedPC, inst.SeqNum)
}

// squashAfter rolls back every instruction younger than inst (which
// survives), discards the thread's not-yet-dispatched fetch queue (all of
// it is wrong-path once inst's outcome is known), and redirects the
// thread's PC to correctPC.
func (c *CPU) squashAfter(t *Thread, inst *pipeline.DynInst, correctPC uint64) {
	squashed := pipeline.Squash(t.ROB, c.IQ, t.LSQ, c.IntRegs, c.FPRegs, t.Dispatcher, inst.ROBIndex)
	for _, s := range squashed {
		if xc, ok := c.xcOf[s.SeqNum]; ok {
			if err := xc.undo(); err != nil && c.Log.Enabled(logx.LevelError) {
				c.Log.Log(logx.Entry{Level: logx.LevelError, Component: "cpu", CPU: c.ID, Message: "squash undo failed", Err: err})
			}
		}
		c.clearProducer(s)
		delete(c.xcOf, s.SeqNum)
		delete(c.staticInsts, s.SeqNum)
		delete(c.predictedPC, s.SeqNum)
		delete(c.specAt, s.SeqNum)
	}
	t.FetchQueue = nil
	t.PC = correctPC
}

func (c *CPU) issueMemoryAccess(now int64, inst *pipeline.DynInst, si StaticInst, xc *execContext) {
	req := &memreq.Request{
		VAddr:         xc.memAddr,
		PAddr:         xc.memAddr,
		Size:          xc.memSize,
		IssuingCPU:    c.ID,
		TrueRequester: c.ID,
		ThreadID:      inst.ThreadID,
		OriginTick:    now,
		Ctx:           inst,
		SeqNum:        memreq.NextSeqNum(),
	}
	if si.IsLoad() {
		req.Cmd = memreq.CmdRead
	} else {
		req.Cmd = memreq.CmdWrite
	}
	if si.IsPrefetch() {
		req.Cmd = memreq.CmdSoftPrefetch
	}

	inst.MemReq = req
	inst.Fault = pipeline.FaultMemoryAccess

	outcome := c.L1D.Access(req)
	switch outcome {
	case cache.AccessHit:
		// DeliverResponse already ran synchronously inside Access and
		// scheduled this instruction's completion.
	case cache.AccessMiss:
		// Completion arrives later via DeliverResponse when the miss is
		// filled (internal/sim drives that round trip through the bus
		// and LLC); inst.Fault stays FaultMemoryAccess until then, which
		// is exactly the CommitDCacheMiss stall CommitManager checks.
	case cache.AccessBlocked:
		// No MSHR/target available this cycle. The functional effect
		// already happened (the value is in the memory log), so this
		// inst only needs its cache access retried, not re-executed;
		// tickIssue checks inst.Executed to skip straight to a retry.
		c.IQ.Push(inst)
	}
}

// scheduleCompletion arranges for inst's writeback (marking it Completed
// and waking its dependents) to happen at tick, the priority-ordering
// guarantee of spec.md section 2 requiring it run before that cycle's
// issue.
func (c *CPU) scheduleCompletion(tick int64, inst *pipeline.DynInst) {
	if tick <= c.Sched.Now() {
		tick = c.Sched.Now() + 1
	}
	c.Sched.Schedule(tick, event.PriorityWriteback, func(now int64) {
		c.completeInst(inst)
	})
}

func (c *CPU) completeInst(inst *pipeline.DynInst) {
	if inst.Squashed {
		return
	}
	// Clear only the d-cache-miss-pending sentinel; a genuine architected
	// fault coarsened at execute time must survive to commit.
	if inst.Fault == pipeline.FaultMemoryAccess {
		inst.Fault = pipeline.FaultNone
	}
	pipeline.Writeback(inst, c.IQ)
	c.clearProducer(inst)
}

// DeliverResponse implements cache.Responder for both L1I and L1D: a hit
// or a miss fill arrived for req. A fetchToken in Ctx means an icache
// line just became available, so the instruction it stands for finally
// enters its thread's fetch queue; a DynInst in Ctx means a load/store's
// data arrived, so schedule that instruction's writeback. Store-buffer
// drain requests carry neither and are architecturally done already, so
// there is nothing further to schedule for them.
func (c *CPU) DeliverResponse(req *memreq.Request) {
	switch ctx := req.Ctx.(type) {
	case *fetchToken:
		delete(c.fetchPending, req.SeqNum)
		c.completeFetch(ctx)
	case *pipeline.DynInst:
		c.scheduleCompletion(c.Sched.Now()+1, ctx)
	}
}

// ForwardMiss hands a miss this core's caches couldn't satisfy down to
// the shared memory hierarchy.
func (c *CPU) ForwardMiss(req *memreq.Request) {
	if c.Hier != nil {
		c.Hier.ForwardMiss(req)
	}
}

// ForwardWriteback hands an evicted dirty line down to the shared memory
// hierarchy.
func (c *CPU) ForwardWriteback(req *memreq.Request) {
	if c.Hier != nil {
		c.Hier.ForwardWriteback(req)
	}
}

// BlockingChanged is exposed for symmetry with cache.Responder; a CPU
// with a blocked L1 simply stops issuing new memory ops to it (Access
// itself reports AccessBlocked at the call site), so there is nothing
// further to do here.
func (c *CPU) BlockingChanged(conditions cache.BlockingCondition) {}

// tickCommit retires up to the configured commit width across every
// thread's ROB, drains resolved store-buffer entries into the L1D, and
// reports committed instructions to the interference manager, per spec.md
// section 4.5.
func (c *CPU) tickCommit(now int64) {
	results := c.Commit.CommitCycle()
	for tid, res := range results {
		t := c.thread(tid)
		for _, inst := range res.Committed {
			delete(c.xcOf, inst.SeqNum)
			delete(c.staticInsts, inst.SeqNum)
			delete(c.predictedPC, inst.SeqNum)
			delete(c.specAt, inst.SeqNum)
			t.committedInsts++
		}
		if len(res.Committed) > 0 && c.Interference != nil {
			c.Interference.AddCommittedInstructions(c.ID, int64(len(res.Committed)))
		}
		c.drainStoreBuffer(now, t)
	}
}

func (c *CPU) drainStoreBuffer(now int64, t *Thread) {
	entries := t.LSQ.DrainStoreBuffer(c.storeDrainPerCycle)
	for _, e := range entries {
		req := &memreq.Request{
			VAddr:         e.Addr,
			PAddr:         e.Addr,
			Cmd:           memreq.CmdWrite,
			Size:          e.Size,
			IssuingCPU:    c.ID,
			TrueRequester: c.ID,
			ThreadID:      e.Inst.ThreadID,
			OriginTick:    now,
			SeqNum:        memreq.NextSeqNum(),
		}
		c.L1D.Access(req)
	}
}

// coarsenFault reduces the full architected fault enumeration a
// StaticInst.Execute returns down to the narrow pipeline-control tag
// DynInst.Fault carries: this package's pipeline backend only needs to
// distinguish "stalled on a d-cache miss" from "retiring instruction
// raised some other architected fault", not which one.
func coarsenFault(f simfault.Fault) pipeline.Fault {
	switch f {
	case simfault.FaultNone:
		return pipeline.FaultNone
	case simfault.FaultAlignment:
		return pipeline.FaultAlignment
	case simfault.FaultDTBPageFault, simfault.FaultITBPageFault:
		return pipeline.FaultPageFault
	case simfault.FaultArithmetic, simfault.FaultIntegerOverflow:
		return pipeline.FaultDivideByZero
	default:
		return pipeline.FaultIllegalInstruction
	}
}
