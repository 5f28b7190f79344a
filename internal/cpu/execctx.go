package cpu

import (
	"github.com/magnusjahre/MM5-sub002/internal/pipeline"
	"github.com/magnusjahre/MM5-sub002/internal/simfault"
	"github.com/magnusjahre/MM5-sub002/internal/specstate"
)

// execContext is the concrete ExecutionContext an in-flight DynInst
// executes against: register reads/writes translate architectural
// indices through the inst's rename results into the CPU's shared
// physical value files, and memory reads/writes always go through the
// thread's speculative write-log (spec.md section 4.3). A squashed inst's
// writes are popped from the log; nothing drains the log to the
// functional memory at commit, so committed stores stay in the log.
type execContext struct {
	cpu    *CPU
	thread *Thread
	inst   *pipeline.DynInst

	pc     uint64
	nextPC uint64
	spec   bool
	tokens []specstate.Token

	// memAddr/memSize record the last ReadMem/WriteMem call's physical
	// address and size, so the caller can build the timing-model memory
	// request after Execute returns without StaticInst needing to expose
	// its effective address separately.
	memAddr uint64
	memSize int
}

func (x *execContext) PC() uint64     { return x.pc }
func (x *execContext) NextPC() uint64 { return x.nextPC }
func (x *execContext) SetNextPC(pc uint64) { x.nextPC = pc }
func (x *execContext) Speculative() bool   { return x.spec }

func (x *execContext) physOf(regs []pipeline.RegRef, phys []int, arch int, want pipeline.RegType) (int, bool) {
	for i, r := range regs {
		if r.Type == want && r.Arch == arch {
			return phys[i], true
		}
	}
	return 0, false
}

func (x *execContext) ReadIntReg(arch int) uint64 {
	if phys, ok := x.physOf(x.inst.Srcs, x.inst.PhysSrcs, arch, pipeline.RegInt); ok {
		return x.cpu.intVals.Read(phys)
	}
	return 0
}

func (x *execContext) WriteIntReg(arch int, val uint64) {
	if phys, ok := x.physOf(x.inst.Dsts, x.inst.PhysDsts, arch, pipeline.RegInt); ok {
		x.cpu.intVals.Write(phys, val)
	}
}

func (x *execContext) ReadFPReg(arch int) uint64 {
	if phys, ok := x.physOf(x.inst.Srcs, x.inst.PhysSrcs, arch, pipeline.RegFP); ok {
		return x.cpu.fpVals.Read(phys)
	}
	return 0
}

func (x *execContext) WriteFPReg(arch int, val uint64) {
	if phys, ok := x.physOf(x.inst.Dsts, x.inst.PhysDsts, arch, pipeline.RegFP); ok {
		x.cpu.fpVals.Write(phys, val)
	}
}

// Translate is the identity mapping: a full MMU model is out of scope
// (spec.md section 1's Non-goals list ISA/OS semantics as an external
// collaborator's concern), so physical and virtual addresses coincide.
func (x *execContext) Translate(vaddr uint64, write bool) (uint64, simfault.Fault) {
	return vaddr, simfault.FaultNone
}

func (x *execContext) ReadMem(paddr uint64, size int) ([]byte, simfault.Fault) {
	x.memAddr, x.memSize = paddr, size
	data, err := x.thread.memLog.Read(paddr, size)
	if err != nil {
		return nil, simfault.FaultAlignment
	}
	return data, simfault.FaultNone
}

func (x *execContext) WriteMem(paddr uint64, size int, data []byte) simfault.Fault {
	x.memAddr, x.memSize = paddr, size
	tok, err := x.thread.memLog.Write(paddr, data)
	if err != nil {
		return simfault.FaultAlignment
	}
	x.tokens = append(x.tokens, tok)
	return simfault.FaultNone
}

// undo pops every write-log entry this execution pushed, in strict LIFO
// order, per spec.md section 4.3's per-instruction squash destructor.
func (x *execContext) undo() error {
	for i := len(x.tokens) - 1; i >= 0; i-- {
		if err := x.thread.memLog.Pop(x.tokens[i]); err != nil {
			return err
		}
	}
	x.tokens = nil
	return nil
}
