// Package cpu implements one core's fetch -> dispatch -> issue -> execute
// -> writeback -> commit cycle described in spec.md section 2, driving
// the internal/pipeline backend, internal/bpred predictor, and
// internal/specstate speculative overlay through internal/event at the
// fixed per-cycle priority order (commit, writeback, issue, dispatch,
// fetch). Grounded on
// _examples/original_source/m5/encumbered/cpu/full/cpu.hh's FullCPU, here
// split across per-stage methods instead of one monolithic tick() body.
//
// Instruction decoding and ISA semantics are an external collaborator's
// concern (spec.md section 1's Non-goals): this package only defines the
// StaticInst/ExecutionContext contracts a decoder and instruction source
// must satisfy, per spec.md section 6.
package cpu

import (
	"github.com/magnusjahre/MM5-sub002/internal/pipeline"
	"github.com/magnusjahre/MM5-sub002/internal/simfault"
)

// StaticInst is the decoded, not-yet-renamed instruction object an
// external decoder supplies, per spec.md section 6's "Instruction
// decode" contract.
type StaticInst interface {
	Opclass() string
	SrcRegs() []pipeline.RegRef
	DstRegs() []pipeline.RegRef

	// BranchTarget computes the architected target of a control
	// instruction given the PC it executes at; ok is false for an
	// instruction whose target cannot be known without executing it
	// (e.g. an indirect jump through a register).
	BranchTarget(pc uint64) (target uint64, ok bool)

	IsLoad() bool
	IsStore() bool
	IsControl() bool
	IsCondCtrl() bool
	IsUncondCtrl() bool
	IsCall() bool
	IsReturn() bool
	IsSerializing() bool
	IsMemBarrier() bool
	IsNonSpeculative() bool
	IsPrefetch() bool
	IsCopy() bool

	// MemSize is the access size in bytes for a load/store/prefetch
	// instruction; meaningless otherwise.
	MemSize() int

	// Execute performs this instruction's functional semantics against
	// xc, returning a fault from the fixed enumeration of spec.md section
	// 6. Timing (latency, FU occupancy) is the caller's concern, not
	// this method's.
	Execute(xc ExecutionContext) simfault.Fault
}

// ExecutionContext is the core's read/write surface into one thread's
// architectural state, per spec.md section 6's "Execution context"
// contract: it must distinguish speculative from non-speculative
// accesses, since a speculative write must land in the copy-on-write
// overlay (spec.md section 4.3) rather than the committed file.
type ExecutionContext interface {
	PC() uint64
	NextPC() uint64
	SetNextPC(pc uint64)

	ReadIntReg(arch int) uint64
	WriteIntReg(arch int, val uint64)
	ReadFPReg(arch int) uint64
	WriteFPReg(arch int, val uint64)

	// Translate resolves a virtual address to a physical one; this core
	// has no MMU model of its own (out of scope per spec.md section 1),
	// so the identity translation is the only implementation provided.
	Translate(vaddr uint64, write bool) (paddr uint64, fault simfault.Fault)

	ReadMem(paddr uint64, size int) ([]byte, simfault.Fault)
	WriteMem(paddr uint64, size int, data []byte) simfault.Fault

	// Speculative reports whether this execution is under spec_mode,
	// i.e. behind an in-flight branch whose outcome is not yet resolved.
	// The core sets this up before calling StaticInst.Execute; the
	// instruction itself only ever reads it.
	Speculative() bool
}

// InstructionSource supplies one thread's next decoded instruction and
// the PC it sits at. It is the external "loader + decoder" collaborator
// named in spec.md section 1; the core only ever calls Next.
type InstructionSource interface {
	// Next returns the instruction at thread's current PC, or ok=false
	// if the thread has no more instructions to fetch (e.g. it has
	// exited), per spec.md section 4.2's fetch stage contract.
	Next(thread int) (inst StaticInst, pc uint64, ok bool)
}
