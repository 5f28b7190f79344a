// Package pipeline implements dispatch/rename, the instruction queue and
// LSQ, the functional-unit pool, and writeback/commit described in
// spec.md sections 4.3-4.5. Grounded on
// _examples/original_source/m5/encumbered/cpu/full/iq, rob.cc, and
// storebuffer.cc for the structural shape of each component, and on the
// teacher's `catrate` package for the power-of-two ring-buffer idiom used
// by the FU pool's scheduled-release structure.
package pipeline

import "github.com/magnusjahre/MM5-sub002/internal/memreq"

// Fault is the closed fault enumeration named in spec.md section 6.
type Fault int

const (
	FaultNone Fault = iota
	FaultPageFault
	FaultIllegalInstruction
	FaultAlignment
	FaultDivideByZero
	FaultMemoryAccess
)

// DispatchEndCause is why dispatch stopped allocating instructions this
// cycle, per spec.md section 4.3.
type DispatchEndCause int

const (
	DispatchNone DispatchEndCause = iota
	DispatchOutOfPhysicalInt
	DispatchOutOfPhysicalFP
	DispatchNoInst
	DispatchROBCap
	DispatchIQCap
	DispatchBandwidth
	DispatchPolicy
	DispatchSerializing
	DispatchIQFull
	DispatchLSQFull
	DispatchROBFull
)

// CommitEndCause is why commit stopped for a thread this cycle, per
// spec.md section 4.5.
type CommitEndCause int

const (
	CommitNone CommitEndCause = iota
	CommitROBEmpty
	CommitBandwidth
	CommitStoreBufferFull
	CommitMemBarrier
	CommitFU
	CommitDCacheMiss
)

// RegType distinguishes the integer and floating-point physical register
// files, per spec.md section 4.3's "out-of-physical-int/fp" causes.
type RegType int

const (
	RegInt RegType = iota
	RegFP
)

// RegRef names one architectural register operand, pre-rename.
type RegRef struct {
	Type RegType
	Arch int // -1 means "no such operand"
}

func (r RegRef) Valid() bool { return r.Arch >= 0 }

// DynInst is one in-flight dynamic instruction, carried through dispatch,
// the IQ, the FU pool, writeback, and commit. Grounded on
// encumbered/cpu/full/dyn_inst.hh's DynInst, trimmed to the fields this
// simulator's timing model actually needs (no ISA decode - out of scope
// per spec.md's Non-goals).
type DynInst struct {
	SeqNum   uint64
	ThreadID int
	PC       uint64

	Srcs []RegRef
	Dsts []RegRef

	// PhysSrcs/PhysDsts are filled in by rename; PhysSrcs[i] is the
	// physical register backing Srcs[i] at the time of rename (the
	// producer's physical destination, or the architectural mapping if
	// already committed).
	PhysSrcs []int
	PhysDsts []int
	// PrevPhysDsts[i] is the physical register Dsts[i] used to map to,
	// freed on commit (per rename's standard free-list-return protocol).
	PrevPhysDsts []int

	SrcReady []bool

	IsLoad       bool
	IsStore      bool
	IsBranch     bool
	IsSerializing bool
	Opclass      string

	MemReq *memreq.Request

	// Dependents are the instructions waiting on each of this inst's
	// destinations, indexed the same as Dsts; writeback walks these to
	// mark consumer operand bits ready.
	Dependents [][]*DynInst

	FUIssueLatency int
	FUOpLatency    int

	Executed  bool
	Completed bool
	Squashed  bool
	Fault     Fault

	// ROBIndex is this instruction's slot in the ROB's circular buffer,
	// used by misprediction recovery to walk forward from an offending
	// branch.
	ROBIndex int
	// LSQIndex is this instruction's slot in the LSQ's circular buffer,
	// valid only when IsLoad or IsStore.
	LSQIndex int

	// Predicted branch outcome bookkeeping, opaque to this package; the
	// fetch stage stashes its bpred.UpdateRecord here via Ctx.
	Ctx any
}

// ResolveSource marks src ready (producer wrote back), used by
// writeback's consumer walk.
func (d *DynInst) ResolveSource(i int) {
	if i >= 0 && i < len(d.SrcReady) {
		d.SrcReady[i] = true
	}
}

// AllSourcesReady reports whether every source operand has its value.
func (d *DynInst) AllSourcesReady() bool {
	for _, ready := range d.SrcReady {
		if !ready {
			return false
		}
	}
	return true
}
