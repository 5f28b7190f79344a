package pipeline

// Dispatcher implements the rename + allocate stage of spec.md section
// 4.3: walks a thread's decoded instructions in program order, renames
// register operands through the physical register pool, and allocates ROB
// (and, for memory ops, LSQ) entries, stopping at the first cause in
// spec.md section 4.3's closed end-cause list.
type Dispatcher struct {
	IntRegs *PhysRegFile
	FPRegs  *PhysRegFile
	ROB     *ROB
	IQ      IQ
	LSQ     *LSQ

	Width           int
	PerThreadIQCap  int
	PerThreadROBCap int

	// threadIQCount tracks how many of IQ's occupants belong to each
	// thread, enforcing PerThreadIQCap even though the physical IQ is
	// shared, per spec.md section 4.3.
	threadIQCount map[int]int
	// threadROBCount does the same for PerThreadROBCap.
	threadROBCount map[int]int
}

// NewDispatcher wires a dispatcher over the given per-CPU structures.
func NewDispatcher(intRegs, fpRegs *PhysRegFile, rob *ROB, iq IQ, lsq *LSQ, width, perThreadIQCap, perThreadROBCap int) *Dispatcher {
	return &Dispatcher{
		IntRegs:         intRegs,
		FPRegs:          fpRegs,
		ROB:             rob,
		IQ:              iq,
		LSQ:             lsq,
		Width:           width,
		PerThreadIQCap:  perThreadIQCap,
		PerThreadROBCap: perThreadROBCap,
		threadIQCount:   make(map[int]int),
		threadROBCount:  make(map[int]int),
	}
}

// Result is what one Dispatch call produced: how many instructions were
// allocated and why it stopped.
type Result struct {
	Dispatched []*DynInst
	Cause      DispatchEndCause
}

// Dispatch consumes from the front of pending (in program order), up to
// Width instructions, stopping at the first blocking condition. It never
// mutates pending itself; callers drop the returned count from their
// fetch buffer.
func (d *Dispatcher) Dispatch(pending []*DynInst) Result {
	var out Result
	if len(pending) == 0 {
		out.Cause = DispatchNoInst
		return out
	}

	for _, inst := range pending {
		if len(out.Dispatched) >= d.Width {
			out.Cause = DispatchBandwidth
			break
		}
		if inst.IsSerializing && len(out.Dispatched) > 0 {
			// A serializing instruction may only dispatch alone, as the
			// first of a cycle's batch.
			out.Cause = DispatchSerializing
			break
		}
		if d.ROB.Full() {
			out.Cause = DispatchROBFull
			break
		}
		if d.IQ.Full() {
			out.Cause = DispatchIQFull
			break
		}
		if d.PerThreadIQCap > 0 && d.threadIQCount[inst.ThreadID] >= d.PerThreadIQCap {
			out.Cause = DispatchIQCap
			break
		}
		if d.PerThreadROBCap > 0 && d.threadROBCount[inst.ThreadID] >= d.PerThreadROBCap {
			out.Cause = DispatchROBCap
			break
		}
		if (inst.IsLoad || inst.IsStore) && d.LSQ.Full() {
			out.Cause = DispatchLSQFull
			break
		}

		if !d.canRename(inst) {
			if !d.hasFreePhysInt(inst) {
				out.Cause = DispatchOutOfPhysicalInt
			} else {
				out.Cause = DispatchOutOfPhysicalFP
			}
			break
		}

		d.rename(inst)
		if !d.IQ.Push(inst) {
			// The IQ had room (Full() above said so) but this instruction's
			// estimated use-line sits past the pre-scheduled ring's active
			// cursor: insertion fails per spec.md section 4.4. Nothing else
			// has been allocated yet this iteration except the rename, so
			// undo it and stop the way an IQ-full condition would.
			d.undoRename(inst)
			out.Cause = DispatchIQFull
			break
		}
		robIndex, _ := d.ROB.Push(inst)
		inst.ROBIndex = robIndex
		if inst.IsLoad || inst.IsStore {
			lsqIndex, _ := d.LSQ.Push(&LSQEntry{Inst: inst, IsStore: inst.IsStore})
			inst.LSQIndex = lsqIndex
		}
		d.threadIQCount[inst.ThreadID]++
		d.threadROBCount[inst.ThreadID]++

		out.Dispatched = append(out.Dispatched, inst)

		if inst.IsSerializing {
			// Alone this cycle; don't consider the rest of pending.
			break
		}
	}

	if out.Cause == DispatchNone && len(out.Dispatched) == 0 {
		out.Cause = DispatchNoInst
	}
	return out
}

// canRename reports whether every destination operand of inst has a free
// physical register in its respective file.
func (d *Dispatcher) canRename(inst *DynInst) bool {
	needInt, needFP := 0, 0
	for _, dst := range inst.Dsts {
		if dst.Type == RegFP {
			needFP++
		} else {
			needInt++
		}
	}
	return d.IntRegs.NumFree() >= needInt && d.FPRegs.NumFree() >= needFP
}

func (d *Dispatcher) hasFreePhysInt(inst *DynInst) bool {
	for _, dst := range inst.Dsts {
		if dst.Type == RegInt && !d.IntRegs.HasFree() {
			return false
		}
	}
	return true
}

// rename allocates physical destinations and resolves source operands
// against the current speculative mapping, per spec.md section 4.3's
// create-vector rename scheme.
func (d *Dispatcher) rename(inst *DynInst) {
	inst.PhysSrcs = make([]int, len(inst.Srcs))
	for i, src := range inst.Srcs {
		if !src.Valid() {
			inst.PhysSrcs[i] = -1
			continue
		}
		file := d.fileFor(src.Type)
		inst.PhysSrcs[i] = file.CurrentMapping(src.Arch)
	}

	inst.PhysDsts = make([]int, len(inst.Dsts))
	inst.PrevPhysDsts = make([]int, len(inst.Dsts))
	for i, dst := range inst.Dsts {
		file := d.fileFor(dst.Type)
		newPhys, prevPhys, _ := file.Rename(dst.Arch)
		inst.PhysDsts[i] = newPhys
		inst.PrevPhysDsts[i] = prevPhys
	}

	inst.SrcReady = make([]bool, len(inst.Srcs))
	for i := range inst.SrcReady {
		// A source is immediately ready if it isn't awaiting an in-flight
		// producer; callers without a scoreboard set this before Dispatch
		// returns by scanning the producing DynInst, which this package
		// leaves to the caller (it has no global name->producer map).
		inst.SrcReady[i] = !inst.Srcs[i].Valid()
	}
}

// undoRename reverses a rename that was never followed by a successful IQ
// allocation, returning every physical destination this call minted back to
// its file and restoring the prior speculative mapping. Safe to call right
// after rename since no later instruction has had a chance to read these
// destinations' mappings yet.
func (d *Dispatcher) undoRename(inst *DynInst) {
	for i, dst := range inst.Dsts {
		d.fileFor(dst.Type).Squash(dst.Arch, inst.PhysDsts[i], inst.PrevPhysDsts[i])
	}
}

func (d *Dispatcher) fileFor(t RegType) *PhysRegFile {
	if t == RegFP {
		return d.FPRegs
	}
	return d.IntRegs
}

// ReleaseThread decrements the per-thread IQ occupancy counter, called
// whenever an instruction leaves the IQ (issued or squashed).
func (d *Dispatcher) ReleaseThread(threadID int) {
	if d.threadIQCount[threadID] > 0 {
		d.threadIQCount[threadID]--
	}
}

// ReleaseROB decrements the per-thread ROB occupancy counter, called
// whenever an instruction retires from the ROB (committed or squashed).
func (d *Dispatcher) ReleaseROB(threadID int) {
	if d.threadROBCount[threadID] > 0 {
		d.threadROBCount[threadID]--
	}
}
