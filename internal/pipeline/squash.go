package pipeline

// Squash rolls back every instruction younger than (and not including) the
// one at robIndex: ROB entries are popped tail-first, their IQ/LSQ
// occupancy is released, and their rename allocations unwind through
// PhysRegFile.Squash in strict youngest-first order, per spec.md section
// 4.3's squash protocol (misprediction recovery and exceptions share this
// path).
func Squash(rob *ROB, iq IQ, lsq *LSQ, intRegs, fpRegs *PhysRegFile, disp *Dispatcher, robIndex int) []*DynInst {
	squashed := rob.SquashAfter(robIndex)

	lsqBoundary := -1
	haveLSQBoundary := false

	for _, inst := range squashed {
		inst.Squashed = true
		iq.Remove(inst)
		if disp != nil {
			disp.ReleaseThread(inst.ThreadID)
			disp.ReleaseROB(inst.ThreadID)
		}
		if inst.IsLoad || inst.IsStore {
			lsqBoundary = inst.LSQIndex
			haveLSQBoundary = true
		}
		for i, dst := range inst.Dsts {
			if i >= len(inst.PhysDsts) || i >= len(inst.PrevPhysDsts) {
				continue
			}
			file := intRegs
			if dst.Type == RegFP {
				file = fpRegs
			}
			file.Squash(dst.Arch, inst.PhysDsts[i], inst.PrevPhysDsts[i])
		}
	}
	if lsq != nil && haveLSQBoundary {
		lsq.SquashFromIndex(lsqBoundary)
	}
	return squashed
}
