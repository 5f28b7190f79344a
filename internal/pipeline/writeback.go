package pipeline

// Writeback applies inst's completed execution: marks it Completed, and
// walks its recorded Dependents (per destination operand) marking the
// matching source ready and notifying iq so a newly-ready consumer can be
// selected next Issue, per spec.md section 4.5's writeback/wakeup step.
func Writeback(inst *DynInst, iq IQ) {
	inst.Completed = true
	for dstIdx, consumers := range inst.Dependents {
		if dstIdx >= len(inst.PhysDsts) {
			continue
		}
		phys := inst.PhysDsts[dstIdx]
		for _, consumer := range consumers {
			for i, srcPhys := range consumer.PhysSrcs {
				if srcPhys == phys {
					consumer.ResolveSource(i)
				}
			}
			if consumer.AllSourcesReady() {
				iq.NotifyReady(consumer)
			}
		}
	}
}

// RegisterDependency records that consumer is waiting on producer's dstIdx
// destination, so a later Writeback(producer, ...) wakes consumer up. The
// rename stage calls this whenever a source operand's physical register
// matches an in-flight producer's (not-yet-committed) destination.
func RegisterDependency(producer *DynInst, dstIdx int, consumer *DynInst) {
	for len(producer.Dependents) <= dstIdx {
		producer.Dependents = append(producer.Dependents, nil)
	}
	producer.Dependents[dstIdx] = append(producer.Dependents[dstIdx], consumer)
}
