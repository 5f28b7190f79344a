// Package workload provides synthetic cpu.InstructionSource/cpu.StaticInst
// implementations for exercising the simulator core without a real
// decoder or binary loader, both explicitly out of scope per spec.md
// section 1. Grounded on internal/cpu's own test fakes
// (internal/cpu/cpu_test.go's fakeInst/fakeSource), generalized into a
// small reusable package so cmd/mm5sim has something to run by default.
package workload

import (
	"github.com/magnusjahre/MM5-sub002/internal/cpu"
	"github.com/magnusjahre/MM5-sub002/internal/pipeline"
	"github.com/magnusjahre/MM5-sub002/internal/simfault"
)

// nopInst is a single-cycle instruction with no register or memory
// effects, the workload named in spec.md section 8's property 1 ("no-op
// IPC") and scenario E1.
type nopInst struct{}

func (nopInst) Opclass() string                        { return "nop" }
func (nopInst) SrcRegs() []pipeline.RegRef              { return nil }
func (nopInst) DstRegs() []pipeline.RegRef              { return nil }
func (nopInst) BranchTarget(uint64) (uint64, bool)      { return 0, false }
func (nopInst) IsLoad() bool                            { return false }
func (nopInst) IsStore() bool                           { return false }
func (nopInst) IsControl() bool                         { return false }
func (nopInst) IsCondCtrl() bool                        { return false }
func (nopInst) IsUncondCtrl() bool                      { return false }
func (nopInst) IsCall() bool                            { return false }
func (nopInst) IsReturn() bool                          { return false }
func (nopInst) IsSerializing() bool                     { return false }
func (nopInst) IsMemBarrier() bool                      { return false }
func (nopInst) IsNonSpeculative() bool                  { return false }
func (nopInst) IsPrefetch() bool                        { return false }
func (nopInst) IsCopy() bool                            { return false }
func (nopInst) MemSize() int                            { return 0 }
func (nopInst) Execute(cpu.ExecutionContext) simfault.Fault {
	return simfault.FaultNone
}

// FiniteNopSource hands every thread count consecutive NOPs starting at
// PC 0, then reports exhaustion, matching scenario E1's "1024 independent
// NOPs" workload.
type FiniteNopSource struct {
	count     uint64
	remaining map[int]uint64
	pc        map[int]uint64
}

// NewFiniteNopSource builds a source that yields count NOPs per thread.
func NewFiniteNopSource(count uint64) *FiniteNopSource {
	return &FiniteNopSource{
		count:     count,
		remaining: make(map[int]uint64),
		pc:        make(map[int]uint64),
	}
}

func (s *FiniteNopSource) Next(thread int) (cpu.StaticInst, uint64, bool) {
	rem, ok := s.remaining[thread]
	if !ok {
		rem = s.count
	}
	if rem == 0 {
		return nil, 0, false
	}
	pc := s.pc[thread]
	s.pc[thread] = pc + 4
	s.remaining[thread] = rem - 1
	return nopInst{}, pc, true
}
