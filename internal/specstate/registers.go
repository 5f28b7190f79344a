// Package specstate implements the per-thread copy-on-write register
// overlay and speculative memory write-log described in spec.md section
// 4.3. Grounded on
// _examples/original_source/m5/encumbered/cpu/full/{spec_state.hh,spec_memory.hh}:
// SpecExecContext's use_spec_R/specIntRegFile bitset-plus-shadow-file pair
// becomes RegisterOverlay, and SpeculativeMemory's per-block deque<Block>
// stack becomes MemoryLog.
package specstate

// RegisterOverlay is one thread's speculative register file: a presence
// bitmap over a fixed register count, plus the shadow values it guards.
// Reads consult the overlay when the bit is set and the architectural file
// otherwise; writes under spec_mode always go through the overlay.
type RegisterOverlay struct {
	present []bool
	shadow  []uint64
}

// NewRegisterOverlay allocates an overlay for numRegs architectural
// registers.
func NewRegisterOverlay(numRegs int) *RegisterOverlay {
	return &RegisterOverlay{
		present: make([]bool, numRegs),
		shadow:  make([]uint64, numRegs),
	}
}

// Read returns the overlay value for reg if present, otherwise arch, the
// architectural file's current value.
func (o *RegisterOverlay) Read(reg int, arch uint64) uint64 {
	if o.present[reg] {
		return o.shadow[reg]
	}
	return arch
}

// Write sets reg's overlay value and marks it present, per spec.md section
// 4.3's "writes under spec_mode set the bit and write the overlay".
func (o *RegisterOverlay) Write(reg int, val uint64) {
	o.present[reg] = true
	o.shadow[reg] = val
}

// Present reports whether reg currently has a speculative shadow value.
func (o *RegisterOverlay) Present(reg int) bool { return o.present[reg] }

// Drain returns every (reg, value) pair currently shadowed, for the commit
// path to apply to the architectural file, and clears the overlay.
func (o *RegisterOverlay) Drain() []RegisterWrite {
	var writes []RegisterWrite
	for reg, present := range o.present {
		if present {
			writes = append(writes, RegisterWrite{Reg: reg, Value: o.shadow[reg]})
		}
	}
	o.Clear()
	return writes
}

// Clear resets the presence bitmap, discarding all shadow values without
// draining them (used on a full-context squash).
func (o *RegisterOverlay) Clear() {
	for i := range o.present {
		o.present[i] = false
	}
}

// RegisterWrite is one (register index, value) pair produced by Drain.
type RegisterWrite struct {
	Reg   int
	Value uint64
}
