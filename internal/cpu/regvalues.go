package cpu

import "github.com/magnusjahre/MM5-sub002/internal/specstate"

// physValueFile is the actual value storage backing a physical register
// file, indexed by physical register number. pipeline.PhysRegFile only
// tracks the rename mapping and free list (spec.md section 4.3); the
// values themselves live here, one instance shared by every thread on a
// CPU since the physical register pool itself is shared.
//
// Reused as specstate.RegisterOverlay rather than a plain slice: a
// physical register that has never been written (impossible to read
// before its producer commits, by dataflow construction) still reads
// back a defined zero through the overlay's architectural-fallback path,
// and the presence bit gives execute() a free "was this ever produced"
// assertion point.
type physValueFile struct {
	overlay *specstate.RegisterOverlay
}

func newPhysValueFile(numPhys int) *physValueFile {
	return &physValueFile{overlay: specstate.NewRegisterOverlay(numPhys)}
}

func (f *physValueFile) Read(phys int) uint64 {
	return f.overlay.Read(phys, 0)
}

func (f *physValueFile) Write(phys int, val uint64) {
	f.overlay.Write(phys, val)
}
