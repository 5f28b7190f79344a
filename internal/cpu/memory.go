package cpu

import "github.com/magnusjahre/MM5-sub002/internal/simfault"

// FunctionalMemory is the flat, block-addressed byte store backing one
// core's committed memory state. A binary loader and address-space setup
// are external collaborators per spec.md section 1; this is the minimal
// backing store a specstate.MemoryLog needs as its non-speculative
// "child" layer, and what commit drains write-log blocks into.
type FunctionalMemory struct {
	blockSize uint64
	blocks    map[uint64][]byte
}

// NewFunctionalMemory allocates an empty store with the given block size
// (must match the MemoryLog built on top of it).
func NewFunctionalMemory(blockSize uint64) *FunctionalMemory {
	return &FunctionalMemory{blockSize: blockSize, blocks: make(map[uint64][]byte)}
}

func (m *FunctionalMemory) blockAddrOf(addr uint64) uint64 {
	return addr &^ (m.blockSize - 1)
}

// ReadBlock implements specstate.ChildMemory.
func (m *FunctionalMemory) ReadBlock(blockAddr uint64, size int) ([]byte, error) {
	if b, ok := m.blocks[blockAddr]; ok {
		out := make([]byte, size)
		copy(out, b)
		return out, nil
	}
	return make([]byte, size), nil
}

// WriteBlock installs the full block's bytes at blockAddr. Its only
// caller is Write; the commit path does not drain a MemoryLog through it.
func (m *FunctionalMemory) WriteBlock(blockAddr uint64, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blocks[blockAddr] = cp
}

// Read returns size bytes at addr without going through any speculative
// log, for a non-speculative (already-committed) access.
func (m *FunctionalMemory) Read(addr uint64, size int) ([]byte, simfault.Fault) {
	blockAddr := m.blockAddrOf(addr)
	offset := addr - blockAddr
	if offset+uint64(size) > m.blockSize {
		return nil, simfault.FaultAlignment
	}
	block, _ := m.ReadBlock(blockAddr, int(m.blockSize))
	return block[offset : offset+uint64(size)], simfault.FaultNone
}

// Write performs a read-modify-write of data into addr's block,
// committing it directly (no speculative log entry).
func (m *FunctionalMemory) Write(addr uint64, data []byte) simfault.Fault {
	blockAddr := m.blockAddrOf(addr)
	offset := addr - blockAddr
	if offset+uint64(len(data)) > m.blockSize {
		return simfault.FaultAlignment
	}
	block, _ := m.ReadBlock(blockAddr, int(m.blockSize))
	copy(block[offset:], data)
	m.WriteBlock(blockAddr, block)
	return simfault.FaultNone
}
