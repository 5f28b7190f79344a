package cache

import "github.com/magnusjahre/MM5-sub002/internal/memreq"

// Coherence is the pluggable coherence protocol named in spec.md section
// 4.6 ({none, snooping, directory}), grounded on cache_impl.hh's
// Coherence template parameter (concretely MSICoherence/UniCoherence in
// the original).
type Coherence interface {
	// NewState computes a filled block's coherence state for cmd arriving
	// on a previously-Invalid or stale block.
	NewState(cmd memreq.Command, old State) State
	// NeedsWriteback reports whether evicting a block in state must first
	// write its data back.
	NeedsWriteback(s State) bool
	// AllowFastWrites reports whether a block-size write may allocate
	// directly without fetching the old contents first.
	AllowFastWrites() bool
}

// NoCoherence models an uncoherent (single-owner) cache: fills always land
// Valid+Writable, and only a Dirty block needs writing back. Grounded on
// UniCoherence in the original's mem/cache/coherence.
type NoCoherence struct{}

func (NoCoherence) NewState(cmd memreq.Command, old State) State {
	s := StateValid | StateWritable
	if cmd == memreq.CmdWrite {
		s |= StateDirty
	}
	return s
}

func (NoCoherence) NeedsWriteback(s State) bool { return s.Has(StateDirty) }
func (NoCoherence) AllowFastWrites() bool       { return true }

// SnoopingMSI is a bus-snooping MSI protocol: reads fill Shared, writes
// fill Modified (and Invalidate must be snooped by peers), grounded on
// cache_impl.hh's MSICoherence addState/getNewState pairing.
type SnoopingMSI struct{}

func (SnoopingMSI) NewState(cmd memreq.Command, old State) State {
	switch cmd {
	case memreq.CmdWrite, memreq.CmdUpgrade:
		return StateValid | StateWritable | StateDirty
	default:
		return StateValid | StateShared
	}
}

func (SnoopingMSI) NeedsWriteback(s State) bool { return s.Has(StateDirty) }
func (SnoopingMSI) AllowFastWrites() bool        { return false }

// SnoopResult is what a peer cache's snoop of a remote request yields.
type SnoopResult struct {
	// SuppliesData reports the snooping cache must source the data
	// (it held the only Modified copy).
	SuppliesData bool
	// Downgrade reports the snooped block must transition to Shared.
	Downgrade bool
	// Invalidate reports the snooped block must be dropped entirely.
	Invalidate bool
}

// Snoop evaluates what blk (held by some other cache) must do in response
// to a bus request with cmd, per SnoopingMSI's observation rules.
func (SnoopingMSI) Snoop(cmd memreq.Command, blk *Block) SnoopResult {
	if blk == nil || !blk.Valid {
		return SnoopResult{}
	}
	switch cmd {
	case memreq.CmdRead:
		if blk.State.Has(StateDirty) {
			return SnoopResult{SuppliesData: true, Downgrade: true}
		}
		return SnoopResult{}
	case memreq.CmdWrite, memreq.CmdUpgrade, memreq.CmdInvalidate:
		return SnoopResult{Invalidate: true, SuppliesData: blk.State.Has(StateDirty)}
	default:
		return SnoopResult{}
	}
}

// DirectoryCoherence tracks sharers in Block.Sharers rather than relying
// on a bus snoop, grounded on SPEC_FULL.md section C.6: writeback
// attribution under directory coherence always uses the block's
// TrueRequester (fixed at allocation), never a later sharer's id.
type DirectoryCoherence struct{}

func (DirectoryCoherence) NewState(cmd memreq.Command, old State) State {
	switch cmd {
	case memreq.CmdWrite, memreq.CmdUpgrade:
		return StateValid | StateWritable | StateDirty
	default:
		return StateValid | StateShared
	}
}

func (DirectoryCoherence) NeedsWriteback(s State) bool { return s.Has(StateDirty) }
func (DirectoryCoherence) AllowFastWrites() bool        { return false }

// AddSharer records cpuID as holding a copy of blk.
func (DirectoryCoherence) AddSharer(blk *Block, cpuID int) {
	blk.Sharers |= 1 << uint(cpuID)
}

// RemoveSharer drops cpuID from blk's sharer set.
func (DirectoryCoherence) RemoveSharer(blk *Block, cpuID int) {
	blk.Sharers &^= 1 << uint(cpuID)
}

// WritebackOwner returns the CPU id a writeback of blk should be attributed
// to under directory coherence: always TrueRequester, per SPEC_FULL.md's
// resolution of the "writeback owner" open question for this protocol.
func (DirectoryCoherence) WritebackOwner(blk *Block) int {
	return blk.TrueRequester
}
