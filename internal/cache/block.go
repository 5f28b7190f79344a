// Package cache implements the parameterized cache described in spec.md
// section 4.6: a tag store plus MSHR/writeback buffering plus a pluggable
// coherence protocol, with an LLC-only way-partitioning and writeback-
// attribution layer, and the shadow-tag interference estimator of section
// 4.7. Grounded on
// _examples/original_source/m5/mem/cache/cache_impl.hh (the Cache template)
// and cache_interference.{hh,cc} (the shadow-tag array).
package cache

// State is the coherence state of one cache block, a bitmask rather than
// a fixed enum so snooping/directory protocols can each define their own
// legal combinations, mirroring CacheBlk::State in cache_impl.hh.
type State uint8

const (
	StateValid State = 1 << iota
	StateWritable
	StateDirty
	StateShared
)

func (s State) Has(bit State) bool { return s&bit != 0 }

// Block is one cache-line-sized slot in a TagStore.
type Block struct {
	Valid bool
	Tag   uint64
	Set   int
	Way   int

	State State

	// PrevRequester is the CPU id of the requester that last brought this
	// block in, used by the "owner" writeback-attribution policy.
	PrevRequester int

	// Sharers is the per-block sharer bitvector named in spec.md section 3,
	// used by directory coherence to track which cores hold a copy.
	Sharers uint64

	// TrueRequester is fixed at allocation time and never overwritten by a
	// later sharer's access; directory-coherence "owner" writeback
	// attribution reads this field instead of PrevRequester (SPEC_FULL.md
	// section C.6).
	TrueRequester int
}

func (b *Block) reset() {
	*b = Block{Set: b.Set, Way: b.Way}
}

func blockAddr(addr uint64, lineSizeBytes int) uint64 {
	mask := uint64(lineSizeBytes - 1)
	return addr &^ mask
}
