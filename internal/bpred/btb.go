package bpred

// btbEntry is one BTB way's contents.
type btbEntry struct {
	valid  bool
	addr   uint64
	target uint64
}

// BTB is a set-associative branch target buffer with LRU-within-set
// replacement, per spec.md section 4.2 ("probe the set-associative BTB
// (LRU-within-set)"), grounded on bpred.cc's flat btb_data array indexed
// by `set*assoc + way`.
type BTB struct {
	sets int
	ways int
	data []btbEntry
	// lru[set] lists way indices from most- to least-recently-used.
	lru [][]int
}

// NewBTB allocates a BTB of the given set count and associativity.
func NewBTB(sets, ways int) *BTB {
	b := &BTB{
		sets: sets,
		ways: ways,
		data: make([]btbEntry, sets*ways),
		lru:  make([][]int, sets),
	}
	for s := range b.lru {
		order := make([]int, ways)
		for w := range order {
			order[w] = w
		}
		b.lru[s] = order
	}
	return b
}

func (b *BTB) setOf(pc uint64) int {
	return int((pc >> branchAddrShift) % uint64(b.sets))
}

// Lookup probes the BTB for pc, returning its target and whether it hit.
// A hit does not change the LRU order (spec.md section 4.2: "assumes a
// BTB lookup does not affect the state of the BTB").
func (b *BTB) Lookup(pc uint64) (target uint64, hit bool) {
	set := b.setOf(pc)
	base := set * b.ways
	for w := 0; w < b.ways; w++ {
		e := &b.data[base+w]
		if e.valid && e.addr == pc {
			return e.target, true
		}
	}
	return 0, false
}

// InsertOrPromote records pc->target in the BTB, per spec.md section 4.2
// ("on taken branches inserts or LRU-promotes the BTB entry"): an existing
// entry is updated and promoted to most-recently-used; otherwise the
// least-recently-used way in the set is evicted.
func (b *BTB) InsertOrPromote(pc, target uint64) {
	set := b.setOf(pc)
	base := set * b.ways
	order := b.lru[set]

	for i, w := range order {
		e := &b.data[base+w]
		if e.valid && e.addr == pc {
			e.target = target
			b.promote(set, i)
			return
		}
	}

	victimPos := len(order) - 1
	victimWay := order[victimPos]
	b.data[base+victimWay] = btbEntry{valid: true, addr: pc, target: target}
	b.promote(set, victimPos)
}

// promote moves the entry at position pos in set's LRU order to the front.
func (b *BTB) promote(set, pos int) {
	order := b.lru[set]
	way := order[pos]
	copy(order[1:pos+1], order[:pos])
	order[0] = way
}
