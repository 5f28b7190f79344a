package cache

import "golang.org/x/exp/slices"

// TagStore is a set-associative tag array with LRU-within-set replacement
// and optional per-core way quotas (spec.md section 4.6's "static way
// partitioning"). Grounded on cache_impl.hh's TagStore template parameter,
// specialized here to the one concrete (set-assoc, LRU) policy the
// original's `tags/lru.hh` implements.
type TagStore struct {
	sets          int
	ways          int
	lineSizeBytes int

	blocks []Block
	// lru[set] lists way indices from most- to least-recently-used.
	lru [][]int

	// quotas, when non-nil, caps how many ways in every set a given core
	// may occupy; enforced by victim selection, not by lookup.
	quotas map[int]int
	// owner[set][way] is the core that currently holds that way, used to
	// enforce quotas; -1 means free/invalid.
	owner [][]int
}

// NewTagStore allocates a tag store of the given geometry.
func NewTagStore(sizeBytes, associativity, lineSizeBytes int) *TagStore {
	numLines := sizeBytes / lineSizeBytes
	sets := numLines / associativity
	if sets <= 0 {
		sets = 1
	}
	t := &TagStore{
		sets:          sets,
		ways:          associativity,
		lineSizeBytes: lineSizeBytes,
		blocks:        make([]Block, sets*associativity),
		lru:           make([][]int, sets),
		owner:         make([][]int, sets),
	}
	for s := 0; s < sets; s++ {
		order := make([]int, associativity)
		own := make([]int, associativity)
		for w := 0; w < associativity; w++ {
			order[w] = w
			own[w] = -1
			t.blocks[s*associativity+w] = Block{Set: s, Way: w}
		}
		t.lru[s] = order
		t.owner[s] = own
	}
	return t
}

// SetWayQuotas installs the per-core way quota map used by way-partitioned
// victim selection; pass nil to disable partitioning.
func (t *TagStore) SetWayQuotas(quotas map[int]int) {
	t.quotas = quotas
}

func (t *TagStore) setOf(addr uint64) int {
	line := blockAddr(addr, t.lineSizeBytes) / uint64(t.lineSizeBytes)
	return int(line % uint64(t.sets))
}

func (t *TagStore) tagOf(addr uint64) uint64 {
	return blockAddr(addr, t.lineSizeBytes) / uint64(t.lineSizeBytes) / uint64(t.sets)
}

func (t *TagStore) blockAt(set, way int) *Block {
	return &t.blocks[set*t.ways+way]
}

// Lookup probes the tag store for addr without changing LRU order;
// callers that hit must call Touch to promote it.
func (t *TagStore) Lookup(addr uint64) *Block {
	set := t.setOf(addr)
	tag := t.tagOf(addr)
	for w := 0; w < t.ways; w++ {
		b := t.blockAt(set, w)
		if b.Valid && b.Tag == tag {
			return b
		}
	}
	return nil
}

// Touch promotes blk to most-recently-used within its set.
func (t *TagStore) Touch(blk *Block) {
	t.promote(blk.Set, blk.Way)
}

// promote moves way to the front of set's LRU order.
func (t *TagStore) promote(set, way int) {
	order := t.lru[set]
	idx := slices.Index(order, way)
	if idx <= 0 {
		return
	}
	order = slices.Delete(order, idx, idx+1)
	order = slices.Insert(order, 0, way)
	t.lru[set] = order
}

// Victim picks a replacement way in addr's set for a fill requested by
// requester, honoring way quotas if installed. A requester below its quota
// takes the LRU-most free way, else the LRU-most way of another core that
// holds more ways than its own quota; a requester at or above its quota
// (or one that found neither) evicts its own LRU-most way. Returns nil
// when that last step finds no way owned by requester.
func (t *TagStore) Victim(addr uint64, requester int) *Block {
	set := t.setOf(addr)
	order := t.lru[set]

	if t.quotas == nil {
		way := order[len(order)-1]
		return t.blockAt(set, way)
	}

	quota := t.quotaOf(requester)
	held := t.heldBy(set, requester)

	if held < quota {
		// Below quota: take the LRU-most free way if one exists.
		for i := len(order) - 1; i >= 0; i-- {
			way := order[i]
			if t.owner[set][way] == -1 {
				return t.blockAt(set, way)
			}
		}
		// No free way: evict the LRU-most way belonging to a core that is
		// itself over its own quota, to make room within the partition.
		for i := len(order) - 1; i >= 0; i-- {
			way := order[i]
			own := t.owner[set][way]
			if own != requester && own != -1 && t.heldBy(set, own) > t.quotaOf(own) {
				return t.blockAt(set, way)
			}
		}
	}

	// At or over quota (or nothing else evictable): evict requester's own
	// LRU-most way.
	for i := len(order) - 1; i >= 0; i-- {
		way := order[i]
		if t.owner[set][way] == requester {
			return t.blockAt(set, way)
		}
	}
	return nil
}

func (t *TagStore) quotaOf(core int) int {
	if q, ok := t.quotas[core]; ok {
		return q
	}
	return t.ways
}

func (t *TagStore) heldBy(set, core int) int {
	held := 0
	for _, w := range t.owner[set] {
		if w == core {
			held++
		}
	}
	return held
}

// Fill installs a block for addr into blk (previously selected by Victim
// or an already-invalid way), setting its coherence state and requester
// attribution.
func (t *TagStore) Fill(blk *Block, addr uint64, state State, requester int) {
	blk.Valid = true
	blk.Tag = t.tagOf(addr)
	blk.State = state | StateValid
	blk.PrevRequester = requester
	blk.TrueRequester = requester
	blk.Sharers = 0
	t.owner[blk.Set][blk.Way] = requester
	t.promote(blk.Set, blk.Way)
}

// Invalidate clears blk back to an empty, unowned slot.
func (t *TagStore) Invalidate(blk *Block) {
	set, way := blk.Set, blk.Way
	blk.reset()
	t.owner[set][way] = -1
}

func (t *TagStore) NumSets() int { return t.sets }
func (t *TagStore) NumWays() int { return t.ways }

// LRUPosition returns way's recency rank within its set, 0 being
// most-recently-used, used by checkpoint serialization's per-block
// "lru-position" column (spec.md section 6).
func (t *TagStore) LRUPosition(set, way int) int {
	return slices.Index(t.lru[set], way)
}

// Walk visits every block in the tag store in set-major, way-minor order,
// the iteration order checkpoint serialization writes lines in.
func (t *TagStore) Walk(fn func(blk *Block)) {
	for s := 0; s < t.sets; s++ {
		for w := 0; w < t.ways; w++ {
			fn(t.blockAt(s, w))
		}
	}
}

// Owner returns the core id occupying set/way, or -1 if free.
func (t *TagStore) Owner(set, way int) int {
	return t.owner[set][way]
}

// RestoreBlock installs blk's saved state directly into set/way and
// updates the LRU order and owner table to match, used by checkpoint
// restore after geometry has already been validated.
func (t *TagStore) RestoreBlock(set, way int, blk Block, lruPosition, originCPU int) {
	blk.Set = set
	blk.Way = way
	blk.Valid = true
	blk.PrevRequester = originCPU
	blk.TrueRequester = originCPU
	*t.blockAt(set, way) = blk
	t.owner[set][way] = originCPU

	order := t.lru[set]
	idx := slices.Index(order, way)
	if idx < 0 {
		return
	}
	order = slices.Delete(order, idx, idx+1)
	if lruPosition < 0 {
		lruPosition = 0
	}
	if lruPosition > len(order) {
		lruPosition = len(order)
	}
	order = slices.Insert(order, lruPosition, way)
	t.lru[set] = order
}
