package cache

// ShadowTagArray replays every LLC access into each core's private "shadow"
// LRU tag array, sized LLC_size/N, as described in spec.md section 4.7.
// When the array is not a full map of every LLC set, only a sampled subset
// of "leader sets" is tracked, mirroring cache_interference.hh's
// numLeaderSets/setsInConstituency/isLeaderSet machinery.
type ShadowTagArray struct {
	perCore           []*TagStore
	totalSets         int
	numLeaderSets     int
	setsInConstituency int
}

// NewShadowTagArray allocates one shadow tag store per core, each sized
// llcSizeBytes/numCores, with the given associativity and line size.
// numLeaderSets of 0 (or >= the per-core set count) means full-map: every
// set is sampled.
func NewShadowTagArray(numCores, llcSizeBytes, associativity, lineSizeBytes, numLeaderSets int) *ShadowTagArray {
	perCoreSize := llcSizeBytes / numCores
	stores := make([]*TagStore, numCores)
	for i := range stores {
		stores[i] = NewTagStore(perCoreSize, associativity, lineSizeBytes)
	}
	totalSets := stores[0].NumSets()
	if numLeaderSets <= 0 || numLeaderSets > totalSets {
		numLeaderSets = totalSets
	}
	constituency := 1
	if numLeaderSets > 0 {
		constituency = totalSets / numLeaderSets
		if constituency <= 0 {
			constituency = 1
		}
	}
	return &ShadowTagArray{
		perCore:            stores,
		totalSets:          totalSets,
		numLeaderSets:      numLeaderSets,
		setsInConstituency: constituency,
	}
}

// IsLeaderSet reports whether set is one of the sampled leader sets. With
// setsInConstituency sets per leader, set 0, setsInConstituency, 2x... are
// leaders, matching the original's stride-sampling scheme.
func (s *ShadowTagArray) IsLeaderSet(set int) bool {
	if s.numLeaderSets >= s.totalSets {
		return true
	}
	return set%s.setsInConstituency == 0
}

// Access replays one LLC access into cpuID's shadow tags, returning whether
// it was a shadow hit, whether the set was sampled at all, and whether a
// dirty victim had to be evicted to make room (feeding the interference
// manager's private-writeback-probability estimate). Non-leader sets are
// skipped entirely (not sampled).
func (s *ShadowTagArray) Access(cpuID int, addr uint64) (hit, sampled, evictedDirty bool) {
	store := s.perCore[cpuID]
	set := store.setOf(addr)
	if !s.IsLeaderSet(set) {
		return false, false, false
	}

	blk := store.Lookup(addr)
	if blk != nil {
		store.Touch(blk)
		return true, true, false
	}

	victim := store.Victim(addr, cpuID)
	if victim != nil {
		if victim.Valid {
			evictedDirty = victim.State.Has(StateDirty)
			store.Invalidate(victim)
		}
		store.Fill(victim, addr, StateValid, cpuID)
	}
	return false, true, evictedDirty
}

// WriteDirty marks cpuID's shadow copy of addr dirty, called when the real
// LLC access that this shadow replay mirrors was a write; used later by
// the interference manager's private-writeback-probability estimate.
func (s *ShadowTagArray) WriteDirty(cpuID int, addr uint64) {
	store := s.perCore[cpuID]
	if blk := store.Lookup(addr); blk != nil {
		blk.State |= StateDirty
	}
}

// OwnerOfDirty reports the first core whose shadow copy of addr is valid
// and dirty, the shadow-tag-estimated "would have written this back
// alone" core spec.md section 4.6's shadow-tags writeback attribution
// policy names. ok is false when no core's shadow tags hold addr dirty
// (e.g. it was never sampled, or no core wrote it), leaving the caller to
// fall back to owner attribution.
func (s *ShadowTagArray) OwnerOfDirty(addr uint64) (cpuID int, ok bool) {
	for i, store := range s.perCore {
		if blk := store.Lookup(addr); blk != nil && blk.Valid && blk.State.Has(StateDirty) {
			return i, true
		}
	}
	return 0, false
}

func (s *ShadowTagArray) NumLeaderSets() int { return s.numLeaderSets }
func (s *ShadowTagArray) TotalSets() int     { return s.totalSets }

// Stores returns the per-core shadow tag arrays, one TagStore per core, for
// checkpoint serialization to walk individually.
func (s *ShadowTagArray) Stores() []*TagStore { return s.perCore }
