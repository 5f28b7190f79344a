package cache

import (
	"github.com/magnusjahre/MM5-sub002/internal/logx"
	"github.com/magnusjahre/MM5-sub002/internal/memreq"
)

// AccessOutcome is the result of one Access call, per spec.md section 4.6.
type AccessOutcome int

const (
	AccessHit AccessOutcome = iota
	AccessMiss
	AccessBlocked
)

// BlockingCondition is one bit of the set tracked in spec.md section 4.6:
// {no-MSHRs, no-targets, no-WB-buffers, blocked-copy}.
type BlockingCondition uint8

const (
	BlockNoMSHRs BlockingCondition = 1 << iota
	BlockNoTargets
	BlockNoWBBuffers
	BlockCopy
)

// WritebackOwnerPolicy selects who a coherence-evicted writeback is
// attributed to, per spec.md section 4.6.
type WritebackOwnerPolicy int

const (
	WBOwnerOriginal WritebackOwnerPolicy = iota // previous original requester
	WBOwnerReplacer                             // current miss-bringer
	WBOwnerShadowTags                           // shadow-tag estimated
)

// Responder is notified of cache outputs: hit/miss responses, writebacks
// pushed downward, and blocking-condition transitions. The pipeline (for
// L1s) or the bus bridge (for the LLC) implements this.
type Responder interface {
	DeliverResponse(req *memreq.Request)
	ForwardMiss(req *memreq.Request)
	ForwardWriteback(req *memreq.Request)
	BlockingChanged(conditions BlockingCondition)
}

// Cache is the parameterized cache of spec.md section 4.6: tag store +
// MSHR/WB buffering + coherence, with optional LLC way partitioning and
// writeback attribution. Grounded on cache_impl.hh's Cache<TagStore,
// Buffering, Coherence> template, here a single concrete struct since Go
// has no template specialization — the three axes are fields
// (*TagStore, *MSHRTable/*WBBuffer, Coherence interface) instead.
type Cache struct {
	Name string

	tags       *TagStore
	mshrs      *MSHRTable
	wb         *WBBuffer
	coherence  Coherence
	hitLatency int

	isLLC      bool
	wbPolicy   WritebackOwnerPolicy
	shadowTags *ShadowTagArray // only set when isLLC && wbPolicy == WBOwnerShadowTags, or for interference estimation

	resp Responder
	log  logx.Logger

	blocking BlockingCondition

	copies map[uint64]*copyState

	// InterferenceHook, when set, receives the real (shared) and shadow-tag
	// outcome of every LLC access, letting the interference manager compute
	// the interference probability and alone-hit/miss estimates of spec.md
	// section 4.7 without this package depending on that one.
	InterferenceHook func(req *memreq.Request, sharedHit, shadowHit, sampled, evictedDirty bool)
}

// New allocates a cache of sizeBytes with the given associativity and line
// size, backed by coherence protocol c, reporting outcomes to resp.
func New(name string, sizeBytes, associativity, lineSizeBytes, mshrCount, targetsPerMSHR, wbBufferSize, hitLatency int, c Coherence, resp Responder, log logx.Logger) *Cache {
	if log == nil {
		log = logx.NewNoop()
	}
	return &Cache{
		Name:       name,
		tags:       NewTagStore(sizeBytes, associativity, lineSizeBytes),
		mshrs:      NewMSHRTable(mshrCount, targetsPerMSHR),
		wb:         NewWBBuffer(wbBufferSize),
		coherence:  c,
		hitLatency: hitLatency,
		resp:       resp,
		log:        log,
		copies:     make(map[uint64]*copyState),
	}
}

// EnableWayPartitioning installs static per-core way quotas and marks this
// cache as the LLC, per spec.md section 4.6's "LLC additionally supports".
func (c *Cache) EnableWayPartitioning(quotas map[int]int) {
	c.isLLC = true
	c.tags.SetWayQuotas(quotas)
}

// SetWritebackOwnerPolicy configures LLC writeback attribution; shadow must
// be non-nil when policy is WBOwnerShadowTags.
func (c *Cache) SetWritebackOwnerPolicy(policy WritebackOwnerPolicy, shadow *ShadowTagArray) {
	c.wbPolicy = policy
	c.shadowTags = shadow
}

// Access implements the public contract of spec.md section 4.6.
func (c *Cache) Access(req *memreq.Request) AccessOutcome {
	if req.Flags.Has(memreq.FlagUncacheable) {
		c.resp.ForwardMiss(req)
		return AccessMiss
	}

	if req.Cmd == memreq.CmdCopy {
		c.startCopy(req)
		return AccessMiss
	}

	blockAddr := blockAddr(req.PAddr, c.lineSizeBytes())
	blk := c.tags.Lookup(req.PAddr)

	if c.isLLC && c.shadowTags != nil {
		shadowHit, sampled, evictedDirty := c.shadowTags.Access(req.TrueRequester, req.PAddr)
		if sampled && req.Cmd.IsWriteFamily() {
			c.shadowTags.WriteDirty(req.TrueRequester, req.PAddr)
		}
		if c.InterferenceHook != nil {
			sharedHit := blk != nil && blk.Valid
			c.InterferenceHook(req, sharedHit, shadowHit, sampled, evictedDirty)
		}
	}

	if blk != nil && blk.Valid {
		c.tags.Touch(blk)
		if req.Cmd.IsWriteFamily() {
			blk.State |= StateDirty | StateWritable
		}
		c.resp.DeliverResponse(req)
		return AccessHit
	}

	// Miss: merge into an existing MSHR, or allocate a new one.
	if handle, _, ok := c.mshrs.Find(blockAddr); ok {
		if !c.mshrs.HasFreeTarget(handle) {
			c.setBlocking(BlockNoTargets, true)
			return AccessBlocked
		}
		c.mshrs.AddTarget(handle, req)
		return AccessMiss
	}

	if !c.mshrs.HasFreeSlot() {
		c.setBlocking(BlockNoMSHRs, true)
		return AccessBlocked
	}

	victim := c.tags.Victim(req.PAddr, req.TrueRequester)
	if victim == nil {
		c.setBlocking(BlockNoMSHRs, true)
		return AccessBlocked
	}
	if victim.Valid && c.coherence.NeedsWriteback(victim.State) {
		if !c.wb.HasFreeSlot() {
			c.setBlocking(BlockNoWBBuffers, true)
			return AccessBlocked
		}
		wb := c.buildWriteback(victim, req)
		c.tags.Invalidate(victim)
		c.wb.Push(wb)
		c.resp.ForwardWriteback(wb)
	} else if victim.Valid {
		c.tags.Invalidate(victim)
	}

	handle, _, ok := c.mshrs.Allocate(blockAddr, req)
	if !ok {
		c.setBlocking(BlockNoMSHRs, true)
		return AccessBlocked
	}
	req.MSHR = handle
	c.resp.ForwardMiss(req)
	return AccessMiss
}

// HandleResponse fills the block for a returned miss and drains its
// targets, per spec.md section 4.6. The LLC's shadow-tag operation runs in
// Access, on every lookup; HandleResponse does not touch the shadow tags.
func (c *Cache) HandleResponse(req *memreq.Request) {
	if !req.MSHR.Valid {
		return
	}
	if req.Flags.Has(memreq.FlagCopyPendingSource) {
		c.mshrs.Release(req.MSHR)
		c.handleCopyResponse(req)
		return
	}

	targets := c.mshrs.Release(req.MSHR)
	if len(targets) == 0 {
		return
	}
	driver := targets[0]

	blockAddr := blockAddr(req.PAddr, c.lineSizeBytes())
	victim := c.tags.Victim(req.PAddr, driver.TrueRequester)
	if victim != nil {
		if victim.Valid && victim.Tag != c.tags.tagOf(req.PAddr) {
			// A second victim surfaced between Access and HandleResponse
			// (e.g. another miss raced in); evict and writeback as usual.
			if c.coherence.NeedsWriteback(victim.State) && c.wb.HasFreeSlot() {
				wb := c.buildWriteback(victim, driver)
				c.wb.Push(wb)
				c.resp.ForwardWriteback(wb)
			}
			c.tags.Invalidate(victim)
		}
		state := c.coherence.NewState(driver.Cmd, victim.State)
		c.tags.Fill(victim, blockAddr, state, driver.TrueRequester)
	}

	for _, target := range targets {
		c.resp.DeliverResponse(target)
	}

	c.setBlocking(BlockNoMSHRs, !c.mshrs.HasFreeSlot())
}

// buildWriteback clones the evicted block into a CmdWriteback request,
// attributing it per c.wbPolicy, mirroring cache_impl.hh's
// writebackOwnerPolicy switch in handleResponse.
func (c *Cache) buildWriteback(victim *Block, causer *memreq.Request) *memreq.Request {
	addr := victim.Tag*uint64(c.tags.sets)*uint64(c.lineSizeBytes()) + uint64(victim.Set)*uint64(c.lineSizeBytes())
	wb := &memreq.Request{
		PAddr:      addr,
		Cmd:        memreq.CmdWriteback,
		Size:       c.lineSizeBytes(),
		OriginTick: causer.OriginTick,
		SeqNum:     memreq.NextSeqNum(),
	}
	switch c.wbPolicy {
	case WBOwnerOriginal:
		wb.TrueRequester = victim.PrevRequester
	case WBOwnerReplacer:
		wb.TrueRequester = causer.TrueRequester
	case WBOwnerShadowTags:
		// Attribute to whichever core's shadow tags estimate they would
		// have held this block dirty in alone mode; fall back to owner
		// attribution when no shadow copy is dirty (e.g. the set was
		// never sampled).
		if owner, ok := c.shadowTags.OwnerOfDirty(addr); ok {
			wb.TrueRequester = owner
		} else {
			wb.TrueRequester = victim.PrevRequester
		}
	}
	wb.IssuingCPU = wb.TrueRequester
	return wb
}

// Snoop implements the bus-observation half of the coherence protocol,
// per spec.md section 4.6: a colliding in-service request may be NACKed.
func (c *Cache) Snoop(req *memreq.Request) {
	proto, ok := c.coherence.(SnoopingMSI)
	if !ok {
		return
	}
	blk := c.tags.Lookup(req.PAddr)
	if blk == nil {
		return
	}
	if _, _, found := c.mshrs.Find(blockAddr(req.PAddr, c.lineSizeBytes())); found {
		req.Flags |= memreq.FlagNacked
		return
	}
	result := proto.Snoop(req.Cmd, blk)
	if result.SuppliesData {
		req.Flags |= memreq.FlagSharedLine
	}
	if result.Invalidate {
		c.tags.Invalidate(blk)
	} else if result.Downgrade {
		blk.State = (blk.State &^ StateDirty &^ StateWritable) | StateShared
	}
}

// SnoopResponse observes a response to someone else's request passing by
// on the bus, used by directory coherence to update sharer state.
func (c *Cache) SnoopResponse(req *memreq.Request) {
	blk := c.tags.Lookup(req.PAddr)
	if blk == nil {
		return
	}
	if dc, ok := c.coherence.(DirectoryCoherence); ok {
		if req.Cmd.IsWriteFamily() {
			dc.RemoveSharer(blk, req.TrueRequester)
		} else {
			dc.AddSharer(blk, req.TrueRequester)
		}
	}
}

func (c *Cache) setBlocking(cond BlockingCondition, set bool) {
	before := c.blocking
	if set {
		c.blocking |= cond
	} else {
		c.blocking &^= cond
	}
	if c.blocking != before {
		c.resp.BlockingChanged(c.blocking)
	}
}

// Blocked reports the current blocking-condition set.
func (c *Cache) Blocked() BlockingCondition { return c.blocking }

func (c *Cache) lineSizeBytes() int {
	return c.tags.lineSizeBytes
}
