package cache

import "github.com/magnusjahre/MM5-sub002/internal/memreq"

// copyPhase names the stage of an in-flight Copy pseudo-operation, per
// spec.md section 4.6 ("access(Copy) spawns a state machine that may need
// to fetch source blocks, writeback dirty destinations, optionally
// allocate the destination block fast, and finally perform the transfer").
type copyPhase int

const (
	copyFetchSource copyPhase = iota
	copyWritebackDest
	copyAllocateDest
	copyTransfer
	copyDone
)

// copyState is the intermediate state of one Copy, keyed by the source
// block address; its sub-requests ride on the normal MSHR machinery.
type copyState struct {
	phase      copyPhase
	srcAddr    uint64
	dstAddr    uint64
	orig       *memreq.Request
	sourceData bool // source block is resident and readable
}

// startCopy begins servicing a Copy request: spec.md names src/dst in the
// request's PAddr/OldAddr pair, following memreq.Request's OldAddr comment
// ("populated for writebacks and copy-displaced blocks").
func (c *Cache) startCopy(req *memreq.Request) {
	cs := &copyState{
		phase:   copyFetchSource,
		srcAddr: blockAddr(req.PAddr, c.lineSizeBytes()),
		dstAddr: blockAddr(req.OldAddr, c.lineSizeBytes()),
		orig:    req,
	}
	c.copies[cs.srcAddr] = cs
	c.advanceCopy(cs)
}

// advanceCopy drives cs forward as far as it can go without blocking on an
// outstanding fetch or writeback; HandleResponse re-enters it when those
// complete.
func (c *Cache) advanceCopy(cs *copyState) {
	for {
		switch cs.phase {
		case copyFetchSource:
			blk := c.tags.Lookup(cs.srcAddr)
			if blk != nil && blk.Valid {
				cs.sourceData = true
				cs.phase = copyWritebackDest
				continue
			}
			if !c.mshrs.HasFreeSlot() {
				c.setBlocking(BlockCopy, true)
				return
			}
			fetch := &memreq.Request{
				PAddr:         cs.srcAddr,
				Cmd:           memreq.CmdRead,
				Size:          c.lineSizeBytes(),
				TrueRequester: cs.orig.TrueRequester,
				SeqNum:        memreq.NextSeqNum(),
				Ctx:           cs,
			}
			fetch.Flags |= memreq.FlagCopyPendingSource
			c.mshrs.Allocate(cs.srcAddr, fetch)
			c.resp.ForwardMiss(fetch)
			return

		case copyWritebackDest:
			dstBlk := c.tags.Lookup(cs.dstAddr)
			if dstBlk != nil && dstBlk.Valid && c.coherence.NeedsWriteback(dstBlk.State) {
				if !c.wb.HasFreeSlot() {
					c.setBlocking(BlockCopy, true)
					return
				}
				wb := c.buildWriteback(dstBlk, cs.orig)
				c.tags.Invalidate(dstBlk)
				c.wb.Push(wb)
				c.resp.ForwardWriteback(wb)
			}
			cs.phase = copyAllocateDest
			continue

		case copyAllocateDest:
			dstBlk := c.tags.Victim(cs.dstAddr, cs.orig.TrueRequester)
			if dstBlk == nil {
				c.setBlocking(BlockCopy, true)
				return
			}
			if dstBlk.Valid && dstBlk.Tag != c.tags.tagOf(cs.dstAddr) {
				c.tags.Invalidate(dstBlk)
			}
			c.tags.Fill(dstBlk, cs.dstAddr, StateValid|StateWritable|StateDirty, cs.orig.TrueRequester)
			cs.phase = copyTransfer
			continue

		case copyTransfer:
			cs.phase = copyDone
			c.setBlocking(BlockCopy, false)
			delete(c.copies, cs.srcAddr)
			c.resp.DeliverResponse(cs.orig)
			return
		}
	}
}

// handleCopyResponse resumes a Copy whose source-fetch MSHR just filled,
// mirroring cache_impl.hh's handleCopy re-entry from handleResponse.
func (c *Cache) handleCopyResponse(req *memreq.Request) bool {
	cs, ok := req.Ctx.(*copyState)
	if !ok {
		return false
	}
	cs.sourceData = true
	cs.phase = copyWritebackDest
	c.advanceCopy(cs)
	return true
}
