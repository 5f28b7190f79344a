package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magnusjahre/MM5-sub002/internal/memreq"
)

func TestCache_CopyWithResidentSourceAllocatesDestThenCompletes(t *testing.T) {
	resp := &fakeResponder{}
	c := newTestCache(resp)

	// Bring the source block in first so the copy doesn't need a fetch.
	src := &memreq.Request{PAddr: 0x1000, Cmd: memreq.CmdRead, TrueRequester: 0}
	c.Access(src)
	c.HandleResponse(src)
	resp.delivered = nil
	resp.misses = nil

	copyReq := &memreq.Request{PAddr: 0x1000, OldAddr: 0x2000, Cmd: memreq.CmdCopy, TrueRequester: 0}
	outcome := c.Access(copyReq)
	require.Equal(t, AccessMiss, outcome)
	require.Len(t, resp.delivered, 1)
	require.Same(t, copyReq, resp.delivered[0])
	require.NotNil(t, c.tags.Lookup(0x2000))
}

func TestCache_CopyFetchesMissingSourceBeforeCompleting(t *testing.T) {
	resp := &fakeResponder{}
	c := newTestCache(resp)

	copyReq := &memreq.Request{PAddr: 0x1000, OldAddr: 0x2000, Cmd: memreq.CmdCopy, TrueRequester: 0}
	outcome := c.Access(copyReq)
	require.Equal(t, AccessMiss, outcome)
	require.Empty(t, resp.delivered)
	require.Len(t, resp.misses, 1)

	fetch := resp.misses[0]
	require.True(t, fetch.Flags.Has(memreq.FlagCopyPendingSource))

	c.HandleResponse(fetch)
	require.Len(t, resp.delivered, 1)
	require.Same(t, copyReq, resp.delivered[0])
	require.NotNil(t, c.tags.Lookup(0x2000))
}
