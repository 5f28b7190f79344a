package bus

import (
	"github.com/magnusjahre/MM5-sub002/internal/dram"
	"github.com/magnusjahre/MM5-sub002/internal/event"
	"github.com/magnusjahre/MM5-sub002/internal/memreq"
)

// MemoryBackend is the subset of dram.MemoryController the bridge drives.
// Defined as an interface so bridge tests can substitute a fake controller.
type MemoryBackend interface {
	InsertRequest(req *memreq.Request, now int64) error
	HasMoreRequests() bool
	NextRequest() *memreq.Request
	Service(now int64, req *memreq.Request) (latency int64, outcome dram.Outcome, err error)
}

// Responder is notified when a request's data phase completes, mirroring
// the original BusBridgeSlave forwarding a response back to its master
// interface once granted the data bus.
type Responder interface {
	DeliverResponse(req *memreq.Request, now int64)
}

// Bridge couples an address lane and a data lane to a memory backend,
// per spec.md section 4.8 and
// _examples/original_source/m5/mem/bus/bus_bridge_slave.hh: a granted
// address-phase request is handed to the controller; once the controller
// reports a latency, the bridge requests the data lane and, once that is
// granted, delivers the response to the originating interface.
type Bridge struct {
	addr   *Lane
	data   *Lane
	mem    MemoryBackend
	sched  *event.Scheduler
	onDone Responder

	// inFlight maps a request's SeqNum to the interface id it arrived on,
	// so the data-phase grant can be routed back to the right responder.
	inFlight map[uint64]int
}

// NewBridge wires addr and data lanes to mem, scheduling follow-on events
// on sched and notifying onDone when a request's data phase completes.
func NewBridge(addr, data *Lane, mem MemoryBackend, sched *event.Scheduler, onDone Responder) *Bridge {
	return &Bridge{addr: addr, data: data, mem: mem, sched: sched, onDone: onDone, inFlight: make(map[uint64]int)}
}

// RequestAddr registers a CPU or cache interface's address-phase request,
// per spec.md section 4.8 (caller has already classified requesterKey: CPU
// id for reads, bank id for writebacks).
func (b *Bridge) RequestAddr(interfaceID, requesterKey int, now int64, req *memreq.Request) error {
	return b.addr.Request(interfaceID, requesterKey, now, req)
}

// ArbitrateAddr runs one address-phase arbitration round at tick now. A
// granted request is inserted into the memory controller and a service
// event is scheduled at now; when nothing is granted the call returns
// without scheduling anything.
func (b *Bridge) ArbitrateAddr(now int64) {
	id, tag, granted := b.addr.Arbitrate(now, 0)
	if !granted {
		return
	}
	req := tag.(*memreq.Request)
	b.inFlight[req.SeqNum] = id
	_ = b.mem.InsertRequest(req, now)

	if b.sched != nil {
		b.sched.Schedule(now, event.PriorityMemoryController, func(t int64) { b.serviceNext(t) })
	}
}

// serviceNext drains one ready request from the memory controller and, on
// completion, requests the data lane on the originating interface's
// behalf.
func (b *Bridge) serviceNext(now int64) {
	if !b.mem.HasMoreRequests() {
		return
	}
	req := b.mem.NextRequest()
	lat, _, err := b.mem.Service(now, req)
	if err != nil {
		return
	}
	completion := now + lat
	id, ok := b.inFlight[req.SeqNum]
	if !ok {
		return
	}
	delete(b.inFlight, req.SeqNum)

	requesterKey := req.IssuingCPU
	if req.Cmd.IsWriteFamily() {
		requesterKey = bankRequesterKey(id, b.addr.numCPUs)
	}
	_ = b.data.Request(id, requesterKey, completion, req)

	if b.sched != nil {
		b.sched.Schedule(completion, event.PriorityMemoryController, func(t int64) { b.ArbitrateData(t) })
	}
}

// ArbitrateData runs one data-phase arbitration round, delivering the
// response to onDone on a grant.
func (b *Bridge) ArbitrateData(now int64) {
	_, tag, granted := b.data.Arbitrate(now, 0)
	if !granted {
		return
	}
	req := tag.(*memreq.Request)
	if b.onDone != nil {
		b.onDone.DeliverResponse(req, now)
	}
}

func bankRequesterKey(interfaceID, numCPUs int) int {
	if interfaceID < numCPUs {
		return interfaceID
	}
	return interfaceID - numCPUs
}
