// Package sim is the top-level composition root: it wires N cpu.CPUs and
// their private L1I/L1D caches to one shared, way-partitioned LLC, and the
// LLC to a split-transaction bus and DDR2 memory controller, per spec.md
// section 2's dataflow diagram ("core -> L1 -> bus arbiter -> bus bridge
// -> DRAM controller", with the LLC sitting between the per-core L1s and
// the bus). Grounded on
// _examples/original_source/m5/encumbered/cpu/full/cpu.hh's System-level
// assembly and mem/bus/bus_bridge_slave.hh's bridge topology; internal/cpu,
// internal/cache, internal/bus and internal/dram already implement every
// component this file does is connect them with adapters satisfying each
// other's Responder/MemoryHierarchy/MemoryBackend contracts.
package sim

import (
	"fmt"

	"github.com/magnusjahre/MM5-sub002/internal/bpred"
	"github.com/magnusjahre/MM5-sub002/internal/bus"
	"github.com/magnusjahre/MM5-sub002/internal/cache"
	"github.com/magnusjahre/MM5-sub002/internal/config"
	"github.com/magnusjahre/MM5-sub002/internal/cpu"
	"github.com/magnusjahre/MM5-sub002/internal/dram"
	"github.com/magnusjahre/MM5-sub002/internal/event"
	"github.com/magnusjahre/MM5-sub002/internal/interference"
	"github.com/magnusjahre/MM5-sub002/internal/logx"
	"github.com/magnusjahre/MM5-sub002/internal/memreq"
	"github.com/magnusjahre/MM5-sub002/internal/trace"
)

// Simulation owns every component of one run: per-core CPUs and private
// caches, the shared LLC, the address/data bus lanes and bridge, the DDR2
// memory controller, and the interference manager/policy module, per
// spec.md section 2.
type Simulation struct {
	Cfg config.Config
	Log logx.Logger

	Sched *event.Scheduler

	CPUs []*cpu.CPU
	L1Is []*cache.Cache
	L1Ds []*cache.Cache

	LLC    *cache.Cache
	Shadow *cache.ShadowTagArray

	AddrLane *bus.Lane
	DataLane *bus.Lane
	Bridge   *bus.Bridge
	Mem      *dram.MemoryController

	Interference *interference.Manager
	Policy       interference.PolicyModule

	// DRAMTrace, when set via SetDRAMTrace, receives one CSV row per
	// memory-controller service, per spec.md section 6.
	DRAMTrace *trace.DRAMWriter

	busClockTicks int64

	llc  *llcResponder
	done *bridgeDone
}

// New assembles a complete Simulation from cfg. sources supplies one
// cpu.InstructionSource per core (an external collaborator per spec.md
// section 1 — binary loading is out of scope here). policy may be nil,
// in which case the interference manager accumulates statistics without
// ever mutating way/MSHR quotas.
func New(cfg config.Config, sources []cpu.InstructionSource, policy interference.PolicyModule, log logx.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(sources) != cfg.NumCPUs {
		return nil, fmt.Errorf("sim: got %d instruction sources, want %d (config.NumCPUs)", len(sources), cfg.NumCPUs)
	}
	if log == nil {
		log = logx.NewNoop()
	}

	s := &Simulation{
		Cfg:           cfg,
		Log:           log,
		Sched:         event.NewScheduler(),
		Interference:  interference.NewManager(cfg.NumCPUs, cfg.Sampling.SamplesPerWindow, cfg.Sampling.ResetEveryR, cfg.DDR2.NumBanks),
		Policy:        policy,
		busClockTicks: busClockTicks(cfg),
	}

	s.llc = &llcResponder{sim: s}
	s.LLC = cache.New("LLC", cfg.LLC.SizeBytes, cfg.LLC.Associativity, cfg.LLC.LineSizeBytes, cfg.LLC.MSHRCount, cfg.LLC.TargetsPerMSHR, cfg.LLC.WBBufferSize, cfg.LLC.HitLatency, cache.DirectoryCoherence{}, s.llc, log)
	s.Shadow = cache.NewShadowTagArray(cfg.NumCPUs, cfg.LLC.SizeBytes, cfg.LLC.Associativity, cfg.LLC.LineSizeBytes, cfg.ShadowLeaderSets)
	s.LLC.SetWritebackOwnerPolicy(cache.WBOwnerShadowTags, s.Shadow)
	s.LLC.EnableWayPartitioning(evenWayQuotas(cfg.NumCPUs, cfg.LLCWays))
	s.LLC.InterferenceHook = func(req *memreq.Request, sharedHit, shadowHit, sampled, evictedDirty bool) {
		s.Interference.AddCacheResult(req, sharedHit, shadowHit, sampled, evictedDirty)
	}
	s.Interference.InjectionPolicy = injectionPolicyFromName(cfg.InterferenceInjectionPolicy)

	s.Interference.OnSample = s.applyPolicy

	timing := dramTiming(cfg.DDR2)
	s.Mem = dram.NewMemoryController(timing, dramPolicyFromName(cfg.DRAMSchedulingPolicy))
	backend := &meteredBackend{ctrl: s.Mem, sim: s}

	s.AddrLane = bus.NewLane(busPolicyFromName(cfg.BusArbitrationPolicy), cfg.NumCPUs, cfg.DDR2.NumBanks, s.busClockTicks, cyclesPerSlot(cfg))
	s.DataLane = bus.NewLane(busPolicyFromName(cfg.BusArbitrationPolicy), cfg.NumCPUs, cfg.DDR2.NumBanks, s.busClockTicks, cyclesPerSlot(cfg))
	s.done = &bridgeDone{sim: s}
	s.Bridge = bus.NewBridge(s.AddrLane, s.DataLane, backend, s.Sched, s.done)

	mem := cpu.NewFunctionalMemory(uint64(cfg.L1D.LineSizeBytes))

	for i := 0; i < cfg.NumCPUs; i++ {
		pred := bpred.New(cfg.BranchPred, cfg.ThreadsPerCPU, bpred.ConfidenceStaticTable, 0)
		hier := &coreHier{sim: s, cpuID: i}
		c := cpu.NewCPU(i, cfg, pred, nil, nil, mem, sources[i], s.Sched, hier, log)
		c.Interference = s.Interference

		l1i := cache.New(fmt.Sprintf("L1I%d", i), cfg.L1I.SizeBytes, cfg.L1I.Associativity, cfg.L1I.LineSizeBytes, cfg.L1I.MSHRCount, cfg.L1I.TargetsPerMSHR, cfg.L1I.WBBufferSize, cfg.L1I.HitLatency, cache.NoCoherence{}, c, log)
		l1d := cache.New(fmt.Sprintf("L1D%d", i), cfg.L1D.SizeBytes, cfg.L1D.Associativity, cfg.L1D.LineSizeBytes, cfg.L1D.MSHRCount, cfg.L1D.TargetsPerMSHR, cfg.L1D.WBBufferSize, cfg.L1D.HitLatency, cache.NoCoherence{}, c, log)
		c.L1I, c.L1D = l1i, l1d

		c.RegisterEvents(0)

		s.CPUs = append(s.CPUs, c)
		s.L1Is = append(s.L1Is, l1i)
		s.L1Ds = append(s.L1Ds, l1d)
	}

	s.registerBusEvents(0)
	return s, nil
}

// SetDRAMTrace installs a CSV trace writer for every memory-controller
// service, per spec.md section 6.
func (s *Simulation) SetDRAMTrace(w *trace.DRAMWriter) { s.DRAMTrace = w }

// Run advances the simulation through untilTick (inclusive), per spec.md
// section 6's "simulator returns 0 on reaching the configured end tick".
func (s *Simulation) Run(untilTick int64) int64 {
	return s.Sched.Run(untilTick)
}

// RunToEndTick runs through cfg.EndTick, the configured stopping point.
func (s *Simulation) RunToEndTick() int64 {
	return s.Run(s.Cfg.EndTick)
}

// CommittedInstructions reports total retired instructions per core,
// summed across its threads.
func (s *Simulation) CommittedInstructions() []int64 {
	out := make([]int64, len(s.CPUs))
	for i, c := range s.CPUs {
		var n int64
		for _, t := range c.Threads {
			n += t.CommittedCount()
		}
		out[i] = n
	}
	return out
}

// registerBusEvents schedules the recurring bus-arbitration tick that
// drives Bridge.ArbitrateAddr/ArbitrateData, mirroring cpu.CPU.
// RegisterEvents's self-rescheduling handler pattern: the bus has no
// separate "done" condition, so it simply keeps re-arming itself every
// bus-clock period for as long as the scheduler runs.
func (s *Simulation) registerBusEvents(startTick int64) {
	var tick event.Handler
	tick = func(now int64) {
		s.Bridge.ArbitrateAddr(now)
		s.Bridge.ArbitrateData(now)
		s.Interference.AddBusUtilization(s.AddrLane.HasBacklog() || s.DataLane.HasBacklog())
		s.Sched.Schedule(now+s.busClockTicks, event.PriorityBus, tick)
	}
	s.Sched.Schedule(startTick, event.PriorityBus, tick)
}

// applyPolicy runs the configured PolicyModule against a freshly sampled
// measurement and applies any way-quota decision live, per spec.md
// section 4.10's "may mutate those live without re-instantiation".
func (s *Simulation) applyPolicy(m interference.PerformanceMeasurement) {
	if s.Policy == nil {
		return
	}
	d := s.Policy.Evaluate(m)
	if d.WayQuotas != nil {
		s.LLC.EnableWayPartitioning(d.WayQuotas)
	}
	// MSHRQuotas: internal/cache's MSHRTable has no live-resize hook (its
	// capacity is fixed at cache.New time), so a policy's MSHR decision is
	// logged but not enforced. Revisit once MSHRTable grows one.
	if len(d.MSHRQuotas) > 0 {
		s.Log.Log(logx.Entry{Level: logx.LevelInfo, Message: "policy MSHR quota decision has no live enforcement path"})
	}
}

// coreHier bridges one CPU's L1 misses/writebacks into the shared LLC,
// implementing cpu.MemoryHierarchy.
type coreHier struct {
	sim   *Simulation
	cpuID int
}

func (h *coreHier) ForwardMiss(req *memreq.Request)      { h.sim.LLC.Access(req) }
func (h *coreHier) ForwardWriteback(req *memreq.Request) { h.sim.LLC.Access(req) }

// llcResponder implements cache.Responder for the shared LLC, routing hits
// straight back to the originating core and misses/writebacks out onto the
// bus.
type llcResponder struct {
	sim *Simulation
}

func (r *llcResponder) DeliverResponse(req *memreq.Request) {
	if req.Flags.Has(memreq.FlagInterferenceMiss) {
		now := r.sim.Sched.Now()
		r.sim.Interference.AddInterference(memreq.LatCacheCapacity, req, now-req.OriginTick)
	}
	if req.IssuingCPU < 0 || req.IssuingCPU >= len(r.sim.CPUs) {
		return
	}
	r.sim.CPUs[req.IssuingCPU].DeliverResponse(req)
}

func (r *llcResponder) ForwardMiss(req *memreq.Request) {
	now := r.sim.Sched.Now()
	_ = r.sim.Bridge.RequestAddr(req.IssuingCPU, req.IssuingCPU, now, req)
}

func (r *llcResponder) ForwardWriteback(req *memreq.Request) {
	now := r.sim.Sched.Now()
	bank := dram.BankID(req.PAddr, uint(r.sim.Cfg.DDR2.PageShiftBits), r.sim.Cfg.DDR2.NumBanks)
	_ = r.sim.Bridge.RequestAddr(r.sim.Cfg.NumCPUs+bank, bank, now, req)
}

func (r *llcResponder) BlockingChanged(cache.BlockingCondition) {}

// bridgeDone implements bus.Responder, the data-phase completion callback
// Bridge notifies once a request's response has won the data lane: it
// feeds the result back into the LLC's own miss-handling path, which in
// turn calls llcResponder.DeliverResponse for every merged target.
type bridgeDone struct {
	sim *Simulation
}

func (d *bridgeDone) DeliverResponse(req *memreq.Request, now int64) {
	d.sim.LLC.HandleResponse(req)
}

// meteredBackend wraps dram.MemoryController as a bus.MemoryBackend,
// additionally feeding the interference manager's per-bank access counter
// and DRAM service latency breakdown, and emitting a DRAM trace row per
// spec.md section 6, without internal/dram needing to know either
// collaborator exists.
type meteredBackend struct {
	ctrl *dram.MemoryController
	sim  *Simulation
}

func (m *meteredBackend) InsertRequest(req *memreq.Request, now int64) error {
	return m.ctrl.InsertRequest(req, now)
}

func (m *meteredBackend) HasMoreRequests() bool { return m.ctrl.HasMoreRequests() }

func (m *meteredBackend) NextRequest() *memreq.Request { return m.ctrl.NextRequest() }

func (m *meteredBackend) Service(now int64, req *memreq.Request) (int64, dram.Outcome, error) {
	lat, outcome, err := m.ctrl.Service(now, req)
	if err != nil {
		return lat, outcome, err
	}
	bank := dram.BankID(req.PAddr, uint(m.sim.Cfg.DDR2.PageShiftBits), m.sim.Cfg.DDR2.NumBanks)
	m.sim.Interference.AddBankAccess(bank)
	m.sim.Interference.AddLatency(memreq.LatMemoryBusService, req, lat)
	if m.sim.DRAMTrace != nil {
		_ = m.sim.DRAMTrace.WriteAccess(req.PAddr, bank, trace.DRAMResult(req.DRAMResult), req.OriginTick, req.OldAddr, req.SeqNum, req.Cmd.String())
	}
	return lat, outcome, err
}

// busClockTicks reinterprets cfg.BusClockMHz directly as a tick period,
// matching the convention internal/dram.Timing already documents ("all
// timing parameters expressed directly in ticks"): deriving a tick period
// from an actual MHz figure requires knowing the core clock it is relative
// to, which is an external collaborator's (config loader's) concern per
// spec.md section 1, not this package's.
func busClockTicks(cfg config.Config) int64 {
	if cfg.BusClockMHz <= 0 {
		return 1
	}
	return int64(cfg.BusClockMHz)
}

func cyclesPerSlot(cfg config.Config) int64 {
	if cfg.BusCyclesPerSlot <= 0 {
		return 1
	}
	return int64(cfg.BusCyclesPerSlot)
}

func busPolicyFromName(name string) bus.Policy {
	switch name {
	case "nfq":
		return bus.PolicyNFQ
	case "time-multiplexed":
		return bus.PolicyTimeMultiplexed
	default:
		return bus.PolicyOldestFirst
	}
}

func dramPolicyFromName(name string) dram.SchedulingPolicy {
	switch name {
	case "page-hit-first":
		return dram.PolicyPageHitFirst
	default:
		return dram.PolicyFCFS
	}
}

func injectionPolicyFromName(name string) interference.InjectionPolicy {
	switch name {
	case "full-random":
		return interference.InjectionFullRandom
	case "sequential-insert":
		return interference.InjectionSequentialInsert
	default:
		return interference.InjectionFixedCounter
	}
}

func dramTiming(t config.DDR2Timing) dram.Timing {
	return dram.Timing{
		NumBanks:                t.NumBanks,
		PageShiftBits:           uint(t.PageShiftBits),
		MaxActiveBanks:          t.MaxActiveBanks,
		RASLatency:              int64(t.RASLatency),
		CASLatency:              int64(t.CASLatency),
		PrechargeLatency:        int64(t.PrechargeLatency),
		MinActivateToPrecharge:  int64(t.MinActivateToPrecharge),
		WriteLatency:            int64(t.WriteLatency),
		WriteRecoveryTime:       int64(t.WriteRecoveryTime),
		InternalReadToPrecharge: int64(t.InternalReadToPrecharge),
		InternalWriteToRead:     int64(t.InternalWriteToRead),
		InternalRowToRow:        int64(t.InternalRowToRow),
		ReadToWriteTurnaround:   int64(t.ReadToWriteTurnaround),
		DataTime:                int64(t.DataTime),
		StaticLatency:           int64(t.StaticMemoryLatencyTicks),
	}
}

// evenWayQuotas splits totalWays evenly across numCPUs cores, the
// remainder going to the lowest-numbered cores, as the initial static LLC
// partition before any PolicyModule sample has run.
func evenWayQuotas(numCPUs, totalWays int) map[int]int {
	if numCPUs <= 0 || totalWays <= 0 {
		return nil
	}
	quotas := make(map[int]int, numCPUs)
	base := totalWays / numCPUs
	rem := totalWays % numCPUs
	for i := 0; i < numCPUs; i++ {
		q := base
		if i < rem {
			q++
		}
		quotas[i] = q
	}
	return quotas
}
