// Package interference implements the process-wide interference-manager
// service and pluggable miss-bandwidth policy of spec.md section 4.10.
// Grounded on
// _examples/original_source/m5/mem/accounting/interference_manager.{hh,cc}
// and mem/cache/miss/adaptive_mha.{hh,cc}, trimmed to the accumulators and
// policy contract the spec actually names (per-core latency/interference
// breakdowns, committed instructions, stall cycles, LLC miss-rate, bus
// utilization, per-bank access counts) rather than the original's full
// statistics-file surface.
package interference

import (
	"math/rand"

	"github.com/magnusjahre/MM5-sub002/internal/memreq"
	"github.com/magnusjahre/MM5-sub002/internal/metrics"
)

// perCore holds one core's running accumulators between samples.
type perCore struct {
	sharedLatency      memreq.Breakdown
	interference       memreq.Breakdown
	latencyRequests    [memreq.NumLatencyKinds]int
	interferenceReqs   [memreq.NumLatencyKinds]int
	committedInstructions int64
	sharedStallCycles  int64
	mlpEstimate        float64
	bwEstimate         float64
	responsesWhileStalled int64
	// llcMisses/llcAccesses are the real (shared) LLC's sampled outcomes;
	// shadowMisses is the same sample set's shadow-tag (alone-mode)
	// outcome, the two series spec.md section 4.7's interference
	// probability is computed from.
	llcMisses          int64
	llcAccesses        int64
	shadowMisses       int64
	interferenceMisses int64
	requestsSinceSample int

	latencyQuantile *metrics.Quantile
}

func newPerCore() *perCore {
	return &perCore{latencyQuantile: metrics.NewQuantile(0.5)}
}

// Manager accumulates per-core, per-latency-kind shared latency and
// interference, triggers a sample every S requests from any core (spec.md
// section 4.10's "each sample S requests per core"), and periodically
// resets every R samples when configured.
type Manager struct {
	cores []*perCore

	samplesPerWindow int
	resetEveryR      int
	samplesTaken     int

	busBusyTicks int64
	busTotalTicks int64
	bankAccesses []int64

	// InjectionPolicy selects how probabilistic interference-miss
	// injection picks accesses, per spec.md section 4.7. Zero value
	// (InjectionFixedCounter) is the default.
	InjectionPolicy InjectionPolicy
	inject          []injectState
	rng             *rand.Rand

	// OnSample, if set, is called with the measurement built at the end of
	// every completed sample window, letting a PolicyModule react without
	// this package depending on one concretely.
	OnSample func(PerformanceMeasurement)
}

// NewManager allocates a manager for numCores cores, sampling every
// samplesPerWindow requests and resetting accumulators every resetEveryR
// windows (0 disables periodic reset), with numBanks DRAM banks tracked
// for the per-bank access count in the measurement snapshot.
func NewManager(numCores, samplesPerWindow, resetEveryR, numBanks int) *Manager {
	m := &Manager{
		samplesPerWindow: samplesPerWindow,
		resetEveryR:      resetEveryR,
		bankAccesses:     make([]int64, numBanks),
		inject:           injectionPolicyState(numCores),
		rng:              newRand(),
	}
	for i := 0; i < numCores; i++ {
		m.cores = append(m.cores, newPerCore())
	}
	return m
}

func (m *Manager) core(id int) *perCore {
	if id < 0 || id >= len(m.cores) {
		return nil
	}
	return m.cores[id]
}

// AddLatency accumulates ticks of shared latency of kind for req's
// requester, per spec.md section 4.10's addLatency(kind, req, ticks).
func (m *Manager) AddLatency(kind memreq.LatencyKind, req *memreq.Request, ticks int64) {
	c := m.core(req.TrueRequester)
	if c == nil {
		return
	}
	c.sharedLatency.Add(kind, ticks)
	c.latencyRequests[kind]++
	c.latencyQuantile.Update(float64(ticks))
}

// AddInterference accumulates extraTicks of estimated interference of
// kind for req's requester, per spec.md section 4.10's addInterference.
func (m *Manager) AddInterference(kind memreq.LatencyKind, req *memreq.Request, extraTicks int64) {
	c := m.core(req.TrueRequester)
	if c == nil {
		return
	}
	c.interference.Add(kind, extraTicks)
	c.interferenceReqs[kind]++
}

// AddCacheResult is the cache.Cache.InterferenceHook-shaped callback: it
// folds the real LLC outcome and its shadow-tag replay into the
// interference-probability accumulators, tags the request as an
// "interference miss" (spec.md section 4.7) when the shared access misses
// but its shadow replay hits — or when the configured InjectionPolicy
// probabilistically elects to — and triggers a sample check, mirroring
// InterferenceManager::addCacheResult + the per-request sample-counter
// increment in the original.
func (m *Manager) AddCacheResult(req *memreq.Request, sharedHit, shadowHit, sampled, evictedDirty bool) {
	cpuID := req.TrueRequester
	c := m.core(cpuID)
	if c == nil {
		return
	}
	if sampled {
		c.llcAccesses++
		sharedMiss := !sharedHit
		if sharedMiss {
			c.llcMisses++
		}
		if !shadowHit {
			c.shadowMisses++
		}
		natural := sharedMiss && shadowHit
		if natural || m.shouldInject(cpuID) {
			c.interferenceMisses++
			req.Flags |= memreq.FlagInterferenceMiss
		}
	}
	c.requestsSinceSample++
	m.checkSample(cpuID)
}

// AddCommittedInstructions tallies committed instructions for cpuID since
// the last sample, for the per-core IPC the policy needs.
func (m *Manager) AddCommittedInstructions(cpuID int, n int64) {
	if c := m.core(cpuID); c != nil {
		c.committedInstructions += n
	}
}

// AddStallCycles tallies shared-memory-induced stall cycles for cpuID.
func (m *Manager) AddStallCycles(cpuID int, cycles int64) {
	if c := m.core(cpuID); c != nil {
		c.sharedStallCycles += cycles
	}
}

// SetMLPEstimate/SetBWEstimate record the private cache's latest
// memory-level-parallelism and bandwidth estimates for cpuID, per
// spec.md section 4.10's "MLP/BW/responses-while-stalled estimates from
// the private cache".
func (m *Manager) SetMLPEstimate(cpuID int, mlp float64) {
	if c := m.core(cpuID); c != nil {
		c.mlpEstimate = mlp
	}
}

func (m *Manager) SetBWEstimate(cpuID int, bw float64) {
	if c := m.core(cpuID); c != nil {
		c.bwEstimate = bw
	}
}

func (m *Manager) AddResponseWhileStalled(cpuID int) {
	if c := m.core(cpuID); c != nil {
		c.responsesWhileStalled++
	}
}

// AddBusUtilization folds in one bus cycle's busy/idle outcome.
func (m *Manager) AddBusUtilization(busy bool) {
	m.busTotalTicks++
	if busy {
		m.busBusyTicks++
	}
}

// AddBankAccess tallies one access to DRAM bank.
func (m *Manager) AddBankAccess(bank int) {
	if bank >= 0 && bank < len(m.bankAccesses) {
		m.bankAccesses[bank]++
	}
}

// checkSample triggers a sample window close once any core has issued
// samplesPerWindow requests since the last sample, matching the original's
// per-core request counter trigger.
func (m *Manager) checkSample(cpuID int) {
	c := m.core(cpuID)
	if c == nil || m.samplesPerWindow <= 0 || c.requestsSinceSample < m.samplesPerWindow {
		return
	}
	c.requestsSinceSample = 0
	m.samplesTaken++

	snapshot := m.BuildMeasurement()
	m.armInjection(snapshot)
	if m.OnSample != nil {
		m.OnSample(snapshot)
	}

	if m.resetEveryR > 0 && m.samplesTaken%m.resetEveryR == 0 {
		m.Reset()
	}
}

// Reset drops every accumulator, per spec.md section 4.10's "optional
// reset every R samples".
func (m *Manager) Reset() {
	for i := range m.cores {
		m.cores[i] = newPerCore()
	}
	m.busBusyTicks = 0
	m.busTotalTicks = 0
	for i := range m.bankAccesses {
		m.bankAccesses[i] = 0
	}
	for i := range m.inject {
		m.inject[i] = injectState{}
	}
}

// BuildMeasurement assembles the snapshot spec.md section 4.10 says the
// policy module periodically receives.
func (m *Manager) BuildMeasurement() PerformanceMeasurement {
	pm := PerformanceMeasurement{
		Cores:           make([]CoreMeasurement, len(m.cores)),
		BusUtilization:  m.busUtilization(),
		BankAccessCounts: append([]int64(nil), m.bankAccesses...),
	}
	for i, c := range m.cores {
		pm.Cores[i] = CoreMeasurement{
			CPUID:                   i,
			CommittedInstructions:   c.committedInstructions,
			SharedStallCycles:       c.sharedStallCycles,
			MLPEstimate:             c.mlpEstimate,
			BWEstimate:              c.bwEstimate,
			ResponsesWhileStalled:   c.responsesWhileStalled,
			SharedLatency:           c.sharedLatency,
			Interference:            c.interference,
			LLCMissRate:             missRate(c.llcMisses, c.llcAccesses),
			MedianLatency:           c.latencyQuantile.Value(),
			SharedMisses:            c.llcMisses,
			PrivateMisses:           c.shadowMisses,
			InterferenceProbability: computeProbability(c.llcMisses, c.shadowMisses),
			InterferenceMisses:      c.interferenceMisses,
		}
	}
	return pm
}

func (m *Manager) busUtilization() float64 {
	if m.busTotalTicks == 0 {
		return 0
	}
	return float64(m.busBusyTicks) / float64(m.busTotalTicks)
}

func missRate(misses, accesses int64) float64 {
	if accesses == 0 {
		return 0
	}
	return float64(misses) / float64(accesses)
}
