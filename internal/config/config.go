// Package config holds the (unparsed) parameter tree consumed by the
// simulator core. Reading configuration from a file or flag set is an
// external collaborator's job per spec.md section 1; this package only
// defines the shape and validates it.
package config

import (
	"fmt"

	"github.com/magnusjahre/MM5-sub002/internal/simfault"
)

// Pipeline holds the per-thread front/back-end widths and queue sizes.
type Pipeline struct {
	FetchWidth   int
	DecodeWidth  int
	DispatchWidth int
	IssueWidth   int
	CommitWidth  int

	IFQSize int
	IQSize  int
	ROBSize int
	LSQSize int

	// PerThreadIQCap, when non-zero, caps IQ occupancy per thread even
	// though the physical queue is shared.
	PerThreadIQCap int
	PerThreadROBCap int
}

// FUClass describes one functional-unit class in the pool.
type FUClass struct {
	Name         string
	Count        int
	OpLatency    int
	IssueLatency int
	// Opclasses this unit class can service.
	Opclasses []string
}

// BranchPredictor holds the hybrid predictor + BTB + RAS topology.
type BranchPredictor struct {
	GlobalHistoryBits int
	LocalHistoryBits  int
	IndexBits         int
	XorNotConcat      bool

	BTBSets  int
	BTBWays  int
	RASDepth int

	ConfidenceWidth int
}

// CacheGeometry describes one level of cache.
type CacheGeometry struct {
	Name           string
	SizeBytes      int
	Associativity  int
	LineSizeBytes  int
	MSHRCount      int
	TargetsPerMSHR int
	WBBufferSize   int
	HitLatency     int
}

// DDR2Timing holds the memory-channel and bank timing parameters, all in
// bus cycles unless noted. Names follow spec.md section 6 and the original
// SimpleMemBank parameter set.
type DDR2Timing struct {
	NumBanks        int
	PageShiftBits   int // log2(page size in bytes)
	MaxActiveBanks  int
	BusFrequencyMHz int

	RASLatency               int
	CASLatency               int
	PrechargeLatency         int
	MinActivateToPrecharge   int
	WriteLatency             int
	WriteRecoveryTime        int
	InternalReadToPrecharge  int
	InternalWriteToRead      int
	InternalRowToRow         int
	ReadToWriteTurnaround    int
	DataTime                 int
	StaticMemoryLatencyTicks int // 0 disables the static-latency override
}

// Sampling controls interference-manager sampling windows.
type Sampling struct {
	SamplesPerWindow int // S in spec.md section 4.10
	ResetEveryR      int // 0 disables periodic reset
}

// Config is the full parameter tree for one simulation run.
type Config struct {
	NumCPUs        int
	ThreadsPerCPU  int
	Pipeline       Pipeline
	FUClasses      []FUClass
	BranchPred     BranchPredictor
	L1I            CacheGeometry
	L1D            CacheGeometry
	LLC            CacheGeometry
	LLCWays        int // total LLC ways, for static partitioning quotas
	// ShadowLeaderSets bounds cache.NewShadowTagArray's sampled-set count
	// for the LLC's per-core alone-mode replay (spec.md section 4.7).
	ShadowLeaderSets int
	BusWidthBytes    int
	BusClockMHz    int
	// BusArbitrationPolicy selects internal/bus's arbitration scheme: one of
	// "oldest-first" (default), "nfq", "time-multiplexed".
	BusArbitrationPolicy string
	// BusCyclesPerSlot is the NFQ quantum internal/bus.NewLane consumes;
	// ignored by the other two policies.
	BusCyclesPerSlot int
	MemChannels      int
	DDR2             DDR2Timing
	// DRAMSchedulingPolicy selects internal/dram's request ordering: one of
	// "fcfs" (default), "page-hit-first".
	DRAMSchedulingPolicy string
	// InterferenceInjectionPolicy selects internal/interference's
	// probabilistic interference-miss injection policy (spec.md section
	// 4.7): one of "fixed-counter" (default), "full-random",
	// "sequential-insert".
	InterferenceInjectionPolicy string
	Sampling                    Sampling
	PolicyName                  string
	EndTick                     int64
}

// Validate checks the closed set of "must be positive"/"must be power of
// two" constraints named in spec.md section 6, returning
// simfault.ErrConfigInvalid wrapped with the offending field.
func (c *Config) Validate() error {
	positive := map[string]int{
		"NumCPUs":             c.NumCPUs,
		"ThreadsPerCPU":       c.ThreadsPerCPU,
		"Pipeline.FetchWidth": c.Pipeline.FetchWidth,
		"Pipeline.IssueWidth": c.Pipeline.IssueWidth,
		"Pipeline.CommitWidth": c.Pipeline.CommitWidth,
		"Pipeline.ROBSize":    c.Pipeline.ROBSize,
		"Pipeline.IQSize":     c.Pipeline.IQSize,
		"Pipeline.LSQSize":    c.Pipeline.LSQSize,
		"L1I.SizeBytes":       c.L1I.SizeBytes,
		"L1D.SizeBytes":       c.L1D.SizeBytes,
		"LLC.SizeBytes":       c.LLC.SizeBytes,
		"BusWidthBytes":       c.BusWidthBytes,
		"MemChannels":         c.MemChannels,
		"DDR2.NumBanks":       c.DDR2.NumBanks,
		"EndTick":             int(c.EndTick),
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", simfault.ErrConfigInvalid, name, v)
		}
	}

	pow2 := map[string]int{
		"L1I.Associativity": c.L1I.Associativity,
		"L1D.Associativity": c.L1D.Associativity,
		"LLC.Associativity": c.LLC.Associativity,
		"L1I.LineSizeBytes": c.L1I.LineSizeBytes,
		"L1D.LineSizeBytes": c.L1D.LineSizeBytes,
		"LLC.LineSizeBytes": c.LLC.LineSizeBytes,
		"DDR2.NumBanks":     c.DDR2.NumBanks,
	}
	for name, v := range pow2 {
		if v <= 0 || v&(v-1) != 0 {
			return fmt.Errorf("%w: %s must be a power of two, got %d", simfault.ErrConfigInvalid, name, v)
		}
	}

	if c.Pipeline.DispatchWidth <= 0 {
		return fmt.Errorf("%w: Pipeline.DispatchWidth must be positive", simfault.ErrConfigInvalid)
	}
	if c.DDR2.MaxActiveBanks <= 0 || c.DDR2.MaxActiveBanks > c.DDR2.NumBanks {
		return fmt.Errorf("%w: DDR2.MaxActiveBanks must be in [1, NumBanks]", simfault.ErrConfigInvalid)
	}
	return nil
}
