// Command mm5sim runs the chip-multiprocessor timing simulator core
// against a synthetic workload and reports committed-instruction counts
// per core, per spec.md section 6's exit-code contract: 0 on reaching the
// configured end tick, non-zero on a simulation-fatal error.
//
// Wiring a real binary loader, ISA decoder, or config file/flag format is
// explicitly out of scope (spec.md section 1's Non-goals); this entry
// point exists to exercise internal/sim end to end with the built-in NOP
// workload generator in internal/workload.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/magnusjahre/MM5-sub002/internal/config"
	"github.com/magnusjahre/MM5-sub002/internal/cpu"
	"github.com/magnusjahre/MM5-sub002/internal/interference"
	"github.com/magnusjahre/MM5-sub002/internal/logx"
	"github.com/magnusjahre/MM5-sub002/internal/sim"
	"github.com/magnusjahre/MM5-sub002/internal/workload"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("mm5sim", flag.ContinueOnError)
	numCPUs := fs.Int("cpus", 1, "number of cores")
	endTick := fs.Int64("end-tick", 4096, "tick to stop the simulation at")
	nops := fs.Uint64("nops", 1024, "NOP instructions per core (scenario E1 workload)")
	verbose := fs.Bool("v", false, "log at Info level instead of silently")
	adaptiveMHA := fs.Bool("adaptive-mha", false, "enable the built-in AdaptiveMHA LLC partitioning policy")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logx.Logger(logx.NewNoop())
	if *verbose {
		log = logx.NewDefault(os.Stderr, logx.LevelInfo)
	}

	cfg := defaultConfig(*numCPUs, *endTick)

	var policy interference.PolicyModule
	if *adaptiveMHA {
		policy = interference.NewAdaptiveMHA(cfg.NumCPUs, cfg.LLCWays, cfg.LLCWays/cfg.NumCPUs, 1, cfg.LLCWays, 0.1, 0.4)
	}

	sources := make([]cpu.InstructionSource, cfg.NumCPUs)
	for i := range sources {
		sources[i] = workload.NewFiniteNopSource(*nops)
	}

	s, err := sim.New(cfg, sources, policy, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mm5sim: %v\n", err)
		return 1
	}

	s.RunToEndTick()

	for i, n := range s.CommittedInstructions() {
		fmt.Printf("cpu%d: committed=%d\n", i, n)
	}
	return 0
}

// defaultConfig is a reasonably sized single-channel DDR2 configuration
// with a 4-wide pipeline and a two-level cache hierarchy (private L1I/L1D
// per core, shared LLC), adequate for
// running the built-in synthetic workloads end to end.
func defaultConfig(numCPUs int, endTick int64) config.Config {
	return config.Config{
		NumCPUs:       numCPUs,
		ThreadsPerCPU: 1,
		Pipeline: config.Pipeline{
			FetchWidth:    4,
			DecodeWidth:   4,
			DispatchWidth: 4,
			IssueWidth:    4,
			CommitWidth:   4,
			IFQSize:       16,
			IQSize:        32,
			ROBSize:       64,
			LSQSize:       32,
		},
		FUClasses: []config.FUClass{
			{Name: "alu", Count: 4, OpLatency: 1, IssueLatency: 1, Opclasses: []string{"nop", "alu"}},
			{Name: "mem", Count: 2, OpLatency: 1, IssueLatency: 1, Opclasses: []string{"load", "store"}},
		},
		BranchPred: config.BranchPredictor{
			GlobalHistoryBits: 12,
			LocalHistoryBits:  10,
			IndexBits:         12,
			BTBSets:           256,
			BTBWays:           4,
			RASDepth:          16,
			ConfidenceWidth:   2,
		},
		L1I: config.CacheGeometry{Name: "L1I", SizeBytes: 32 * 1024, Associativity: 2, LineSizeBytes: 64, MSHRCount: 4, TargetsPerMSHR: 4, WBBufferSize: 4, HitLatency: 1},
		L1D: config.CacheGeometry{Name: "L1D", SizeBytes: 32 * 1024, Associativity: 2, LineSizeBytes: 64, MSHRCount: 4, TargetsPerMSHR: 4, WBBufferSize: 4, HitLatency: 1},
		LLC: config.CacheGeometry{Name: "LLC", SizeBytes: 2 * 1024 * 1024, Associativity: 16, LineSizeBytes: 64, MSHRCount: 16, TargetsPerMSHR: 8, WBBufferSize: 16, HitLatency: 12},
		LLCWays:              16,
		ShadowLeaderSets:     32,
		BusWidthBytes:        8,
		BusClockMHz:          2,
		BusArbitrationPolicy: "oldest-first",
		BusCyclesPerSlot:     1,
		MemChannels:          1,
		DDR2: config.DDR2Timing{
			NumBanks:                 8,
			PageShiftBits:            12,
			MaxActiveBanks:           4,
			BusFrequencyMHz:          400,
			RASLatency:               20,
			CASLatency:               15,
			PrechargeLatency:         15,
			MinActivateToPrecharge:   40,
			WriteLatency:             15,
			WriteRecoveryTime:        15,
			InternalReadToPrecharge:  10,
			InternalWriteToRead:      10,
			InternalRowToRow:         10,
			ReadToWriteTurnaround:    5,
			DataTime:                 8,
			StaticMemoryLatencyTicks: 0,
		},
		DRAMSchedulingPolicy:        "page-hit-first",
		InterferenceInjectionPolicy: "fixed-counter",
		Sampling:                    config.Sampling{SamplesPerWindow: 10000, ResetEveryR: 0},
		PolicyName:           "adaptive-mha",
		EndTick:              endTick,
	}
}
