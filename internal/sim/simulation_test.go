package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magnusjahre/MM5-sub002/internal/config"
	"github.com/magnusjahre/MM5-sub002/internal/cpu"
	"github.com/magnusjahre/MM5-sub002/internal/logx"
	"github.com/magnusjahre/MM5-sub002/internal/workload"
)

// testConfig is a small single-core configuration sized for fast test
// runs: wide enough (width 4) to match scenario E1's expected-cycle
// formula, with a minimal LLC/bus/DRAM so New can fully assemble.
func testConfig(numCPUs int, endTick int64) config.Config {
	return config.Config{
		NumCPUs:       numCPUs,
		ThreadsPerCPU: 1,
		Pipeline: config.Pipeline{
			FetchWidth: 4, DecodeWidth: 4, DispatchWidth: 4, IssueWidth: 4, CommitWidth: 4,
			IFQSize: 16, IQSize: 32, ROBSize: 64, LSQSize: 16,
		},
		FUClasses: []config.FUClass{
			{Name: "alu", Count: 4, OpLatency: 1, IssueLatency: 1, Opclasses: []string{"nop", "alu"}},
		},
		BranchPred: config.BranchPredictor{
			GlobalHistoryBits: 4, LocalHistoryBits: 4, IndexBits: 6,
			BTBSets: 16, BTBWays: 2, RASDepth: 4, ConfidenceWidth: 2,
		},
		L1I:              config.CacheGeometry{Name: "L1I", SizeBytes: 4096, Associativity: 2, LineSizeBytes: 64, MSHRCount: 4, TargetsPerMSHR: 4, WBBufferSize: 4, HitLatency: 1},
		L1D:              config.CacheGeometry{Name: "L1D", SizeBytes: 4096, Associativity: 2, LineSizeBytes: 64, MSHRCount: 4, TargetsPerMSHR: 4, WBBufferSize: 4, HitLatency: 1},
		LLC:              config.CacheGeometry{Name: "LLC", SizeBytes: 16384, Associativity: 4, LineSizeBytes: 64, MSHRCount: 8, TargetsPerMSHR: 4, WBBufferSize: 8, HitLatency: 6},
		LLCWays:          4,
		ShadowLeaderSets: 4,
		BusWidthBytes:    8,
		BusClockMHz:      1,
		MemChannels:      1,
		DDR2: config.DDR2Timing{
			NumBanks: 4, PageShiftBits: 10, MaxActiveBanks: 2,
			RASLatency: 4, CASLatency: 3, PrechargeLatency: 3, MinActivateToPrecharge: 6,
			WriteLatency: 3, WriteRecoveryTime: 3, InternalReadToPrecharge: 2,
			InternalWriteToRead: 2, InternalRowToRow: 2, ReadToWriteTurnaround: 1, DataTime: 2,
		},
		Sampling: config.Sampling{SamplesPerWindow: 1000},
		EndTick:  endTick,
	}
}

// TestSimulation_NopWorkloadCommitsExactly1024 exercises scenario E1: a
// single core retiring 1024 independent NOPs at width 4 should commit all
// of them well before the configured end tick, with no stalls from a
// memory hierarchy a NOP stream never touches.
func TestSimulation_NopWorkloadCommitsExactly1024(t *testing.T) {
	cfg := testConfig(1, 100000)
	sources := []cpu.InstructionSource{workload.NewFiniteNopSource(1024)}

	s, err := New(cfg, sources, nil, logx.NewNoop())
	require.NoError(t, err)

	s.RunToEndTick()

	committed := s.CommittedInstructions()
	require.Len(t, committed, 1)
	require.Equal(t, int64(1024), committed[0])
}

// TestSimulation_TwoCoresRunIndependently checks that a second core with
// its own NOP stream commits its own full count without interference from
// the first core sharing the same LLC/bus/DRAM path.
func TestSimulation_TwoCoresRunIndependently(t *testing.T) {
	cfg := testConfig(2, 100000)
	sources := []cpu.InstructionSource{
		workload.NewFiniteNopSource(256),
		workload.NewFiniteNopSource(512),
	}

	s, err := New(cfg, sources, nil, logx.NewNoop())
	require.NoError(t, err)

	s.RunToEndTick()

	committed := s.CommittedInstructions()
	require.Len(t, committed, 2)
	require.Equal(t, int64(256), committed[0])
	require.Equal(t, int64(512), committed[1])
}

// TestSimulation_RejectsInstructionSourceCountMismatch checks the
// constructor-level argument validation independent of config.Validate.
func TestSimulation_RejectsInstructionSourceCountMismatch(t *testing.T) {
	cfg := testConfig(2, 1000)
	sources := []cpu.InstructionSource{workload.NewFiniteNopSource(1)}

	_, err := New(cfg, sources, nil, logx.NewNoop())
	require.Error(t, err)
}
