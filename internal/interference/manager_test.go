package interference

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magnusjahre/MM5-sub002/internal/memreq"
)

func TestManager_AddLatencyAccumulatesPerCore(t *testing.T) {
	m := NewManager(2, 100, 0, 4)
	req := &memreq.Request{TrueRequester: 1}

	m.AddLatency(memreq.LatCacheCapacity, req, 10)
	m.AddLatency(memreq.LatMemoryBusService, req, 5)

	snap := m.BuildMeasurement()
	require.Equal(t, int64(15), snap.Cores[1].SharedLatency.Sum())
	require.Equal(t, int64(0), snap.Cores[0].SharedLatency.Sum())
}

func TestManager_AddInterferenceAccumulatesPerCore(t *testing.T) {
	m := NewManager(2, 100, 0, 4)
	req := &memreq.Request{TrueRequester: 0}

	m.AddInterference(memreq.LatInterconnectDelivery, req, 7)

	snap := m.BuildMeasurement()
	require.Equal(t, int64(7), snap.Cores[0].Interference.Sum())
}

func TestManager_OutOfRangeRequesterIsIgnored(t *testing.T) {
	m := NewManager(2, 100, 0, 4)
	req := &memreq.Request{TrueRequester: 5}

	require.NotPanics(t, func() {
		m.AddLatency(memreq.LatCacheCapacity, req, 10)
		m.AddCacheResult(req, false, true, true, false)
	})
}

func TestManager_AddCacheResultTracksMissRateAndTriggersSample(t *testing.T) {
	m := NewManager(1, 2, 0, 1)

	var samples []PerformanceMeasurement
	m.OnSample = func(pm PerformanceMeasurement) {
		samples = append(samples, pm)
	}

	req := &memreq.Request{TrueRequester: 0}
	m.AddCacheResult(req, false, true, true, false) // miss
	require.Empty(t, samples, "sample should not fire before samplesPerWindow requests")

	m.AddCacheResult(req, true, true, true, false) // hit, triggers sample at 2 requests
	require.Len(t, samples, 1)
	require.InDelta(t, 0.5, samples[0].Cores[0].LLCMissRate, 1e-9)
}

func TestManager_UnsampledCacheResultDoesNotAffectMissRate(t *testing.T) {
	m := NewManager(1, 10, 0, 1)
	req := &memreq.Request{TrueRequester: 0}

	m.AddCacheResult(req, false, false, false, false)

	snap := m.BuildMeasurement()
	require.Equal(t, 0.0, snap.Cores[0].LLCMissRate)
}

func TestManager_PeriodicResetClearsAccumulators(t *testing.T) {
	m := NewManager(1, 1, 2, 1)
	req := &memreq.Request{TrueRequester: 0}

	m.AddLatency(memreq.LatCacheCapacity, req, 10)
	m.AddCacheResult(req, false, true, true, false) // sample 1, no reset yet (resetEveryR=2)

	snapAfterFirst := m.BuildMeasurement()
	require.Equal(t, int64(10), snapAfterFirst.Cores[0].SharedLatency.Sum())

	m.AddLatency(memreq.LatCacheCapacity, req, 20)
	m.AddCacheResult(req, false, true, true, false) // sample 2, triggers reset

	snapAfterReset := m.BuildMeasurement()
	require.Equal(t, int64(0), snapAfterReset.Cores[0].SharedLatency.Sum())
}

func TestManager_BusUtilizationAndBankAccess(t *testing.T) {
	m := NewManager(1, 100, 0, 2)

	m.AddBusUtilization(true)
	m.AddBusUtilization(true)
	m.AddBusUtilization(false)
	m.AddBusUtilization(false)

	m.AddBankAccess(0)
	m.AddBankAccess(0)
	m.AddBankAccess(1)
	m.AddBankAccess(7) // out of range, ignored

	snap := m.BuildMeasurement()
	require.InDelta(t, 0.5, snap.BusUtilization, 1e-9)
	require.Equal(t, []int64{2, 1}, snap.BankAccessCounts)
}

func TestManager_CommittedInstructionsAndStallCycles(t *testing.T) {
	m := NewManager(1, 100, 0, 1)

	m.AddCommittedInstructions(0, 100)
	m.AddCommittedInstructions(0, 50)
	m.AddStallCycles(0, 30)
	m.SetMLPEstimate(0, 1.5)
	m.SetBWEstimate(0, 2.5)
	m.AddResponseWhileStalled(0)

	snap := m.BuildMeasurement()
	require.Equal(t, int64(150), snap.Cores[0].CommittedInstructions)
	require.Equal(t, int64(30), snap.Cores[0].SharedStallCycles)
	require.Equal(t, 1.5, snap.Cores[0].MLPEstimate)
	require.Equal(t, 2.5, snap.Cores[0].BWEstimate)
	require.Equal(t, int64(1), snap.Cores[0].ResponsesWhileStalled)
}
