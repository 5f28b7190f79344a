package interference

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magnusjahre/MM5-sub002/internal/memreq"
)

func TestAdaptiveMHA_LowUtilizationIncreasesAllMSHRsUpToMax(t *testing.T) {
	a := NewAdaptiveMHA(2, 4, 2, 1, 3, 0.3, 0.8)

	m := PerformanceMeasurement{
		Cores:          []CoreMeasurement{{CPUID: 0}, {CPUID: 1}},
		BusUtilization: 0.1,
	}

	d := a.Evaluate(m)
	require.Equal(t, 3, d.MSHRQuotas[0])
	require.Equal(t, 3, d.MSHRQuotas[1])

	// already at max, a further low-utilization sample must not overshoot
	d = a.Evaluate(m)
	require.Equal(t, 3, d.MSHRQuotas[0])
	require.Equal(t, 3, d.MSHRQuotas[1])
}

func TestAdaptiveMHA_HighUtilizationDecreasesWorstInterfererDownToMin(t *testing.T) {
	a := NewAdaptiveMHA(2, 4, 2, 1, 4, 0.3, 0.8)

	m := PerformanceMeasurement{
		Cores: []CoreMeasurement{
			{CPUID: 0, Interference: sumBreakdown(5)},
			{CPUID: 1, Interference: sumBreakdown(50)},
		},
		BusUtilization: 0.9,
	}

	d := a.Evaluate(m)
	require.Equal(t, 2, d.MSHRQuotas[0], "core 0 is not the worst interferer, its MSHR count is untouched")
	require.Equal(t, 1, d.MSHRQuotas[1], "core 1 causes the most interference and gives one MSHR back")

	// once at MinMSHRs, further high-utilization samples must not go below it
	d = a.Evaluate(m)
	require.Equal(t, 1, d.MSHRQuotas[1])
}

func TestAdaptiveMHA_MidRangeUtilizationLeavesMSHRsUnchanged(t *testing.T) {
	a := NewAdaptiveMHA(1, 4, 2, 1, 4, 0.3, 0.8)

	m := PerformanceMeasurement{
		Cores:          []CoreMeasurement{{CPUID: 0}},
		BusUtilization: 0.5,
	}

	d := a.Evaluate(m)
	require.Equal(t, 2, d.MSHRQuotas[0])
}

func TestAdaptiveMHA_WayQuotasFavorHigherMissRate(t *testing.T) {
	a := NewAdaptiveMHA(2, 4, 2, 1, 4, 0.3, 0.8)

	m := PerformanceMeasurement{
		Cores: []CoreMeasurement{
			{CPUID: 0, LLCMissRate: 0.8},
			{CPUID: 1, LLCMissRate: 0.2},
		},
		BusUtilization: 0.5,
	}

	d := a.Evaluate(m)
	require.Equal(t, 3, d.WayQuotas[0])
	require.Equal(t, 1, d.WayQuotas[1])
}

func TestAdaptiveMHA_WayQuotasSplitEvenlyWithoutRemainder(t *testing.T) {
	a := NewAdaptiveMHA(3, 3, 2, 1, 4, 0.3, 0.8)

	m := PerformanceMeasurement{
		Cores: []CoreMeasurement{
			{CPUID: 0, LLCMissRate: 0.5},
			{CPUID: 1, LLCMissRate: 0.5},
			{CPUID: 2, LLCMissRate: 0.5},
		},
		BusUtilization: 0.5,
	}

	d := a.Evaluate(m)
	require.Equal(t, 1, d.WayQuotas[0])
	require.Equal(t, 1, d.WayQuotas[1])
	require.Equal(t, 1, d.WayQuotas[2])
}

func TestAdaptiveMHA_WayQuotasBreakTiesTowardLowerCPUID(t *testing.T) {
	a := NewAdaptiveMHA(2, 5, 2, 1, 4, 0.3, 0.8)

	m := PerformanceMeasurement{
		Cores: []CoreMeasurement{
			{CPUID: 0, LLCMissRate: 0.5},
			{CPUID: 1, LLCMissRate: 0.5},
		},
		BusUtilization: 0.5,
	}

	d := a.Evaluate(m)
	require.Equal(t, 3, d.WayQuotas[0])
	require.Equal(t, 2, d.WayQuotas[1])
}

func TestAdaptiveMHA_NoCoresYieldsNilWayQuotas(t *testing.T) {
	a := NewAdaptiveMHA(0, 4, 2, 1, 4, 0.3, 0.8)

	d := a.Evaluate(PerformanceMeasurement{BusUtilization: 0.5})
	require.Nil(t, d.WayQuotas)
}

func sumBreakdown(total int64) (b memreq.Breakdown) {
	b[0] = total
	return b
}
