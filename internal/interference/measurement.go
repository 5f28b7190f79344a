package interference

import "github.com/magnusjahre/MM5-sub002/internal/memreq"

// CoreMeasurement is one core's slice of a PerformanceMeasurement
// snapshot, per spec.md section 4.10.
type CoreMeasurement struct {
	CPUID int

	CommittedInstructions int64
	SharedStallCycles     int64

	// MLPEstimate/BWEstimate/ResponsesWhileStalled are the private
	// cache's memory-level-parallelism, bandwidth, and
	// responses-while-stalled estimates named in spec.md section 4.10.
	MLPEstimate           float64
	BWEstimate            float64
	ResponsesWhileStalled int64

	SharedLatency memreq.Breakdown
	Interference  memreq.Breakdown
	MedianLatency float64

	LLCMissRate float64

	// SharedMisses/PrivateMisses are this window's sampled shared-LLC and
	// shadow-tag (alone-mode) miss counts, the two inputs to
	// InterferenceProbability per spec.md section 4.7.
	SharedMisses  int64
	PrivateMisses int64
	// InterferenceProbability is `(SharedMisses-PrivateMisses)/SharedMisses`
	// in fixed point, per spec.md section 4.7 and section 8 property 7.
	InterferenceProbability Probability
	// InterferenceMisses counts sampled accesses tagged as interference
	// misses this window, whether by the natural shared-miss/shadow-hit
	// coincidence or by the configured InjectionPolicy.
	InterferenceMisses int64
}

// PerformanceMeasurement is the periodic snapshot the policy module
// receives, per spec.md section 4.10.
type PerformanceMeasurement struct {
	Cores            []CoreMeasurement
	BusUtilization   float64
	BankAccessCounts []int64
}
