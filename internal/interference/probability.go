package interference

import "math/rand"

// ProbabilityFracBits fixes the fixed-point width spec.md section 4.7
// leaves "configurable": Q16, wide enough that the one-LSB tolerance of
// spec.md section 8 property 7 is far below any observable sampling
// noise.
const ProbabilityFracBits = 16

const probabilityScale = 1 << ProbabilityFracBits

// Probability is the fixed-point interference-probability value of
// spec.md section 4.7, scaled by 1<<ProbabilityFracBits.
type Probability int32

// ProbabilityMax is the saturated value (1.0).
const ProbabilityMax = Probability(probabilityScale)

// Float64 reports p as a float in [0,1].
func (p Probability) Float64() float64 { return float64(p) / float64(probabilityScale) }

// computeProbability implements spec.md section 8 property 7 exactly:
// sharedMisses == 0 saturates to the max (no shared misses means every
// private miss would have hit shared too, the degenerate "fully
// interfered" case); otherwise sharedMisses <= privateMisses floors to
// zero; else the ratio (shared-private)/shared.
func computeProbability(sharedMisses, privateMisses int64) Probability {
	if sharedMisses == 0 {
		return ProbabilityMax
	}
	if sharedMisses <= privateMisses {
		return 0
	}
	ratio := float64(sharedMisses-privateMisses) / float64(sharedMisses)
	return Probability(ratio * probabilityScale)
}

// InjectionPolicy selects how probabilistic interference-miss injection
// picks which shared accesses to tag, per spec.md section 4.7's
// "Interference-probability policy is one of {fixed-counter,
// full-random, sequential-insert}".
type InjectionPolicy int

const (
	// InjectionFixedCounter holds a fixed-point accumulator per
	// core, incremented by the current probability on every sampled
	// access and firing (then wrapping) once it reaches 1.0 — a
	// Bresenham-style deterministic approximation of the probability.
	InjectionFixedCounter InjectionPolicy = iota
	// InjectionFullRandom draws a uniform float and compares it against
	// the current probability.
	InjectionFullRandom
	// InjectionSequentialInsert seeds a per-core remaining-count at the
	// start of each sample window (probability * samplesPerWindow) and
	// fires for exactly that many of the window's first accesses.
	InjectionSequentialInsert
)

func injectionPolicyState(numCores int) []injectState {
	return make([]injectState, numCores)
}

// injectState is one core's running state for whichever InjectionPolicy
// is configured; only the fields the active policy uses are meaningful.
type injectState struct {
	accumulator Probability
	remaining   int
	probability Probability
}

// shouldInject decides, for one sampled access on cpuID, whether the
// configured injection policy marks it as an interference miss.
func (m *Manager) shouldInject(cpuID int) bool {
	if cpuID < 0 || cpuID >= len(m.inject) {
		return false
	}
	st := &m.inject[cpuID]
	switch m.InjectionPolicy {
	case InjectionFullRandom:
		return m.rng.Float64() < st.probability.Float64()
	case InjectionSequentialInsert:
		if st.remaining > 0 {
			st.remaining--
			return true
		}
		return false
	default: // InjectionFixedCounter
		st.accumulator += st.probability
		if st.accumulator >= probabilityScale {
			st.accumulator -= probabilityScale
			return true
		}
		return false
	}
}

// armInjection re-seeds per-core injection-policy state from a just-built
// measurement, called once per completed sample window.
func (m *Manager) armInjection(pm PerformanceMeasurement) {
	for i, cm := range pm.Cores {
		if i >= len(m.inject) {
			break
		}
		m.inject[i].probability = cm.InterferenceProbability
		if m.InjectionPolicy == InjectionSequentialInsert {
			m.inject[i].remaining = int(cm.InterferenceProbability.Float64() * float64(m.samplesPerWindow))
		}
	}
}

func newRand() *rand.Rand { return rand.New(rand.NewSource(1)) }
