// Package metrics provides streaming statistics used by the interference
// manager and bus fairness accounting: a P² quantile estimator (ported
// from the teacher's own eventloop/psquare.go) for latency distributions,
// and simple running sums for per-requester byte accounting.
package metrics

import "math"

// Quantile implements the P² algorithm for streaming quantile estimation
// (Jain, R. and Chlamtac, I. 1985), giving O(1) per-observation updates and
// O(1) retrieval without storing the observation stream. This is exactly
// the algorithm the interference manager uses to summarize shared-mode
// per-component latency distributions for the periodic trace lines in
// spec.md section 4.10.
//
// Not safe for concurrent use; the simulator is single-threaded
// cooperative (spec.md section 5), so none is needed.
type Quantile struct {
	p  float64
	q  [5]float64
	n  [5]int
	np [5]float64
	dn [5]float64

	initialized bool
	count       int
	initBuffer  [5]float64
}

// NewQuantile creates an estimator for the given target quantile p, clamped
// to [0, 1].
func NewQuantile(p float64) *Quantile {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &Quantile{
		p:  p,
		dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

// Update folds in one observation.
func (ps *Quantile) Update(x float64) {
	ps.count++

	if ps.count <= 5 {
		ps.initBuffer[ps.count-1] = x
		if ps.count == 5 {
			ps.initialize()
		}
		return
	}

	var k int
	if x < ps.q[0] {
		ps.q[0] = x
		k = 0
	} else if x >= ps.q[4] {
		ps.q[4] = x
		k = 3
	} else {
		for k = 0; k < 4; k++ {
			if ps.q[k] <= x && x < ps.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		ps.n[i]++
	}

	for i := 0; i < 5; i++ {
		ps.np[i] += ps.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := ps.np[i] - float64(ps.n[i])
		if (d >= 1 && ps.n[i+1]-ps.n[i] > 1) || (d <= -1 && ps.n[i-1]-ps.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}

			qPrime := ps.parabolic(i, sign)

			if ps.q[i-1] < qPrime && qPrime < ps.q[i+1] {
				ps.q[i] = qPrime
			} else {
				ps.q[i] = ps.linear(i, sign)
			}
			ps.n[i] += sign
		}
	}
}

func (ps *Quantile) initialize() {
	for i := 1; i < 5; i++ {
		key := ps.initBuffer[i]
		j := i - 1
		for j >= 0 && ps.initBuffer[j] > key {
			ps.initBuffer[j+1] = ps.initBuffer[j]
			j--
		}
		ps.initBuffer[j+1] = key
	}

	for i := 0; i < 5; i++ {
		ps.q[i] = ps.initBuffer[i]
		ps.n[i] = i
	}

	ps.np = [5]float64{0, 2 * ps.p, 4 * ps.p, 2 + 2*ps.p, 4}
	ps.initialized = true
}

func (ps *Quantile) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(ps.n[i])
	niPrev := float64(ps.n[i-1])
	niNext := float64(ps.n[i+1])

	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (ps.q[i+1] - ps.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (ps.q[i] - ps.q[i-1]) / (ni - niPrev)

	return ps.q[i] + term1*(term2+term3)
}

func (ps *Quantile) linear(i, d int) float64 {
	if d == 1 {
		return ps.q[i] + (ps.q[i+1]-ps.q[i])/float64(ps.n[i+1]-ps.n[i])
	}
	return ps.q[i] - (ps.q[i]-ps.q[i-1])/float64(ps.n[i]-ps.n[i-1])
}

// Value returns the current estimated quantile.
func (ps *Quantile) Value() float64 {
	if ps.count == 0 {
		return 0
	}

	if ps.count < 5 {
		sorted := make([]float64, ps.count)
		copy(sorted, ps.initBuffer[:ps.count])
		for i := 1; i < ps.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(ps.count-1) * ps.p)
		if index >= ps.count {
			index = ps.count - 1
		}
		return sorted[index]
	}

	return ps.q[2]
}

// Count returns the number of observations folded in so far.
func (ps *Quantile) Count() int { return ps.count }

// Max returns the largest observation seen.
func (ps *Quantile) Max() float64 {
	if ps.count == 0 {
		return 0
	}
	if ps.count < 5 {
		max := ps.initBuffer[0]
		for i := 1; i < ps.count; i++ {
			if ps.initBuffer[i] > max {
				max = ps.initBuffer[i]
			}
		}
		return max
	}
	return ps.q[4]
}

// MultiQuantile tracks several target quantiles plus mean/sum/max over the
// same observation stream, as used for a per-core shared-latency
// distribution summary.
type MultiQuantile struct {
	estimators []*Quantile
	sum        float64
	count      int
	max        float64
}

// NewMultiQuantile creates estimators for each of the given target
// quantiles (each in [0, 1]).
func NewMultiQuantile(percentiles ...float64) *MultiQuantile {
	m := &MultiQuantile{
		estimators: make([]*Quantile, len(percentiles)),
		max:        -math.MaxFloat64,
	}
	for i, p := range percentiles {
		m.estimators[i] = NewQuantile(p)
	}
	return m
}

// Update folds one observation into every tracked quantile plus the
// running sum/max.
func (m *MultiQuantile) Update(x float64) {
	m.count++
	m.sum += x
	if x > m.max {
		m.max = x
	}
	for _, est := range m.estimators {
		est.Update(x)
	}
}

// Quantile returns the i-th tracked quantile's current value.
func (m *MultiQuantile) Quantile(i int) float64 {
	if i < 0 || i >= len(m.estimators) {
		return 0
	}
	return m.estimators[i].Value()
}

// Count returns the total number of observations.
func (m *MultiQuantile) Count() int { return m.count }

// Sum returns the running sum of observations.
func (m *MultiQuantile) Sum() float64 { return m.sum }

// Max returns the largest observation seen.
func (m *MultiQuantile) Max() float64 {
	if m.count == 0 {
		return 0
	}
	return m.max
}

// Mean returns the arithmetic mean of all observations.
func (m *MultiQuantile) Mean() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// Reset clears accumulated state, used by the interference manager's
// optional reset-every-R-samples behaviour (spec.md section 4.10).
func (m *MultiQuantile) Reset() {
	m.sum = 0
	m.count = 0
	m.max = -math.MaxFloat64
	for _, est := range m.estimators {
		*est = *NewQuantile(est.p)
	}
}
