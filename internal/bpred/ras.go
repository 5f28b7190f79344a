package bpred

// RAS is a circular return-address stack, grounded on bpred.cc's
// ReturnAddrStack{tos, stack[]}: push on call (pc+inst_size), pop on
// return, wrapping the top-of-stack index rather than growing unbounded.
type RAS struct {
	tos   int
	stack []uint64
}

// NewRAS allocates a stack with depth entries. depth of 0 disables the RAS
// (Predictor.resolveTarget falls straight through to the BTB).
func NewRAS(depth int) *RAS {
	if depth <= 0 {
		depth = 1
	}
	return &RAS{stack: make([]uint64, depth)}
}

// Push records target as the next return address, advancing tos.
func (r *RAS) Push(target uint64) {
	r.tos++
	if r.tos == len(r.stack) {
		r.tos = 0
	}
	r.stack[r.tos] = target
}

// Pop returns the current top-of-stack value and retreats tos.
func (r *RAS) Pop() uint64 {
	target := r.stack[r.tos]
	r.tos--
	if r.tos < 0 {
		r.tos = len(r.stack) - 1
	}
	return target
}
