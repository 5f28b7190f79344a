// Package bpred implements the hybrid global/local/meta branch predictor,
// set-associative BTB, and return-address stack described in spec.md
// section 4.2. Grounded on
// _examples/original_source/m5/encumbered/cpu/full/bpred.cc: the
// pred_index hashing scheme, 2-bit saturating counter update, and
// snapshot/recover protocol are carried over verbatim-in-spirit.
package bpred

import "github.com/magnusjahre/MM5-sub002/internal/config"

// branchAddrShift drops the low, always-zero bits of a fixed-width
// instruction address before it is used as a table index, mirroring
// bpred.cc's BranchPredAddrShiftAmt.
const branchAddrShift = 2

// Result is the outcome of a Lookup call, mirroring BranchPred::LookupResult.
type Result int

const (
	PredictNotTaken Result = iota
	PredictTakenWithTarget
	PredictTakenNoTarget
)

// Confidence classifies a prediction's reliability, consulted by policies
// that want to gate speculation depth on confident branches only.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceHigh
)

// ConfidencePolicy selects how Predictor derives Confidence.
type ConfidencePolicy int

const (
	// ConfidenceStaticTable looks up confidence directly from the
	// (meta, local, global) 2-bit-counter state triple.
	ConfidenceStaticTable ConfidencePolicy = iota
	// ConfidenceDynamicCounter maintains a small counter table indexed the
	// same way, incremented on correct predictions and decremented (or
	// cleared) on mispredictions, saturated to a configured width.
	ConfidenceDynamicCounter
)

func nbitMask(bits int) uint32 {
	if bits <= 0 {
		return 0
	}
	if bits >= 32 {
		return ^uint32(0)
	}
	return (uint32(1) << uint(bits)) - 1
}

// predIndex implements pred_index from bpred.cc: combine a branch-address
// index with a history register into a table index of predIndexBits bits,
// either by XOR or by disjoint concatenation.
func predIndex(bindex, hist uint32, histBits, predIndexBits int, xorMode bool) uint32 {
	neededBindexBits := predIndexBits - histBits
	if neededBindexBits > 0 {
		hist <<= uint(neededBindexBits)
		if !xorMode {
			bindex &= nbitMask(neededBindexBits)
		}
	} else if !xorMode {
		bindex = 0
	}
	return (hist ^ bindex) & nbitMask(predIndexBits)
}

// UpdateRecord carries everything Lookup computed that Recover and Update
// need later: the snapshot for misprediction recovery, and the table
// indices for the deferred-to-commit counter update.
type UpdateRecord struct {
	UsedPredictor bool
	UsedBTB       bool
	UsedRAS       bool

	IsConditional bool
	PredTaken     bool

	GlobalPidx uint32
	LocalPidx  uint32
	MetaPidx   uint32
	ConfPidx   uint32

	PredState uint32 // packed (local<<4)|(global<<2)|meta-ish, for static confidence

	// Snapshot for recovery.
	GlobalHistSnapshot uint32
	RASTosSnapshot     int
	RASValueSnapshot   uint64

	resolvedTarget uint64
}

// Predictor holds the prediction tables and BTB shared by every hardware
// thread, plus the per-thread global history, local history, and RAS
// state named in spec.md section 4.2, indexed internally by thread id.
type Predictor struct {
	cfg config.BranchPredictor

	numThreads int

	globalHistReg []uint32
	localHistRegs [][]uint32 // [thread][pc index]

	globalTable []uint8
	localTable  []uint8
	metaTable   []uint8
	confTable   []uint8 // dynamic-counter confidence, indexed same as conf_pidx
	staticConf  []bool  // static-table confidence, indexed by packed pred_state

	confPolicy       ConfidencePolicy
	confCtrThreshold int
	confCtrBits      int

	btb *BTB
	ras []*RAS // per thread
}

// New allocates a Predictor from cfg for numThreads hardware threads.
func New(cfg config.BranchPredictor, numThreads int, confPolicy ConfidencePolicy, confCtrThreshold int) *Predictor {
	indexSize := 1 << uint(cfg.IndexBits)
	localRegsCount := indexSize

	p := &Predictor{
		cfg:              cfg,
		numThreads:       numThreads,
		globalHistReg:    make([]uint32, numThreads),
		localHistRegs:    make([][]uint32, numThreads),
		globalTable:      make([]uint8, indexSize),
		localTable:       make([]uint8, indexSize),
		metaTable:        make([]uint8, indexSize),
		confTable:        make([]uint8, indexSize),
		staticConf:       make([]bool, 1<<6), // packed pred_state fits in 6 bits (2+2+2)
		confPolicy:       confPolicy,
		confCtrThreshold: confCtrThreshold,
		confCtrBits:      cfg.ConfidenceWidth,
		btb:              NewBTB(cfg.BTBSets, cfg.BTBWays),
		ras:              make([]*RAS, numThreads),
	}
	for t := 0; t < numThreads; t++ {
		p.localHistRegs[t] = make([]uint32, localRegsCount)
		p.ras[t] = NewRAS(cfg.RASDepth)
	}
	// Counters reset to weakly-not-taken (1), matching a freshly allocated
	// 2-bit saturating counter in the original.
	for _, tbl := range [][]uint8{p.globalTable, p.localTable, p.metaTable} {
		for i := range tbl {
			tbl[i] = 1
		}
	}
	return p
}

// Lookup predicts the outcome of one branch/jump instruction, per spec.md
// section 4.2.
func (p *Predictor) Lookup(thread int, pc uint64, isControl, isUncond, isReturn, isCall bool) (Result, uint64, Confidence, UpdateRecord) {
	var rec UpdateRecord
	if !isControl {
		return PredictNotTaken, 0, ConfidenceNone, rec
	}

	rec.UsedPredictor = true

	if isUncond {
		rec.GlobalHistSnapshot = p.globalHistReg[thread]
		ras := p.ras[thread]
		rec.RASTosSnapshot = ras.tos
		rec.RASValueSnapshot = ras.stack[ras.tos]
		result := p.resolveTarget(thread, pc, isReturn, isCall, &rec)
		target := uint64(0)
		if result == PredictTakenWithTarget {
			target = rec.resolvedTarget
		}
		return result, target, ConfidenceNone, rec
	}

	rec.IsConditional = true
	bindex := uint32(pc) >> uint(branchAddrShift)

	histBits := p.cfg.GlobalHistoryBits
	global := p.globalHistReg[thread]
	globalPidx := predIndex(bindex, global, histBits, p.cfg.IndexBits, p.cfg.XorNotConcat)
	globalCtr := p.globalTable[globalPidx]
	rec.GlobalPidx = globalPidx

	localHistBits := p.cfg.LocalHistoryBits
	localRegIdx := bindex & uint32(len(p.localHistRegs[thread])-1)
	localHist := p.localHistRegs[thread][localRegIdx]
	localPidx := predIndex(bindex, localHist, localHistBits, p.cfg.IndexBits, p.cfg.XorNotConcat)
	localCtr := p.localTable[localPidx]
	rec.LocalPidx = localPidx

	metaPidx := predIndex(bindex, global, histBits, p.cfg.IndexBits, p.cfg.XorNotConcat)
	metaCtr := p.metaTable[metaPidx]
	rec.MetaPidx = metaPidx

	var predTaken bool
	if metaCtr >= 2 {
		predTaken = localCtr >= 2
	} else {
		predTaken = globalCtr >= 2
	}
	rec.PredTaken = predTaken
	rec.PredState = (uint32(localCtr&0x3) << 4) | (uint32(globalCtr&0x3) << 2) | uint32(metaCtr&0x3)

	rec.GlobalHistSnapshot = global // pre-update value, restored on misprediction

	newBit := uint32(0)
	if predTaken {
		newBit = 1
	}
	newGlobal := ((global << 1) | newBit) & nbitMask(histBits)
	p.globalHistReg[thread] = newGlobal

	ras := p.ras[thread]
	rec.RASTosSnapshot = ras.tos
	rec.RASValueSnapshot = ras.stack[ras.tos]

	if !predTaken {
		return PredictNotTaken, 0, ConfidenceNone, rec
	}

	confPidx := predIndex(bindex, newGlobal, histBits, p.cfg.IndexBits, p.cfg.XorNotConcat)
	rec.ConfPidx = confPidx
	conf := p.confidence(rec)

	result := p.resolveTarget(thread, pc, isReturn, isCall, &rec)
	var target uint64
	if result == PredictTakenWithTarget {
		target = rec.resolvedTarget
	}
	return result, target, conf, rec
}

func (p *Predictor) confidence(rec UpdateRecord) Confidence {
	switch p.confPolicy {
	case ConfidenceDynamicCounter:
		if int(p.confTable[rec.ConfPidx]) >= p.confCtrThreshold {
			return ConfidenceHigh
		}
		return ConfidenceLow
	default:
		if p.staticConf[rec.PredState] {
			return ConfidenceHigh
		}
		return ConfidenceLow
	}
}

// resolvedTarget is attached to UpdateRecord internally by resolveTarget
// (unexported: only this package needs to thread it through Lookup).
func (r *UpdateRecord) setResolved(target uint64) { r.resolvedTarget = target }

func (p *Predictor) resolveTarget(thread int, pc uint64, isReturn, isCall bool, rec *UpdateRecord) Result {
	ras := p.ras[thread]
	if p.cfg.RASDepth > 0 {
		if isReturn {
			target := ras.Pop()
			rec.UsedRAS = true
			rec.RASTosSnapshot = ras.tos
			rec.RASValueSnapshot = ras.stack[ras.tos]
			rec.setResolved(target)
			return PredictTakenWithTarget
		}
		if isCall {
			ras.Push(pc + instSizeBytes)
			rec.RASTosSnapshot = ras.tos
			rec.RASValueSnapshot = ras.stack[ras.tos]
		}
	}

	if target, hit := p.btb.Lookup(pc); hit {
		rec.UsedBTB = true
		rec.setResolved(target)
		return PredictTakenWithTarget
	}
	return PredictTakenNoTarget
}

// instSizeBytes is the fixed instruction size used for call-target
// computation; exposed as a var so alternative ISAs can override it.
var instSizeBytes uint64 = 4

// Recover restores global history and RAS state from rec's snapshot, per
// spec.md section 4.2's "recover(thread, update_record)".
func (p *Predictor) Recover(thread int, rec UpdateRecord) {
	if !rec.UsedPredictor {
		return
	}
	ras := p.ras[thread]
	ras.tos = rec.RASTosSnapshot
	ras.stack[ras.tos] = rec.RASValueSnapshot
	p.globalHistReg[thread] = rec.GlobalHistSnapshot
}

// Update applies the deferred-to-commit predictor state update: 2-bit
// counter adjustment, local history advance, meta update (only when global
// and local disagreed), and BTB insert/promote on a taken branch.
func (p *Predictor) Update(thread int, pc uint64, taken bool, isControl, isConditional bool, rec UpdateRecord) {
	if !rec.UsedPredictor || !isControl {
		return
	}

	if isConditional {
		updateCtr(&p.globalTable[rec.GlobalPidx], taken)
		updateCtr(&p.localTable[rec.LocalPidx], taken)

		globalSaidTaken := p.globalTable[rec.GlobalPidx] >= 2
		localSaidTaken := p.localTable[rec.LocalPidx] >= 2
		if globalSaidTaken != localSaidTaken {
			// Meta should have pointed at whichever sub-predictor got it
			// right; nudge it toward local when local was correct.
			updateCtr(&p.metaTable[rec.MetaPidx], localSaidTaken == taken)
		}

		bindex := uint32(pc) >> uint(branchAddrShift)
		localRegIdx := bindex & uint32(len(p.localHistRegs[thread])-1)
		hist := p.localHistRegs[thread][localRegIdx]
		newBit := uint32(0)
		if taken {
			newBit = 1
		}
		p.localHistRegs[thread][localRegIdx] = ((hist << 1) | newBit) & nbitMask(p.cfg.LocalHistoryBits)

		switch p.confPolicy {
		case ConfidenceDynamicCounter:
			correct := rec.PredTaken == taken
			updateCtrWidth(&p.confTable[rec.ConfPidx], correct, p.confCtrBits)
		default:
			p.staticConf[rec.PredState] = rec.PredTaken == taken
		}
	}

	if taken {
		p.btb.InsertOrPromote(pc, pc) // target filled in by caller via UpdateTarget
	}
}

// UpdateTarget records the resolved branch target in the BTB, called
// separately from Update since the resolved target is only known to the
// pipeline's execute stage, not the predictor.
func (p *Predictor) UpdateTarget(pc, target uint64) {
	p.btb.InsertOrPromote(pc, target)
}

func updateCtr(ctr *uint8, incr bool) {
	updateCtrWidth(ctr, incr, 2)
}

func updateCtrWidth(ctr *uint8, incr bool, bits int) {
	max := uint8(nbitMask(bits))
	if incr {
		if *ctr < max {
			*ctr++
		}
		return
	}
	if *ctr > 0 {
		*ctr--
	}
}
