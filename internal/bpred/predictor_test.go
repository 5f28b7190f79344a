package bpred

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/magnusjahre/MM5-sub002/internal/config"
)

func testConfig() config.BranchPredictor {
	return config.BranchPredictor{
		GlobalHistoryBits: 4,
		LocalHistoryBits:  4,
		IndexBits:         6,
		XorNotConcat:      true,
		BTBSets:           8,
		BTBWays:           2,
		RASDepth:          4,
		ConfidenceWidth:   2,
	}
}

func TestPredictor_UnconditionalAlwaysPredictsTaken(t *testing.T) {
	p := New(testConfig(), 1, ConfidenceStaticTable, 0)
	result, _, _, rec := p.Lookup(0, 0x4000, true, true, false, false)
	require.Equal(t, PredictTakenNoTarget, result) // BTB empty, so no target yet
	require.True(t, rec.UsedPredictor)
}

func TestPredictor_CallThenReturnRoundTripsThroughRAS(t *testing.T) {
	p := New(testConfig(), 1, ConfidenceStaticTable, 0)

	// A call at 0x4000 pushes 0x4004 onto the RAS.
	result, _, _, _ := p.Lookup(0, 0x4000, true, true, false, true)
	require.Equal(t, PredictTakenNoTarget, result)

	// A return elsewhere pops it back off as the predicted target.
	result2, target, _, _ := p.Lookup(0, 0x8000, true, true, true, false)
	require.Equal(t, PredictTakenWithTarget, result2)
	require.Equal(t, uint64(0x4004), target)
}

func TestPredictor_ConditionalNotTakenSkipsBTB(t *testing.T) {
	p := New(testConfig(), 1, ConfidenceStaticTable, 0)
	// Freshly initialized counters start weakly-not-taken (1 < 2), and
	// global/local disagree only if meta differs - with all tables at 1,
	// meta < 2 so global's counter (1) decides: not taken.
	result, _, _, rec := p.Lookup(0, 0x4000, true, false, false, false)
	require.Equal(t, PredictNotTaken, result)
	require.True(t, rec.IsConditional)
}

func TestPredictor_UpdateTrainsCounterTowardTaken(t *testing.T) {
	p := New(testConfig(), 1, ConfidenceStaticTable, 0)

	// Each Lookup shifts its predicted direction into the 4-bit global
	// history, so the indexed counters keep changing until every history
	// pattern seen along the way has been trained; 16 rounds is enough for
	// the history to settle on all-taken.
	for i := 0; i < 16; i++ {
		_, _, _, rec := p.Lookup(0, 0x4000, true, false, false, false)
		p.Update(0, 0x4000, true, true, true, rec)
	}

	_, _, _, rec := p.Lookup(0, 0x4000, true, false, false, false)
	require.True(t, rec.PredTaken)
}

func TestPredictor_RecoverRestoresGlobalHistoryAndRAS(t *testing.T) {
	p := New(testConfig(), 1, ConfidenceStaticTable, 0)

	// Train the global counter toward taken so a later lookup at the same
	// pc actually flips the speculatively-shifted-in history bit.
	for i := 0; i < 4; i++ {
		_, _, _, rec := p.Lookup(0, 0x4000, true, false, false, false)
		p.Update(0, 0x4000, true, true, true, rec)
	}

	before := p.globalHistReg[0]
	rasBefore := p.ras[0].tos

	_, _, _, rec := p.Lookup(0, 0x4000, true, false, false, false)
	require.NotEqual(t, before, p.globalHistReg[0])

	p.Recover(0, rec)
	require.Equal(t, before, p.globalHistReg[0])
	require.Equal(t, rasBefore, p.ras[0].tos)
}
