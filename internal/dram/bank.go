// Package dram implements the DDR2 bank state machine and memory
// controller described in spec.md section 4.9. The timing arithmetic
// mirrors the original MM5 SimpleMemBank model
// (_examples/original_source/m5/mem/timing/simple_mem_bank_impl.hh) as
// closely as idiomatic Go allows; see DESIGN.md and SPEC_FULL.md section
// C.1 for the specific rules this file carries forward.
package dram

import "fmt"

// BankState is one of the four states a DDR2 bank can be in.
type BankState int

const (
	BankIdle BankState = iota
	BankActive
	BankRead
	BankWritten
)

func (s BankState) String() string {
	switch s {
	case BankIdle:
		return "Idle"
	case BankActive:
		return "Active"
	case BankRead:
		return "Read"
	case BankWritten:
		return "Written"
	default:
		return "Unknown"
	}
}

// Bank models one DDR2 bank's timing state, per spec.md section 3.
type Bank struct {
	State BankState

	OpenPage int64

	ActivateTime     int64
	ReadyTime        int64
	CloseTime        int64
	LastCmdFinish    int64
	InConflict       bool
}

// Timing holds the DDR2 timing parameters, all expressed directly in
// simulator ticks (the bus-frequency-to-CPU-cycle conversion the original
// performs is an external collaborator's concern - config already supplies
// ticks, per SPEC_FULL.md section A.3).
type Timing struct {
	NumBanks       int
	PageShiftBits  uint
	MaxActiveBanks int

	RASLatency              int64
	CASLatency              int64
	PrechargeLatency        int64
	MinActivateToPrecharge  int64
	WriteLatency            int64
	WriteRecoveryTime       int64
	InternalReadToPrecharge int64
	InternalWriteToRead     int64
	InternalRowToRow        int64
	ReadToWriteTurnaround   int64
	DataTime                int64

	// StaticLatency, when non-zero, makes Read/Writeback return this fixed
	// value and Activate/Close return 0 (spec.md section 4.9,
	// SPEC_FULL.md section C.2).
	StaticLatency int64
}

// Outcome classifies one Read/Writeback service, feeding the DRAM CSV
// trace's Result column (spec.md section 6).
type Outcome int

const (
	OutcomeHit Outcome = iota
	OutcomeMiss
	OutcomeConflict
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	case OutcomeConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Stats accumulates the per-outcome and per-CPU counters named in
// SPEC_FULL.md section C.3.
type Stats struct {
	Reads, ReadHits, SlowReadHits     int64
	Writes, WriteHits, SlowWriteHits  int64
	PageConflicts                     int64
	NonOverlapActivateWaits           int64
	PerCPUAccesses, PerCPUConflicts   map[int]int64
}

func newStats() Stats {
	return Stats{
		PerCPUAccesses:  make(map[int]int64),
		PerCPUConflicts: make(map[int]int64),
	}
}

// BankID returns which bank a physical address maps to:
// (paddr >> pageShift) mod numBanks, per spec.md section 4.9.
func BankID(paddr uint64, pageShiftBits uint, numBanks int) int {
	return int((paddr >> pageShiftBits) % uint64(numBanks))
}

// PageOf returns the DRAM row/page number addressed by paddr.
func PageOf(paddr uint64, pageShiftBits uint) int64 {
	return int64(paddr >> pageShiftBits)
}

// BankModel owns every bank's state and the controller-level invariant that
// at most MaxActiveBanks banks are Active/Read/Written simultaneously.
type BankModel struct {
	timing          Timing
	banks           []Bank
	activeBankCount int
	stats           Stats
}

// NewBankModel allocates a model with all banks starting Idle.
func NewBankModel(t Timing) *BankModel {
	return &BankModel{
		timing: t,
		banks:  make([]Bank, t.NumBanks),
		stats:  newStats(),
	}
}

// Stats returns a copy of the accumulated statistics.
func (m *BankModel) Stats() Stats { return m.stats }

func (m *BankModel) bankFor(paddr uint64) int {
	return BankID(paddr, m.timing.PageShiftBits, m.timing.NumBanks)
}

// Activate transitions bank to Active, per spec.md section 4.9 and
// SPEC_FULL.md section C.1. now is the current simulator tick. Returns the
// command latency (always 0 for Activate; the resulting readiness is
// recorded internally and observed by later Read/Write/Close calls).
func (m *BankModel) Activate(now int64, paddr uint64) (latency int64, err error) {
	bank := m.bankFor(paddr)
	b := &m.banks[bank]

	if m.timing.StaticLatency != 0 {
		m.doActivateBookkeeping(now, bank, paddr)
		return 0, nil
	}

	if b.State != BankIdle {
		return 0, fmt.Errorf("dram: activate on non-idle bank %d (state=%s)", bank, b.State)
	}

	if b.CloseTime != 0 && b.CloseTime >= now {
		b.InConflict = true
	}

	m.activeBankCount++
	if m.activeBankCount > m.timing.MaxActiveBanks {
		return 0, fmt.Errorf("dram: max active banks (%d) exceeded", m.timing.MaxActiveBanks)
	}

	var extraLatency int64
	if now < b.CloseTime {
		extraLatency = b.CloseTime - now
	}

	// Find the most recent activate across all banks, mirroring the
	// original's row-to-row spacing check (a controller-wide constraint,
	// not per-bank).
	var lastActivate int64
	for i := range m.banks {
		if m.banks[i].ActivateTime > lastActivate {
			lastActivate = m.banks[i].ActivateTime
		}
	}

	if lastActivate > 0 && lastActivate+m.timing.InternalRowToRow > now {
		b.ActivateTime = (now - lastActivate) + m.timing.RASLatency + now
	} else {
		b.ActivateTime = m.timing.RASLatency + now
	}
	b.ActivateTime += extraLatency

	b.State = BankActive
	b.OpenPage = PageOf(paddr, m.timing.PageShiftBits)

	return 0, nil
}

func (m *BankModel) doActivateBookkeeping(now int64, bank int, paddr uint64) {
	b := &m.banks[bank]
	b.State = BankActive
	b.OpenPage = PageOf(paddr, m.timing.PageShiftBits)
	b.ActivateTime = now
}

// Close transitions bank back to Idle, scheduling the internal precharge
// completion time (CloseTime) that subsequent Activates must respect.
func (m *BankModel) Close(now int64, paddr uint64) (latency int64, err error) {
	bank := m.bankFor(paddr)
	b := &m.banks[bank]

	if m.timing.StaticLatency != 0 {
		b.State = BankIdle
		return 0, nil
	}

	if b.State == BankIdle {
		return 0, fmt.Errorf("dram: close on already-idle bank %d", bank)
	}
	m.activeBankCount--

	var prechCmdTick int64
	switch b.State {
	case BankRead:
		if b.ReadyTime > now {
			prechCmdTick = b.ReadyTime + m.timing.InternalReadToPrecharge
		} else {
			prechCmdTick = now + m.timing.InternalReadToPrecharge
		}
	case BankWritten:
		if b.ReadyTime > now {
			prechCmdTick = b.ReadyTime + m.timing.DataTime + m.timing.WriteRecoveryTime
		} else {
			prechCmdTick = now + m.timing.DataTime + m.timing.WriteRecoveryTime
		}
	case BankActive:
		if b.ActivateTime > now {
			prechCmdTick = b.ActivateTime
		} else {
			prechCmdTick = now
		}
	}

	var closeLatency int64
	actToPrechLat := prechCmdTick - b.ActivateTime
	if actToPrechLat < m.timing.MinActivateToPrecharge {
		closeLatency = m.timing.MinActivateToPrecharge - actToPrechLat
	}
	closeLatency += m.timing.PrechargeLatency
	b.CloseTime = closeLatency + prechCmdTick

	b.State = BankIdle
	return 0, nil
}

// Access services a Read or Writeback against bank, returning the service
// latency and outcome classification. isWrite distinguishes Writeback from
// Read (spec.md section 4.9's symmetric Read/Write rules).
func (m *BankModel) Access(now int64, paddr uint64, cpu int, isWrite bool) (latency int64, outcome Outcome, err error) {
	bank := m.bankFor(paddr)
	b := &m.banks[bank]

	if m.timing.StaticLatency != 0 {
		m.recordPerCPU(cpu, bank, false)
		return m.timing.StaticLatency, OutcomeHit, nil
	}

	page := PageOf(paddr, m.timing.PageShiftBits)
	if page != b.OpenPage {
		return 0, OutcomeMiss, fmt.Errorf("dram: access to closed page on bank %d", bank)
	}

	oldState := b.State
	var lat int64
	var isHit bool

	if isWrite {
		m.stats.Writes++
		switch b.State {
		case BankRead:
			b.State = BankWritten
			readCmdToWriteStart := m.timing.ReadToWriteTurnaround + m.timing.WriteLatency
			curOffset := now - b.ReadyTime
			if curOffset <= readCmdToWriteStart {
				lat = m.timing.DataTime + (readCmdToWriteStart - curOffset)
			} else {
				lat = m.timing.DataTime
			}
			m.stats.WriteHits++
			m.stats.SlowWriteHits++
		case BankActive:
			b.State = BankWritten
			b.ReadyTime = b.ActivateTime + m.timing.WriteLatency
			lat = m.timing.DataTime
		case BankWritten:
			lat = m.timing.DataTime
			m.stats.WriteHits++
			isHit = true
		default:
			return 0, OutcomeMiss, fmt.Errorf("dram: write from unexpected state %s on bank %d", b.State, bank)
		}
	} else {
		m.stats.Reads++
		switch b.State {
		case BankRead:
			lat = m.timing.DataTime
			m.stats.ReadHits++
			isHit = true
		case BankActive:
			b.State = BankRead
			lat = m.timing.DataTime
			b.ReadyTime = b.ActivateTime + m.timing.CASLatency
		case BankWritten:
			b.State = BankRead
			if now-b.LastCmdFinish <= m.timing.InternalWriteToRead+m.timing.CASLatency {
				lat = m.timing.DataTime + (m.timing.InternalWriteToRead + m.timing.CASLatency - (now - b.LastCmdFinish))
			} else {
				lat = m.timing.DataTime
			}
			m.stats.ReadHits++
			m.stats.SlowReadHits++
		default:
			return 0, OutcomeMiss, fmt.Errorf("dram: read from unexpected state %s on bank %d", b.State, bank)
		}
	}

	m.recordPerCPU(cpu, bank, false)

	if now < b.ReadyTime {
		lat += b.ReadyTime - now
		m.stats.NonOverlapActivateWaits++
	}

	outcome = m.classify(isHit, bank, cpu)
	b.InConflict = false

	curState := b.State
	switch {
	case oldState == BankRead && curState == BankRead,
		oldState == BankWritten && curState == BankWritten:
		if b.ReadyTime >= now {
			b.ReadyTime += m.timing.DataTime
		} else {
			b.ReadyTime = now + m.timing.DataTime
		}
	case oldState == BankRead && curState == BankWritten,
		oldState == BankWritten && curState == BankRead:
		b.ReadyTime = now + (lat - m.timing.DataTime)
	}

	b.LastCmdFinish = lat + now
	return lat, outcome, nil
}

func (m *BankModel) classify(isHit bool, bank, cpu int) Outcome {
	b := &m.banks[bank]
	if b.InConflict {
		m.stats.PageConflicts++
		m.recordPerCPU(cpu, bank, true)
		return OutcomeConflict
	}
	if isHit {
		return OutcomeHit
	}
	return OutcomeMiss
}

func (m *BankModel) recordPerCPU(cpu, bank int, conflict bool) {
	if cpu < 0 {
		return
	}
	if conflict {
		m.stats.PerCPUConflicts[cpu]++
		return
	}
	m.stats.PerCPUAccesses[cpu]++
}

// NumBanks returns the bank count this model was configured with.
func (m *BankModel) NumBanks() int { return len(m.banks) }

// BankStateOf returns the current state of bank i, for trace/checkpoint use.
func (m *BankModel) BankStateOf(i int) BankState { return m.banks[i].State }
