// Package simfault defines the two error taxonomies used throughout the
// simulator: fatal implementer-bug conditions (section 7 of the spec,
// "simulation-fatal") and the closed enumeration of simulated architectural
// faults propagated through the pipeline.
package simfault

import "errors"

// Fatal errors indicate a broken invariant in the simulator itself, never a
// property of the simulated program. Callers that detect one should wrap it
// with fmt.Errorf("%w: ...", simfault.ErrX) and panic; there is no recovery
// path for these, by design.
var (
	ErrMSHRLeak                  = errors.New("simfault: MSHR leak detected")
	ErrEventQueueUnderflow       = errors.New("simfault: event queue underflow")
	ErrBankStateImpossible       = errors.New("simfault: impossible DDR2 bank state transition")
	ErrSchedulerPriorityConflict = errors.New("simfault: scheduler priority conflict")
	ErrConfigInvalid             = errors.New("simfault: invalid configuration")
	ErrCheckpointMismatch        = errors.New("simfault: checkpoint geometry mismatch")
	ErrROBHeadMismatch           = errors.New("simfault: ROB head sequence mismatch")
)

// Fault is the fixed enumeration of architected faults an instruction's
// execute() may return, per spec.md section 6.
type Fault int

const (
	FaultNone Fault = iota
	FaultReset
	FaultMachineCheck
	FaultArithmetic
	FaultInterrupt
	FaultDTBMiss
	FaultNestedDTBMiss
	FaultAlignment
	FaultDTBPageFault
	FaultDTBAccessViolation
	FaultITBMiss
	FaultITBPageFault
	FaultITBAccessViolation
	FaultUnimplementedOpcode
	FaultFPDisabled
	FaultPalCall
	FaultIntegerOverflow
	FaultFakeMem
	FaultProcessHalt
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "None"
	case FaultReset:
		return "Reset"
	case FaultMachineCheck:
		return "MachineCheck"
	case FaultArithmetic:
		return "Arithmetic"
	case FaultInterrupt:
		return "Interrupt"
	case FaultDTBMiss:
		return "DTBMiss"
	case FaultNestedDTBMiss:
		return "NestedDTBMiss"
	case FaultAlignment:
		return "Alignment"
	case FaultDTBPageFault:
		return "DTBPageFault"
	case FaultDTBAccessViolation:
		return "DTBAccessViolation"
	case FaultITBMiss:
		return "ITBMiss"
	case FaultITBPageFault:
		return "ITBPageFault"
	case FaultITBAccessViolation:
		return "ITBAccessViolation"
	case FaultUnimplementedOpcode:
		return "UnimplementedOpcode"
	case FaultFPDisabled:
		return "FPDisabled"
	case FaultPalCall:
		return "PalCall"
	case FaultIntegerOverflow:
		return "IntegerOverflow"
	case FaultFakeMem:
		return "FakeMem"
	case FaultProcessHalt:
		return "ProcessHalt"
	default:
		return "Unknown"
	}
}

// IsSpeculativeDiscardable reports whether a fault occurring under
// speculative execution should simply be recorded and discarded at squash,
// rather than invoking the architected trap path (spec.md section 7).
func (f Fault) IsSpeculativeDiscardable() bool {
	return f != FaultNone
}
