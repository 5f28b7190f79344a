package trace

import (
	"encoding/csv"
	"fmt"
	"io"
)

// DRAMResult is the outcome column of one DRAM access trace line, per
// spec.md section 6.
type DRAMResult string

const (
	DRAMHit      DRAMResult = "hit"
	DRAMMiss     DRAMResult = "miss"
	DRAMConflict DRAMResult = "conflict"
)

// DRAMWriter emits the DRAM access CSV trace named in spec.md section 6:
// columns Address, Bank, Result, InsertedAt, OldAddress, Seq, Cmd.
// Grounded on simple_mem_bank_impl.hh's DO_HIT_TRACE block, which logs the
// same per-access fields on every bank command.
type DRAMWriter struct {
	w *csv.Writer
}

// NewDRAMWriter writes the CSV header row and returns a writer ready for
// WriteAccess calls.
func NewDRAMWriter(w io.Writer) (*DRAMWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Address", "Bank", "Result", "InsertedAt", "OldAddress", "Seq", "Cmd"}); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return &DRAMWriter{w: cw}, nil
}

// WriteAccess emits one DRAM access record. oldAddress is written as
// given; internal/sim passes the request's OldAddr field.
func (d *DRAMWriter) WriteAccess(address uint64, bank int, result DRAMResult, insertedAt int64, oldAddress uint64, seq uint64, cmd string) error {
	record := []string{
		fmt.Sprintf("0x%x", address),
		fmt.Sprintf("%d", bank),
		string(result),
		fmt.Sprintf("%d", insertedAt),
		fmt.Sprintf("0x%x", oldAddress),
		fmt.Sprintf("%d", seq),
		cmd,
	}
	if err := d.w.Write(record); err != nil {
		return err
	}
	d.w.Flush()
	return d.w.Error()
}
