// Package trace implements the three external trace/serialization formats
// named in spec.md section 6: the line-oriented pipe trace, the DRAM
// access CSV trace, and cache/shadow-tag checkpoint serialization.
package trace

import (
	"bufio"
	"fmt"
	"io"
)

// Stage names one of the five pipeline stages a pipe-trace move event
// reports, per spec.md section 6.
type Stage string

const (
	StageFetch     Stage = "IF"
	StageDecode    Stage = "DA"
	StageExecute   Stage = "EX"
	StageWriteback Stage = "WB"
	StageCommit    Stage = "CT"
)

// PipeWriter emits the pipe-trace line format: "@" cycle markers opening a
// sampled range, "+" on dispatch of a new instruction, "*" on every stage
// move, and "-" on retirement or squash.
type PipeWriter struct {
	w *bufio.Writer
}

// NewPipeWriter wraps w for buffered line writes; callers must call Flush
// when done (or after every Tick, to keep the trace readable as it grows).
func NewPipeWriter(w io.Writer) *PipeWriter {
	return &PipeWriter{w: bufio.NewWriter(w)}
}

// Flush pushes any buffered lines to the underlying writer.
func (p *PipeWriter) Flush() error {
	return p.w.Flush()
}

// Tick emits a "@ <tick>" cycle marker.
func (p *PipeWriter) Tick(tick int64) error {
	_, err := fmt.Fprintf(p.w, "@ %d\n", tick)
	return err
}

// NewInst emits a "+ <seq> <pc_hex> <addr_hex> <disasm> [T<thread>, CP#<cpseq>]"
// line for an instruction just dispatched.
func (p *PipeWriter) NewInst(seq uint64, pc, addr uint64, disasm string, thread int, cpSeq uint64) error {
	_, err := fmt.Fprintf(p.w, "+ %d 0x%x 0x%x %s [T%d, CP#%d]\n", seq, pc, addr, disasm, thread, cpSeq)
	return err
}

// Move emits a "* <seq> <stage> <events_hex> <miss_lat> <longest_hex> [...]"
// line for an instruction entering stage. eventsHex is a bitmask of
// per-stage trace events (e.g. cache miss, branch mispredict); missLat is
// the cycles spent on the longest outstanding miss so far; longestHex
// names which component owned it.
func (p *PipeWriter) Move(seq uint64, stage Stage, eventsHex uint64, missLat int64, longestHex uint64, extra ...string) error {
	if _, err := fmt.Fprintf(p.w, "* %d %s 0x%x %d 0x%x", seq, stage, eventsHex, missLat, longestHex); err != nil {
		return err
	}
	return p.writeExtra(extra)
}

// Delete emits a "- <seq> [...]" line when an instruction retires or is
// squashed out of the pipeline.
func (p *PipeWriter) Delete(seq uint64, extra ...string) error {
	if _, err := fmt.Fprintf(p.w, "- %d", seq); err != nil {
		return err
	}
	return p.writeExtra(extra)
}

func (p *PipeWriter) writeExtra(extra []string) error {
	for _, e := range extra {
		if _, err := fmt.Fprintf(p.w, " %s", e); err != nil {
			return err
		}
	}
	_, err := p.w.WriteString("\n")
	return err
}
