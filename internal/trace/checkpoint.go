package trace

import (
	"bufio"
	"fmt"
	"io"

	"github.com/magnusjahre/MM5-sub002/internal/cache"
	"github.com/magnusjahre/MM5-sub002/internal/simfault"
)

// WriteCheckpoint serializes tags' full geometry to w, per spec.md
// section 6: a "cpu_count num_sets assoc" header line, followed by one
// "set tag state lru-position origin-cpu" line per block in set-major,
// way-minor order (the same order Walk visits, so restore can recover the
// way index positionally without an explicit column for it). Invalid
// blocks still get a line, with state 0 and origin -1, so restore sees a
// fixed NumSets*NumWays record count regardless of occupancy.
func WriteCheckpoint(w io.Writer, cpuCount int, tags *cache.TagStore) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d %d\n", cpuCount, tags.NumSets(), tags.NumWays()); err != nil {
		return err
	}

	var walkErr error
	tags.Walk(func(blk *cache.Block) {
		if walkErr != nil {
			return
		}
		state := 0
		origin := -1
		if blk.Valid {
			state = int(blk.State)
			origin = tags.Owner(blk.Set, blk.Way)
		}
		lru := tags.LRUPosition(blk.Set, blk.Way)
		if _, err := fmt.Fprintf(bw, "%d %d %d %d %d\n", blk.Set, blk.Tag, state, lru, origin); err != nil {
			walkErr = err
		}
	})
	if walkErr != nil {
		return walkErr
	}
	return bw.Flush()
}

// ReadCheckpoint restores tags from r, failing with
// simfault.ErrCheckpointMismatch if the header's cpu_count/num_sets/assoc
// triple does not exactly match tags' live geometry (spec.md section 6:
// "on restore, only exact geometry matches") or if the block-line count
// does not equal num_sets*assoc.
func ReadCheckpoint(r io.Reader, cpuCount int, tags *cache.TagStore) error {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return fmt.Errorf("%w: empty checkpoint", simfault.ErrCheckpointMismatch)
	}

	var gotCPUCount, gotSets, gotAssoc int
	if _, err := fmt.Sscanf(sc.Text(), "%d %d %d", &gotCPUCount, &gotSets, &gotAssoc); err != nil {
		return fmt.Errorf("%w: malformed header %q: %v", simfault.ErrCheckpointMismatch, sc.Text(), err)
	}
	if gotCPUCount != cpuCount || gotSets != tags.NumSets() || gotAssoc != tags.NumWays() {
		return fmt.Errorf("%w: header %d/%d/%d does not match live geometry %d/%d/%d",
			simfault.ErrCheckpointMismatch, gotCPUCount, gotSets, gotAssoc, cpuCount, tags.NumSets(), tags.NumWays())
	}

	expected := tags.NumSets() * tags.NumWays()
	wayCursor := make([]int, tags.NumSets())

	for i := 0; i < expected; i++ {
		if !sc.Scan() {
			return fmt.Errorf("%w: expected %d block lines, got %d", simfault.ErrCheckpointMismatch, expected, i)
		}
		var set, state, lru, origin int
		var tag uint64
		if _, err := fmt.Sscanf(sc.Text(), "%d %d %d %d %d", &set, &tag, &state, &lru, &origin); err != nil {
			return fmt.Errorf("%w: malformed block line %q: %v", simfault.ErrCheckpointMismatch, sc.Text(), err)
		}
		if set < 0 || set >= tags.NumSets() {
			return fmt.Errorf("%w: block line names out-of-range set %d", simfault.ErrCheckpointMismatch, set)
		}
		way := wayCursor[set]
		wayCursor[set]++
		if way >= tags.NumWays() {
			return fmt.Errorf("%w: set %d has more block lines than ways", simfault.ErrCheckpointMismatch, set)
		}

		if state == 0 {
			continue
		}
		tags.RestoreBlock(set, way, cache.Block{Tag: tag, State: cache.State(state)}, lru, origin)
	}

	if sc.Scan() {
		return fmt.Errorf("%w: trailing data after %d block lines", simfault.ErrCheckpointMismatch, expected)
	}
	return sc.Err()
}

// WriteShadowCheckpoint serializes every per-core shadow tag array in
// shadow, one WriteCheckpoint call against the matching writer in ws,
// matching spec.md section 6's "each shadow tag array writes a line per
// block". Each core's shadow array gets its own writer (as with the
// original's one-file-per-structure checkpoint layout) rather than
// sharing a single stream, since a shared stream would need explicit
// length framing to let restore tell consecutive headers apart.
func WriteShadowCheckpoint(ws []io.Writer, cpuCount int, shadow *cache.ShadowTagArray) error {
	stores := shadow.Stores()
	if len(ws) != len(stores) {
		return fmt.Errorf("%w: %d shadow writers for %d cores", simfault.ErrCheckpointMismatch, len(ws), len(stores))
	}
	for i, store := range stores {
		if err := WriteCheckpoint(ws[i], cpuCount, store); err != nil {
			return err
		}
	}
	return nil
}

// ReadShadowCheckpoint restores every per-core shadow tag array in shadow
// from the matching reader in rs.
func ReadShadowCheckpoint(rs []io.Reader, cpuCount int, shadow *cache.ShadowTagArray) error {
	stores := shadow.Stores()
	if len(rs) != len(stores) {
		return fmt.Errorf("%w: %d shadow readers for %d cores", simfault.ErrCheckpointMismatch, len(rs), len(stores))
	}
	for i, store := range stores {
		if err := ReadCheckpoint(rs[i], cpuCount, store); err != nil {
			return err
		}
	}
	return nil
}
