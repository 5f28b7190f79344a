package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduler_OrdersByTickThenPriority(t *testing.T) {
	s := NewScheduler()
	var order []string

	s.Schedule(5, PriorityFetch, func(int64) { order = append(order, "fetch@5") })
	s.Schedule(5, PriorityCommit, func(int64) { order = append(order, "commit@5") })
	s.Schedule(3, PriorityFetch, func(int64) { order = append(order, "fetch@3") })
	s.Schedule(5, PriorityWriteback, func(int64) { order = append(order, "writeback@5") })

	s.RunUntilEmpty()

	require.Equal(t, []string{"fetch@3", "commit@5", "writeback@5", "fetch@5"}, order)
}

func TestScheduler_CancelIsLazy(t *testing.T) {
	s := NewScheduler()
	fired := false
	e := s.Schedule(1, PriorityFetch, func(int64) { fired = true })
	require.Equal(t, 1, s.Pending())

	s.Cancel(e)
	require.False(t, e.Alive())
	require.Equal(t, 0, s.Pending())

	s.RunUntilEmpty()
	require.False(t, fired)
}

func TestScheduler_Reschedule(t *testing.T) {
	s := NewScheduler()
	var ticks []int64

	var e *Event
	count := 0
	handler := func(now int64) {
		ticks = append(ticks, now)
		count++
		if count < 3 {
			e = s.Reschedule(e, now+1, PriorityFetch)
		}
	}
	e = s.Schedule(0, PriorityFetch, handler)

	s.RunUntilEmpty()

	require.Equal(t, []int64{0, 1, 2}, ticks)
}

func TestScheduler_RunStopsAtUntilTick(t *testing.T) {
	s := NewScheduler()
	var fired []int64
	s.Schedule(1, PriorityFetch, func(now int64) { fired = append(fired, now) })
	s.Schedule(5, PriorityFetch, func(now int64) { fired = append(fired, now) })
	s.Schedule(10, PriorityFetch, func(now int64) { fired = append(fired, now) })

	reached := s.Run(5)

	require.Equal(t, int64(5), reached)
	require.Equal(t, []int64{1, 5}, fired)

	s.RunUntilEmpty()
	require.Equal(t, []int64{1, 5, 10}, fired)
}

// TestScheduler_SteadyTickAdvance exercises property 1 from spec.md section
// 8: with fixed per-cycle ticks and no contention, a scheduler advancing a
// counter every cycle should tick exactly once per unit time.
func TestScheduler_SteadyTickAdvance(t *testing.T) {
	s := NewScheduler()
	var cycles int64
	var tick Handler
	tick = func(now int64) {
		cycles++
		if cycles < 256 {
			s.Schedule(now+1, PriorityFetch, tick)
		}
	}
	s.Schedule(0, PriorityFetch, tick)
	s.RunUntilEmpty()
	require.Equal(t, int64(256), cycles)
}
