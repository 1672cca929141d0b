// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sts_counter/internal/cycle"
)

type step struct {
	ev    cycle.Event
	ts    int64
	moved bool
	want  cycle.State
}

func run(t *testing.T, m *cycle.StateMachine, steps []step) {
	t.Helper()
	for i, s := range steps {
		require.Equal(t, s.moved, m.Process(s.ev, s.ts), "step %d (%s @%d)", i, s.ev, s.ts)
		require.Equal(t, s.want, m.State(), "step %d", i)
	}
}

var (
	up     = cycle.MovementStart(cycle.Up)
	down   = cycle.MovementStart(cycle.Down)
	stable = cycle.StabilityReached()
)

func TestFullRepetitionCounts(t *testing.T) {
	m := cycle.NewStateMachine()
	run(t, m, []step{
		{up, 1000, true, cycle.Rising},
		{stable, 1250, true, cycle.Standing},
		{down, 1500, true, cycle.Lowering},
		{stable, 1750, true, cycle.Seated},
	})
	require.Equal(t, 1, m.Count())
}

func TestDebounceRejectsQuickEvents(t *testing.T) {
	m := cycle.NewStateMachine()
	run(t, m, []step{
		{up, 1000, true, cycle.Rising},
		{down, 1050, false, cycle.Rising},
		{down, 1149, false, cycle.Rising},
		{down, 1150, true, cycle.Seated},
	})
	require.Zero(t, m.Count())
}

func TestDwellBeforeStability(t *testing.T) {
	m := cycle.NewStateMachine()
	run(t, m, []step{
		{up, 0, true, cycle.Rising},
		{stable, 160, false, cycle.Rising},
		{stable, 199, false, cycle.Rising},
		{stable, 200, true, cycle.Standing},
		{down, 1000, true, cycle.Lowering},
		{stable, 1190, false, cycle.Lowering},
		{stable, 1200, true, cycle.Seated},
	})
	require.Equal(t, 1, m.Count())
}

func TestIgnoredEvents(t *testing.T) {
	m := cycle.NewStateMachine()
	run(t, m, []step{
		{down, 0, false, cycle.Seated},
		{stable, 500, false, cycle.Seated},
		{up, 1000, true, cycle.Rising},
		{up, 1500, false, cycle.Rising},
		{stable, 2000, true, cycle.Standing},
		{up, 2500, false, cycle.Standing},
		{stable, 3000, false, cycle.Standing},
		{down, 3500, true, cycle.Lowering},
		{down, 4000, false, cycle.Lowering},
	})
	require.Zero(t, m.Count())
}

func TestAbortAndReverse(t *testing.T) {
	m := cycle.NewStateMachine()
	run(t, m, []step{
		{up, 1000, true, cycle.Rising},
		{down, 1300, true, cycle.Seated}, // aborted rise
		{up, 2000, true, cycle.Rising},
		{stable, 2400, true, cycle.Standing},
		{down, 3000, true, cycle.Lowering},
		{up, 3300, true, cycle.Standing}, // reversed sit
		{down, 4000, true, cycle.Lowering},
		{stable, 4500, true, cycle.Seated},
	})
	require.Equal(t, 1, m.Count())
}

func TestCountIsMonotonic(t *testing.T) {
	m := cycle.NewStateMachine()
	ts := int64(0)
	prev := 0
	for i := 0; i < 50; i++ {
		for _, ev := range []cycle.Event{up, stable, down, stable, up, down} {
			ts += 100 + int64(i%3)*70
			m.Process(ev, ts)
			require.GreaterOrEqual(t, m.Count(), prev)
			prev = m.Count()
		}
	}
	require.Positive(t, m.Count())
}

func TestStateMachineReset(t *testing.T) {
	m := cycle.NewStateMachine()
	require.Equal(t, int64(-1), m.TimeSinceLastTransition(10))

	m.Process(up, 1000)
	require.Equal(t, int64(500), m.TimeSinceLastTransition(1500))

	m.Reset()
	m.Reset()
	require.Equal(t, cycle.Seated, m.State())
	require.Zero(t, m.Count())
	require.Equal(t, int64(-1), m.TimeSinceLastTransition(1500))

	// No debounce carried over from before the reset.
	require.True(t, m.Process(up, 1001))
}

func TestStateNames(t *testing.T) {
	require.Equal(t, "SEATED", cycle.Seated.String())
	require.Equal(t, "RISING", cycle.Rising.String())
	require.Equal(t, "STANDING", cycle.Standing.String())
	require.Equal(t, "LOWERING", cycle.Lowering.String())
	require.Equal(t, "MovementStart(DOWN)", down.String())
	require.Equal(t, "StabilityReached", stable.String())
}

func TestStateTextRoundTrip(t *testing.T) {
	for _, st := range []cycle.State{cycle.Seated, cycle.Rising, cycle.Standing, cycle.Lowering} {
		b, err := st.MarshalText()
		require.NoError(t, err)
		var got cycle.State
		require.NoError(t, got.UnmarshalText(b))
		require.Equal(t, st, got)
	}
	var s cycle.State
	require.Error(t, s.UnmarshalText([]byte("FLYING")))
}
