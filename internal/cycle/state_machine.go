// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle

import "log/slog"

const (
	// DebounceMs is the minimum gap between two accepted transitions.
	DebounceMs = 150
	// MinMovementMs is how long RISING or LOWERING must last before
	// stability is allowed to end it.
	MinMovementMs = 200
)

// StateMachine validates posture transitions and counts completed
// repetitions. A repetition is counted on LOWERING -> SEATED.
type StateMachine struct {
	log *slog.Logger

	state   State
	count   int
	hasLast bool
	lastMs  int64 // last accepted transition
	entryMs int64 // entry into the current state
}

// NewStateMachine returns a machine in SEATED with a zero count.
func NewStateMachine(opts ...Option) *StateMachine {
	o := buildOptions(opts)
	return &StateMachine{log: o.log}
}

// Process applies ev at tsMs and reports whether the state changed.
// Events inside the debounce window are rejected outright.
func (m *StateMachine) Process(ev Event, tsMs int64) bool {
	if m.hasLast && tsMs-m.lastMs < DebounceMs {
		return false
	}

	next, ok := m.next(ev, tsMs)
	if !ok || next == m.state {
		return false
	}

	prev := m.state
	m.state = next
	m.hasLast = true
	m.lastMs = tsMs
	m.entryMs = tsMs

	if prev == Lowering && next == Seated {
		m.count++
	}
	m.log.Debug("fsm: transition", "from", prev, "to", next, "event", ev, "t_ms", tsMs, "count", m.count)
	return true
}

func (m *StateMachine) next(ev Event, tsMs int64) (State, bool) {
	switch m.state {
	case Seated:
		if ev.Kind == KindMovement && ev.Direction == Up {
			return Rising, true
		}
	case Rising:
		switch {
		case ev.Kind == KindStability && tsMs-m.entryMs >= MinMovementMs:
			return Standing, true
		case ev.Kind == KindMovement && ev.Direction == Down:
			m.log.Debug("fsm: rise aborted", "t_ms", tsMs)
			return Seated, true
		}
	case Standing:
		if ev.Kind == KindMovement && ev.Direction == Down {
			return Lowering, true
		}
	case Lowering:
		switch {
		case ev.Kind == KindStability && tsMs-m.entryMs >= MinMovementMs:
			return Seated, true
		case ev.Kind == KindMovement && ev.Direction == Up:
			m.log.Debug("fsm: sit reversed", "t_ms", tsMs)
			return Standing, true
		}
	}
	return m.state, false
}

// State returns the current phase.
func (m *StateMachine) State() State { return m.state }

// Count returns completed repetitions.
func (m *StateMachine) Count() int { return m.count }

// TimeSinceLastTransition returns nowMs minus the last accepted transition,
// or -1 if nothing has been accepted since the last Reset.
func (m *StateMachine) TimeSinceLastTransition(nowMs int64) int64 {
	if !m.hasLast {
		return -1
	}
	return nowMs - m.lastMs
}

// Reset returns to SEATED with a zero count and forgets all timestamps.
func (m *StateMachine) Reset() {
	m.state = Seated
	m.count = 0
	m.hasLast = false
	m.lastMs = 0
	m.entryMs = 0
}
