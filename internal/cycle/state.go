// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package cycle turns a stream of IMU samples into counted sit-to-stand
// repetitions. It holds two independent detectors: FusionDetector, driven by
// a four-state machine over adaptive thresholds, and PeakDetector, which
// counts alternating angular-rate peaks. Neither is safe for concurrent use.
package cycle

import "fmt"

// State is the posture phase tracked by StateMachine.
type State int

const (
	Seated State = iota
	Rising
	Standing
	Lowering
)

func (s State) String() string {
	switch s {
	case Seated:
		return "SEATED"
	case Rising:
		return "RISING"
	case Standing:
		return "STANDING"
	case Lowering:
		return "LOWERING"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText lets states appear by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Seated, Rising, Standing, Lowering} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("cycle: unknown state %q", b)
}

// Direction of a detected movement.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "DOWN"
	}
	return "UP"
}

// EventKind tags an Event.
type EventKind int

const (
	KindMovement EventKind = iota
	KindStability
)

// Event is what the feature analysis feeds the state machine. Direction is
// only meaningful for KindMovement.
type Event struct {
	Kind      EventKind
	Direction Direction
}

// MovementStart reports movement in a clear (or inferred) direction.
func MovementStart(d Direction) Event { return Event{Kind: KindMovement, Direction: d} }

// StabilityReached reports the subject has been still long enough.
func StabilityReached() Event { return Event{Kind: KindStability} }

func (e Event) String() string {
	if e.Kind == KindStability {
		return "StabilityReached"
	}
	return "MovementStart(" + e.Direction.String() + ")"
}
