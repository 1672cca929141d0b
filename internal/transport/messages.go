// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package transport

import "fmt"

// CycleEvent is published every time the authoritative count increases.
type CycleEvent struct {
	Count       int    `json:"count"`
	Mode        string `json:"mode"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// Action is a session control command.
type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionReset  Action = "reset"
)

// Control is a command sent to the counter on the control topic.
type Control struct {
	Action Action `json:"action"`

	// Only read for start.
	Patient              string `json:"patient,omitempty"`
	ParticipantID        string `json:"participantId,omitempty"`
	HealthProfessionalID string `json:"healthProfessionalId,omitempty"`
	HealthcareUnitID     string `json:"healthcareUnitId,omitempty"`
}

// Validate rejects unknown actions.
func (c Control) Validate() error {
	switch c.Action {
	case ActionStart, ActionStop, ActionPause, ActionResume, ActionReset:
		return nil
	}
	return fmt.Errorf("transport: unknown control action %q", c.Action)
}

// Envelope wraps a payload with its kind for the browser stream.
type Envelope struct {
	Type string `json:"type"` // status, cycle, result
	Data any    `json:"data"`
}
