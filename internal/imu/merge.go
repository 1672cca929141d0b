// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// DefaultMergeToleranceMs is the largest accel/gyro timestamp gap that still
// pairs into one Sample.
const DefaultMergeToleranceMs = 25

// Reading is a single 3-axis reading from one sensor.
type Reading struct {
	TimestampMs int64   `json:"timestamp_ms"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
}

// Merger pairs independently delivered accelerometer and gyroscope readings.
// Heads of both queues are matched while they are within tolerance; otherwise
// the older head is dropped. Not safe for concurrent use.
type Merger struct {
	toleranceMs int64
	accel       []Reading
	gyro        []Reading
	dropped     int
}

// NewMerger creates a merger. toleranceMs <= 0 selects the default.
func NewMerger(toleranceMs int64) *Merger {
	if toleranceMs <= 0 {
		toleranceMs = DefaultMergeToleranceMs
	}
	return &Merger{toleranceMs: toleranceMs}
}

// PushAccel queues an accelerometer reading and returns any samples that
// could be merged as a result.
func (m *Merger) PushAccel(r Reading) []Sample {
	m.accel = append(m.accel, r)
	return m.drain()
}

// PushGyro queues a gyroscope reading and returns any merged samples.
func (m *Merger) PushGyro(r Reading) []Sample {
	m.gyro = append(m.gyro, r)
	return m.drain()
}

func (m *Merger) drain() []Sample {
	var out []Sample
	for len(m.accel) > 0 && len(m.gyro) > 0 {
		acc, gyr := m.accel[0], m.gyro[0]
		diff := acc.TimestampMs - gyr.TimestampMs
		if diff < 0 {
			diff = -diff
		}

		switch {
		case diff <= m.toleranceMs:
			out = append(out, Sample{
				TimestampMs: acc.TimestampMs,
				Gx:          gyr.X,
				Gy:          gyr.Y,
				Gz:          gyr.Z,
				Ax:          acc.X,
				Ay:          acc.Y,
				Az:          acc.Z,
			})
			m.accel = m.accel[1:]
			m.gyro = m.gyro[1:]
		case acc.TimestampMs < gyr.TimestampMs:
			m.accel = m.accel[1:]
			m.dropped++
		default:
			m.gyro = m.gyro[1:]
			m.dropped++
		}
	}
	return out
}

// Pending returns how many accel and gyro readings are waiting for a partner.
func (m *Merger) Pending() (accel, gyro int) { return len(m.accel), len(m.gyro) }

// Dropped returns how many readings were discarded for lack of a partner.
func (m *Merger) Dropped() int { return m.dropped }

// Reset empties both queues.
func (m *Merger) Reset() {
	m.accel = nil
	m.gyro = nil
	m.dropped = 0
}
