// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonFinite is returned for samples carrying NaN or ±Inf.
var ErrNonFinite = errors.New("imu: non-finite sample value")

// Sample is one merged accelerometer + gyroscope reading.
type Sample struct {
	TimestampMs int64 `json:"timestamp_ms"` // monotonic milliseconds

	Gx float64 `json:"gyro_x"` // rad/s
	Gy float64 `json:"gyro_y"`
	Gz float64 `json:"gyro_z"`

	Ax float64 `json:"accel_x"` // m/s²
	Ay float64 `json:"accel_y"`
	Az float64 `json:"accel_z"`
}

// Validate rejects samples that would poison the filters.
func (s Sample) Validate() error {
	for i, v := range [6]float64{s.Gx, s.Gy, s.Gz, s.Ax, s.Ay, s.Az} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v at t=%dms", ErrNonFinite, channelNames[i], v, s.TimestampMs)
		}
	}
	return nil
}

var channelNames = [6]string{"gyro_x", "gyro_y", "gyro_z", "accel_x", "accel_y", "accel_z"}

// Axis selects one gyroscope channel. The zero value means unset.
type Axis int

const (
	AxisX Axis = iota + 1
	AxisY
	AxisZ
)

// ParseAxis accepts "gyro_x", "x" and friends.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "gyro_x", "x", "X":
		return AxisX, nil
	case "gyro_y", "y", "Y":
		return AxisY, nil
	case "gyro_z", "z", "Z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("imu: unknown gyro axis %q", s)
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "gyro_x"
	case AxisY:
		return "gyro_y"
	case AxisZ:
		return "gyro_z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Gyro returns the angular rate on the given axis.
func (s Sample) Gyro(a Axis) float64 {
	switch a {
	case AxisX:
		return s.Gx
	case AxisZ:
		return s.Gz
	default:
		return s.Gy
	}
}

// Source is anything that can provide samples over time: a sensor, a
// serial bridge, a replay file or a synthetic generator. Next returns
// io.EOF when a finite source is exhausted.
type Source interface {
	Next() (Sample, error)
}
