// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "math"

// Full-scale sensitivities for the default MPU-9250 ranges
// (accel ±2g, gyro ±250°/s).
const (
	AccelLSBPerG   = 16384.0
	GyroLSBPerDegS = 131.0
)

// Raw is a single raw accel+gyro reading in sensor counts.
type Raw struct {
	TimestampMs int64 `json:"timestamp_ms"`

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// RawSource delivers raw register readings.
type RawSource interface {
	NextRaw() (Raw, error)
}

// Sample converts counts to SI units using the default full-scale ranges.
func (r Raw) Sample() Sample {
	const (
		accelScale = standardGravity / AccelLSBPerG
		gyroScale  = math.Pi / 180 / GyroLSBPerDegS
	)
	return Sample{
		TimestampMs: r.TimestampMs,
		Gx:          float64(r.Gx) * gyroScale,
		Gy:          float64(r.Gy) * gyroScale,
		Gz:          float64(r.Gz) * gyroScale,
		Ax:          float64(r.Ax) * accelScale,
		Ay:          float64(r.Ay) * accelScale,
		Az:          float64(r.Az) * accelScale,
	}
}

// RawAdapter turns a RawSource into a Source.
type RawAdapter struct {
	Raw RawSource
}

// Next reads and converts one raw reading.
func (a RawAdapter) Next() (Sample, error) {
	r, err := a.Raw.NextRaw()
	if err != nil {
		return Sample{}, err
	}
	return r.Sample(), nil
}
