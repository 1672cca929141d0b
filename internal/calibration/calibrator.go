// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration estimates the subject's resting gyroscope baseline at
// the start of a session and derives movement/stability thresholds from it.
package calibration

import (
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultDurationMs = 2000
	DefaultMinSamples = 30 // ~1.2s at 25Hz

	movementMultiplier  = 2.0
	stabilityMultiplier = 1.2

	DefaultMovementThreshold  = 0.8
	DefaultStabilityThreshold = 0.3

	MinMovementThreshold  = 0.4
	MaxMovementThreshold  = 3.0
	MinStabilityThreshold = 0.15
	MaxStabilityThreshold = 0.8
)

// Profile is the calibration outcome. Thresholds are in rad/s and hold the
// defaults until Calibrated is true.
type Profile struct {
	Calibrated         bool    `json:"calibrated"`
	Samples            int     `json:"samples"`
	BaselineEnergy     float64 `json:"baseline_energy"`
	BaselineAccel      float64 `json:"baseline_accel"` // mean accel magnitude, ~g at rest
	MovementThreshold  float64 `json:"movement_threshold"`
	StabilityThreshold float64 `json:"stability_threshold"`
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithDuration sets how long the resting period lasts.
func WithDuration(ms int64) Option {
	return func(c *Calibrator) {
		if ms > 0 {
			c.durationMs = ms
		}
	}
}

// WithMinSamples sets how many samples are required before finalizing.
func WithMinSamples(n int) Option {
	return func(c *Calibrator) {
		if n > 0 {
			c.minSamples = n
		}
	}
}

// WithLogger attaches a debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Calibrator) {
		if l != nil {
			c.log = l
		}
	}
}

// Calibrator accumulates gyro/accel magnitudes for a bootstrap period and
// then freezes a Profile until Reset.
type Calibrator struct {
	durationMs int64
	minSamples int
	log        *slog.Logger

	profile Profile
	gyro    []float64
	accel   []float64
	started bool
	startMs int64
}

// New returns an uncalibrated Calibrator.
func New(opts ...Option) *Calibrator {
	c := &Calibrator{
		durationMs: DefaultDurationMs,
		minSamples: DefaultMinSamples,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// AddSample records one pair of magnitudes. Samples arriving after
// calibration completed are ignored.
func (c *Calibrator) AddSample(gyroMagnitude, accelMagnitude float64, timestampMs int64) {
	if c.profile.Calibrated {
		return
	}
	if !c.started {
		c.started = true
		c.startMs = timestampMs
		c.log.Debug("calibration: started", "t_ms", timestampMs)
	}

	c.gyro = append(c.gyro, gyroMagnitude)
	c.accel = append(c.accel, accelMagnitude)

	if timestampMs-c.startMs >= c.durationMs && len(c.gyro) >= c.minSamples {
		c.finalize()
	}
}

// ForceFinalize ends calibration early with whatever was collected.
func (c *Calibrator) ForceFinalize() {
	if !c.profile.Calibrated {
		c.finalize()
	}
}

func (c *Calibrator) finalize() {
	c.profile.Calibrated = true
	c.profile.Samples = len(c.gyro)
	if len(c.gyro) == 0 {
		c.log.Warn("calibration: no samples, keeping default thresholds")
		return
	}

	c.profile.BaselineEnergy = floats.Dot(c.gyro, c.gyro) / float64(len(c.gyro))
	c.profile.BaselineAccel = floats.Sum(c.accel) / float64(len(c.accel))
	baselineRMS := math.Sqrt(c.profile.BaselineEnergy)
	c.profile.MovementThreshold = clamp(baselineRMS*movementMultiplier, MinMovementThreshold, MaxMovementThreshold)
	c.profile.StabilityThreshold = clamp(baselineRMS*stabilityMultiplier, MinStabilityThreshold, MaxStabilityThreshold)

	c.log.Debug("calibration: complete",
		"samples", len(c.gyro),
		"baseline_rms", baselineRMS,
		"movement_threshold", c.profile.MovementThreshold,
		"stability_threshold", c.profile.StabilityThreshold,
	)
}

// Calibrated reports whether the profile is frozen.
func (c *Calibrator) Calibrated() bool { return c.profile.Calibrated }

// Profile returns the current thresholds (defaults before calibration).
func (c *Calibrator) Profile() Profile { return c.profile }

// MovementThreshold is the gyro RMS above which the subject is moving.
func (c *Calibrator) MovementThreshold() float64 { return c.profile.MovementThreshold }

// StabilityThreshold is the gyro RMS below which the subject is still.
func (c *Calibrator) StabilityThreshold() float64 { return c.profile.StabilityThreshold }

// Progress returns how far through the resting period nowMs is, in [0,1].
func (c *Calibrator) Progress(nowMs int64) float64 {
	if c.profile.Calibrated {
		return 1
	}
	if !c.started {
		return 0
	}
	return clamp(float64(nowMs-c.startMs)/float64(c.durationMs), 0, 1)
}

// Reset discards collected samples and restores the default thresholds.
func (c *Calibrator) Reset() {
	c.profile = Profile{
		MovementThreshold:  DefaultMovementThreshold,
		StabilityThreshold: DefaultStabilityThreshold,
	}
	c.gyro = c.gyro[:0]
	c.accel = c.accel[:0]
	c.started = false
	c.startMs = 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
