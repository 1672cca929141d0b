// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle

import (
	"fmt"
	"log/slog"

	"github.com/relabs-tech/sts_counter/internal/calibration"
	"github.com/relabs-tech/sts_counter/internal/features"
	"github.com/relabs-tech/sts_counter/internal/filter"
	"github.com/relabs-tech/sts_counter/internal/imu"
)

const (
	// StabilityHoldMs is how long the gyro RMS must stay under the
	// stability threshold before StabilityReached is emitted.
	StabilityHoldMs = 150
	// DirectionThreshold is the pitch/yaw mean (rad/s) that marks a clear
	// direction.
	DirectionThreshold = 0.15
	// AmbiguousMovementFactor scales the movement threshold above which an
	// undirected movement is resolved from the current state.
	AmbiguousMovementFactor = 1.5
)

// Diagnostics is the most recent feature analysis.
type Diagnostics struct {
	TimestampMs int64                   `json:"timestamp_ms"`
	Gyro        features.SignalFeatures `json:"gyro"`
	Accel       features.SignalFeatures `json:"accel"`
	PitchMean   float64                 `json:"pitch_mean"`
	YawMean     float64                 `json:"yaw_mean"`
	Moving      bool                    `json:"moving"`
	Stable      bool                    `json:"stable"`
}

// FusionDetector smooths the gyro and accel channels, calibrates thresholds
// from the first seconds of rest and feeds movement/stability events to a
// StateMachine.
type FusionDetector struct {
	observer Observer
	log      *slog.Logger

	gyroX, gyroY, gyroZ    *filter.EMA
	accelX, accelY, accelZ *filter.EMA

	gyroMag  *filter.Window
	accelMag *filter.Window
	pitch    *filter.Window
	yaw      *filter.Window

	fsm *StateMachine
	cal *calibration.Calibrator

	clock         clock
	wasStable     bool
	stableSinceMs int64
	diag          Diagnostics
}

// NewFusionDetector builds a detector ready for its first sample.
func NewFusionDetector(opts ...Option) *FusionDetector {
	o := buildOptions(opts)
	calOpts := append([]calibration.Option{calibration.WithLogger(o.log)}, o.calibration...)
	return &FusionDetector{
		observer: o.observer,
		log:      o.log,
		gyroX:    filter.NewEMA(filter.GyroAlpha),
		gyroY:    filter.NewEMA(filter.GyroAlpha),
		gyroZ:    filter.NewEMA(filter.GyroAlpha),
		accelX:   filter.NewEMA(filter.AccelAlpha),
		accelY:   filter.NewEMA(filter.AccelAlpha),
		accelZ:   filter.NewEMA(filter.AccelAlpha),
		gyroMag:  filter.NewWindow(filter.MagnitudeWindowSize),
		accelMag: filter.NewWindow(filter.MagnitudeWindowSize),
		pitch:    filter.NewWindow(filter.DirectionWindowSize),
		yaw:      filter.NewWindow(filter.DirectionWindowSize),
		fsm:      NewStateMachine(WithLogger(o.log)),
		cal:      calibration.New(calOpts...),
	}
}

// Process consumes one sample. Non-finite or out-of-order samples are
// rejected with an error and leave the detector untouched.
func (d *FusionDetector) Process(s imu.Sample) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSample, err)
	}
	if err := d.clock.check(s.TimestampMs); err != nil {
		return err
	}
	d.clock.advance(s.TimestampMs)
	ts := s.TimestampMs

	gx := d.gyroX.Filter(s.Gx)
	gy := d.gyroY.Filter(s.Gy)
	gz := d.gyroZ.Filter(s.Gz)
	ax := d.accelX.Filter(s.Ax)
	ay := d.accelY.Filter(s.Ay)
	az := d.accelZ.Filter(s.Az)

	gyroMag := features.Magnitude3D(gx, gy, gz)
	accelMag := features.Magnitude3D(ax, ay, az)

	d.gyroMag.Add(gyroMag)
	d.accelMag.Add(accelMag)
	d.pitch.Add(gx)
	d.yaw.Add(gy)

	if !d.cal.Calibrated() {
		d.cal.AddSample(gyroMag, accelMag, ts)
		return nil
	}
	if !d.gyroMag.Full() {
		return nil
	}

	gyroFeat := features.Extract(d.gyroMag.Values())
	pitchMean := features.Mean(d.pitch.Values())
	yawMean := features.Mean(d.yaw.Values())

	d.diag = Diagnostics{
		TimestampMs: ts,
		Gyro:        gyroFeat,
		Accel:       features.Extract(d.accelMag.Values()),
		PitchMean:   pitchMean,
		YawMean:     yawMean,
	}

	ev, ok := d.analyze(gyroFeat.RMS, pitchMean, yawMean, ts)
	if !ok {
		return nil
	}

	prevCount := d.fsm.Count()
	if !d.fsm.Process(ev, ts) {
		return nil
	}
	d.observer.OnStateChange(d.fsm.State())
	if n := d.fsm.Count(); n > prevCount {
		d.log.Info("fusion: repetition", "count", n, "t_ms", ts)
		d.observer.OnCycleComplete(n)
	}
	return nil
}

func (d *FusionDetector) analyze(rms, pitch, yaw float64, ts int64) (Event, bool) {
	moving := rms > d.cal.MovementThreshold()
	stable := rms < d.cal.StabilityThreshold()
	d.diag.Moving = moving
	d.diag.Stable = stable

	if stable {
		if !d.wasStable {
			d.wasStable = true
			d.stableSinceMs = ts
		}
		if ts-d.stableSinceMs >= StabilityHoldMs {
			return StabilityReached(), true
		}
	} else {
		d.wasStable = false
	}

	if !moving {
		return Event{}, false
	}

	combined := pitch + yaw
	up := combined > DirectionThreshold || pitch > DirectionThreshold
	down := combined < -DirectionThreshold || pitch < -DirectionThreshold

	switch {
	case up && !down:
		return MovementStart(Up), true
	case down && !up:
		return MovementStart(Down), true
	}

	if rms > d.cal.MovementThreshold()*AmbiguousMovementFactor {
		switch d.fsm.State() {
		case Seated:
			return MovementStart(Up), true
		case Standing:
			return MovementStart(Down), true
		}
	}
	return Event{}, false
}

// Count returns completed repetitions.
func (d *FusionDetector) Count() int { return d.fsm.Count() }

// State returns the current posture phase.
func (d *FusionDetector) State() State { return d.fsm.State() }

// Calibrating reports whether the resting baseline is still being collected.
func (d *FusionDetector) Calibrating() bool { return !d.cal.Calibrated() }

// CalibrationProgress returns calibration completion in [0,1] at nowMs.
func (d *FusionDetector) CalibrationProgress(nowMs int64) float64 { return d.cal.Progress(nowMs) }

// Profile returns the active thresholds.
func (d *FusionDetector) Profile() calibration.Profile { return d.cal.Profile() }

// Diagnostics returns the last feature analysis (zero until calibrated).
func (d *FusionDetector) Diagnostics() Diagnostics { return d.diag }

// Reset prepares the detector for a new session.
func (d *FusionDetector) Reset() {
	for _, f := range []*filter.EMA{d.gyroX, d.gyroY, d.gyroZ, d.accelX, d.accelY, d.accelZ} {
		f.Reset()
	}
	for _, w := range []*filter.Window{d.gyroMag, d.accelMag, d.pitch, d.yaw} {
		w.Clear()
	}
	d.fsm.Reset()
	d.cal.Reset()
	d.clock.reset()
	d.wasStable = false
	d.stableSinceMs = 0
	d.diag = Diagnostics{}
}

func (d *FusionDetector) String() string {
	p := d.cal.Profile()
	return fmt.Sprintf("fusion: state=%s cycles=%d calibrated=%t movement_threshold=%.4f stability_threshold=%.4f",
		d.fsm.State(), d.fsm.Count(), p.Calibrated, p.MovementThreshold, p.StabilityThreshold)
}
