// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sts_counter/internal/calibration"
	"github.com/relabs-tech/sts_counter/internal/cycle"
	"github.com/relabs-tech/sts_counter/internal/imu"
)

type recorder struct {
	counts []int
	states []cycle.State
}

func (r *recorder) OnCycleComplete(n int) { r.counts = append(r.counts, n) }
func (r *recorder) OnStateChange(s cycle.State) { r.states = append(r.states, s) }

func rest(ts int64) imu.Sample { return imu.Sample{TimestampMs: ts, Ay: 9.81} }

func TestFusionCalibratesBeforeDetecting(t *testing.T) {
	d := cycle.NewFusionDetector()
	require.True(t, d.Calibrating())
	require.Equal(t, calibration.DefaultMovementThreshold, d.Profile().MovementThreshold)

	for ts := int64(0); ts < 2000; ts += 20 {
		require.NoError(t, d.Process(rest(ts)))
	}
	require.True(t, d.Calibrating())
	require.InDelta(t, 0.99, d.CalibrationProgress(1980), 1e-9)

	require.NoError(t, d.Process(rest(2000)))
	require.False(t, d.Calibrating())
	require.Equal(t, calibration.MinMovementThreshold, d.Profile().MovementThreshold)
	require.Equal(t, calibration.MinStabilityThreshold, d.Profile().StabilityThreshold)
	require.Equal(t, 1.0, d.CalibrationProgress(0))
}

func TestFusionMovementDuringCalibrationIgnored(t *testing.T) {
	rec := &recorder{}
	d := cycle.NewFusionDetector(cycle.WithObserver(rec))
	for ts := int64(0); ts < 2000; ts += 20 {
		require.NoError(t, d.Process(imu.Sample{TimestampMs: ts, Gx: 2, Ay: 9.81}))
	}
	require.Equal(t, cycle.Seated, d.State())
	require.Empty(t, rec.states)
}

func TestFusionSyntheticSession(t *testing.T) {
	rec := &recorder{}
	d := cycle.NewFusionDetector(cycle.WithObserver(rec))
	p := cycle.NewPeakDetector()

	samples, err := imu.Collect(imu.NewSyntheticSource(imu.DefaultSyntheticConfig()))
	require.NoError(t, err)
	for _, s := range samples {
		require.NoError(t, d.Process(s))
		require.NoError(t, p.Process(s))
	}

	require.Equal(t, []int{1, 2, 3, 4, 5}, rec.counts)
	require.Equal(t, 5, d.Count())
	require.Equal(t, cycle.Seated, d.State())

	want := make([]cycle.State, 0, 20)
	for i := 0; i < 5; i++ {
		want = append(want, cycle.Rising, cycle.Standing, cycle.Lowering, cycle.Seated)
	}
	require.Equal(t, want, rec.states)

	require.Equal(t, 5, p.Count())
	require.Zero(t, p.HalfCycles())
}

func TestFusionAmbiguousDirectionFollowsState(t *testing.T) {
	rec := &recorder{}
	d := cycle.NewFusionDetector(cycle.WithObserver(rec))

	// Rotation on Z only: pitch and yaw stay at zero.
	spin := func(ts int64) imu.Sample { return imu.Sample{TimestampMs: ts, Gz: 2, Ay: 9.81} }

	ts := int64(0)
	feed := func(until int64, gen func(int64) imu.Sample) {
		for ; ts < until; ts += 20 {
			require.NoError(t, d.Process(gen(ts)))
		}
	}
	feed(2100, rest)
	feed(2500, spin)
	require.Equal(t, cycle.Rising, d.State())
	feed(4000, rest)
	require.Equal(t, cycle.Standing, d.State())
	feed(4500, spin)
	require.Equal(t, cycle.Lowering, d.State())
	feed(6000, rest)
	require.Equal(t, cycle.Seated, d.State())
	require.Equal(t, []int{1}, rec.counts)
}

func TestFusionRejectsBadSamples(t *testing.T) {
	d := cycle.NewFusionDetector()
	for ts := int64(0); ts <= 2100; ts += 20 {
		require.NoError(t, d.Process(rest(ts)))
	}
	before := d.Diagnostics()
	beforeProfile := d.Profile()

	err := d.Process(imu.Sample{TimestampMs: 2200, Gx: math.NaN()})
	require.ErrorIs(t, err, cycle.ErrInvalidSample)
	require.ErrorIs(t, err, imu.ErrNonFinite)

	require.ErrorIs(t, d.Process(rest(2000)), cycle.ErrOutOfOrder)

	require.Equal(t, before, d.Diagnostics())
	require.Equal(t, beforeProfile, d.Profile())

	// Equal timestamps are fine.
	require.NoError(t, d.Process(rest(2100)))
}

func TestFusionReset(t *testing.T) {
	rec := &recorder{}
	d := cycle.NewFusionDetector(cycle.WithObserver(rec))
	src := imu.NewSyntheticSource(imu.DefaultSyntheticConfig())
	samples, err := imu.Collect(src)
	require.NoError(t, err)
	for _, s := range samples {
		require.NoError(t, d.Process(s))
	}
	require.Equal(t, 5, d.Count())

	d.Reset()
	d.Reset()
	require.Zero(t, d.Count())
	require.Equal(t, cycle.Seated, d.State())
	require.True(t, d.Calibrating())
	require.Equal(t, cycle.Diagnostics{}, d.Diagnostics())

	// Same stream, same answer: nothing leaks from the previous session.
	rec.counts = nil
	for _, s := range samples {
		require.NoError(t, d.Process(s))
	}
	require.Equal(t, []int{1, 2, 3, 4, 5}, rec.counts)
}

func TestFusionCustomCalibration(t *testing.T) {
	d := cycle.NewFusionDetector(cycle.WithCalibrationOptions(
		calibration.WithDuration(500), calibration.WithMinSamples(5),
	))
	for ts := int64(0); ts <= 500; ts += 20 {
		require.NoError(t, d.Process(rest(ts)))
	}
	require.False(t, d.Calibrating())
	require.Contains(t, d.String(), "calibrated=true")
	require.Contains(t, d.String(), "state=SEATED")
}
