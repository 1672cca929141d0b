// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu_test

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sts_counter/internal/imu"
)

func TestValidate(t *testing.T) {
	require.NoError(t, imu.Sample{TimestampMs: 10, Az: 9.81}.Validate())

	err := imu.Sample{Gy: math.NaN()}.Validate()
	require.ErrorIs(t, err, imu.ErrNonFinite)
	require.Contains(t, err.Error(), "gyro_y")

	require.ErrorIs(t, imu.Sample{Az: math.Inf(-1)}.Validate(), imu.ErrNonFinite)
}

func TestParseAxis(t *testing.T) {
	for in, want := range map[string]imu.Axis{
		"gyro_x": imu.AxisX, "y": imu.AxisY, "Z": imu.AxisZ,
	} {
		got, err := imu.ParseAxis(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := imu.ParseAxis("pitch")
	require.Error(t, err)

	s := imu.Sample{Gx: 1, Gy: 2, Gz: 3}
	require.Equal(t, 1.0, s.Gyro(imu.AxisX))
	require.Equal(t, 2.0, s.Gyro(imu.AxisY))
	require.Equal(t, 3.0, s.Gyro(imu.AxisZ))
	require.Equal(t, "gyro_z", imu.AxisZ.String())
	require.Equal(t, "Axis(0)", imu.Axis(0).String())
}

func TestRawConversion(t *testing.T) {
	s := imu.Raw{TimestampMs: 5, Az: 16384, Gx: 131}.Sample()
	require.Equal(t, int64(5), s.TimestampMs)
	require.InDelta(t, 9.80665, s.Az, 1e-9)
	require.InDelta(t, math.Pi/180, s.Gx, 1e-12)
	require.Zero(t, s.Gy)
}

type failingRaw struct{}

func (failingRaw) NextRaw() (imu.Raw, error) { return imu.Raw{}, errors.New("bus error") }

func TestRawAdapterPropagatesErrors(t *testing.T) {
	_, err := imu.RawAdapter{Raw: failingRaw{}}.Next()
	require.EqualError(t, err, "bus error")
}

func TestMergerPairsWithinTolerance(t *testing.T) {
	m := imu.NewMerger(0)

	require.Empty(t, m.PushAccel(imu.Reading{TimestampMs: 100, Z: 9.8}))
	out := m.PushGyro(imu.Reading{TimestampMs: 120, Y: 0.5})
	require.Len(t, out, 1)
	require.Equal(t, imu.Sample{TimestampMs: 100, Gy: 0.5, Az: 9.8}, out[0])

	a, g := m.Pending()
	require.Zero(t, a)
	require.Zero(t, g)
	require.Zero(t, m.Dropped())
}

func TestMergerDropsOlderHead(t *testing.T) {
	m := imu.NewMerger(25)

	m.PushGyro(imu.Reading{TimestampMs: 0})
	m.PushGyro(imu.Reading{TimestampMs: 40, X: 1})
	out := m.PushAccel(imu.Reading{TimestampMs: 50, X: 2})

	require.Len(t, out, 1)
	require.Equal(t, int64(50), out[0].TimestampMs)
	require.Equal(t, 1.0, out[0].Gx)
	require.Equal(t, 2.0, out[0].Ax)
	require.Equal(t, 1, m.Dropped())

	// Accel far ahead of gyro: the stale gyro goes.
	m.PushGyro(imu.Reading{TimestampMs: 60})
	m.PushAccel(imu.Reading{TimestampMs: 200})
	a, g := m.Pending()
	require.Equal(t, 1, a)
	require.Zero(t, g)
	require.Equal(t, 2, m.Dropped())

	m.Reset()
	a, g = m.Pending()
	require.Zero(t, a+g)
	require.Zero(t, m.Dropped())
}

func TestMergerBoundaryIsInclusive(t *testing.T) {
	m := imu.NewMerger(25)
	m.PushAccel(imu.Reading{TimestampMs: 0})
	require.Len(t, m.PushGyro(imu.Reading{TimestampMs: 25}), 1)

	m.PushAccel(imu.Reading{TimestampMs: 100})
	require.Empty(t, m.PushGyro(imu.Reading{TimestampMs: 126}))
	require.Equal(t, 1, m.Dropped())
}

func TestSyntheticSourceShape(t *testing.T) {
	src := imu.NewSyntheticSource(imu.DefaultSyntheticConfig())
	samples, err := imu.Collect(src)
	require.NoError(t, err)
	require.Len(t, samples, 1501) // 0..30000ms at 50Hz

	_, err = src.Next()
	require.ErrorIs(t, err, io.EOF)

	for i := 1; i < len(samples); i++ {
		require.Equal(t, samples[i-1].TimestampMs+20, samples[i].TimestampMs)
	}

	// Rest lead is flat with gravity on Y.
	rest := samples[10]
	require.Zero(t, rest.Gx)
	require.InDelta(t, 9.80665, rest.Ay, 1e-9)

	// Mid-rise pitch is positive, mid-sit pitch negative.
	require.InDelta(t, 1.0, samples[(3000+400)/20].Gx, 1e-9)
	require.InDelta(t, -1.0, samples[(5500+400)/20].Gx, 1e-9)

	// Y carries +, - within each movement.
	require.InDelta(t, 0.5, samples[(3000+200)/20].Gy, 1e-9)
	require.InDelta(t, -0.5, samples[(3000+600)/20].Gy, 1e-9)

	// Tail after the last cycle is still.
	require.Zero(t, samples[len(samples)-1].Gx)

	src.Reset()
	first, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, samples[0], first)
}

func TestSyntheticSourceDefaultsAndOffset(t *testing.T) {
	src := imu.NewSyntheticSource(imu.SyntheticConfig{Cycles: 1, StartMs: 1000, GravityAxZ: true})
	samples, err := imu.Collect(src)
	require.NoError(t, err)
	require.Equal(t, int64(1000), samples[0].TimestampMs)
	require.Equal(t, int64(1000+5000), samples[len(samples)-1].TimestampMs)
	require.InDelta(t, 9.80665, samples[0].Az, 1e-9)
}
