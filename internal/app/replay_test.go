// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sts_counter/internal/cycle"
	"github.com/relabs-tech/sts_counter/internal/imu"
	"github.com/relabs-tech/sts_counter/internal/session"
	"github.com/relabs-tech/sts_counter/internal/transport"
)

func writeSyntheticCSV(t *testing.T) string {
	t.Helper()
	samples, err := imu.Collect(imu.NewSyntheticSource(imu.DefaultSyntheticConfig()))
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	points := make([]session.DataPoint, len(samples))
	for i, s := range samples {
		points[i] = session.NewDataPoint(s, base.Add(time.Duration(s.TimestampMs)*time.Millisecond))
	}

	path := filepath.Join(t.TempDir(), "rec.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, session.WriteCSV(f, points))
	require.NoError(t, f.Close())
	return path
}

func TestReplayRecountsRecording(t *testing.T) {
	path := writeSyntheticCSV(t)

	for _, mode := range []string{"fusion", "peak", "both"} {
		var out bytes.Buffer
		res, err := RunReplay(ReplayOptions{Path: path, Mode: mode, Axis: "gyro_y"}, &out)
		require.NoError(t, err, mode)
		require.Equal(t, 5, res.Repetitions, mode)
		require.Equal(t, "00:30", res.TotalTime, mode)
		require.Contains(t, out.String(), "repetitions: 5 ("+mode+")")
		require.Contains(t, out.String(), "samples: 1501 (skipped 0)")
	}
}

func TestReplayJSON(t *testing.T) {
	path := writeSyntheticCSV(t)

	var out bytes.Buffer
	res, err := RunReplay(ReplayOptions{Path: path, Mode: "both", Axis: "y", JSON: true}, &out)
	require.NoError(t, err)
	require.Equal(t, cycle.Seated, res.FinalState)
	require.InDelta(t, 5000, res.Cadence.MeanIntervalMs, 1e-9)
	require.Contains(t, out.String(), `"type": "TTSTS"`)
	require.Contains(t, out.String(), `"repetitions": 5`)
}

func TestReplayErrors(t *testing.T) {
	_, err := RunReplay(ReplayOptions{Path: "missing.csv", Mode: "both", Axis: "gyro_y"}, &bytes.Buffer{})
	require.Error(t, err)

	_, err = RunReplay(ReplayOptions{Path: "x", Mode: "both", Axis: "w"}, &bytes.Buffer{})
	require.Error(t, err)

	_, err = RunReplay(ReplayOptions{Path: "x", Mode: "nope", Axis: "gyro_y"}, &bytes.Buffer{})
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("timestamp,accel_x,accel_y,accel_z,gyro_x,gyro_y,gyro_z\n"), 0o644))
	_, err = RunReplay(ReplayOptions{Path: empty, Mode: "both", Axis: "gyro_y"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestConsoleFormatting(t *testing.T) {
	line := formatStatus(session.Status{Running: true, State: cycle.Standing, Count: 4, FusionCount: 4, PeakCount: 4, Clock: "00:09"})
	require.Equal(t, "[STATE] STANDING reps= 4 (fusion=4 peak=4)  00:09", line)
	require.True(t, strings.HasSuffix(formatStatus(session.Status{Finished: true}), "finished"))
	require.True(t, strings.HasSuffix(formatStatus(session.Status{Running: true, Calibrating: true}), "calibrating"))
	require.True(t, strings.HasSuffix(formatStatus(session.Status{}), "idle"))

	require.Equal(t, "[REP  ] #3 at t=16220ms (peak)", formatCycle(transport.CycleEvent{Count: 3, TimestampMs: 16220, Mode: "peak"}))
	require.Contains(t, formatResult(session.Result{Repetitions: 9, TotalTime: "00:30"}), "9 repetitions in 00:30")
}
