// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/relabs-tech/sts_counter/internal/imu"
	"github.com/relabs-tech/sts_counter/internal/session"
)

// ReplayOptions selects what to run over a recorded CSV.
type ReplayOptions struct {
	Path       string
	Mode       string
	Axis       string
	DurationMs int64
	JSON       bool // also print the result payload
}

// RunReplay re-counts a recorded session offline and writes the summary to w.
func RunReplay(opts ReplayOptions, w io.Writer) (session.Result, error) {
	mode, err := session.ParseMode(opts.Mode)
	if err != nil {
		return session.Result{}, err
	}
	axis, err := imu.ParseAxis(opts.Axis)
	if err != nil {
		return session.Result{}, err
	}

	f, err := os.Open(opts.Path)
	if err != nil {
		return session.Result{}, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	samples, err := session.ReadCSV(f)
	if err != nil {
		return session.Result{}, fmt.Errorf("replay: %s: %w", opts.Path, err)
	}
	if len(samples) == 0 {
		return session.Result{}, fmt.Errorf("replay: %s has no samples", opts.Path)
	}

	sess := session.New(session.Config{
		DurationMs: opts.DurationMs,
		Mode:       mode,
		Axis:       axis,
		Logger:     slog.Default(),
	})
	sess.Start(samples[0].TimestampMs)

	skipped := 0
	for _, s := range samples {
		err := sess.Process(s)
		if errors.Is(err, session.ErrFinished) {
			break
		}
		if err != nil {
			skipped++
			slog.Warn("replay: sample skipped", "timestamp_ms", s.TimestampMs, "err", err)
		}
	}
	sess.Stop()

	res := sess.Result()
	fmt.Fprint(w, sess.Summary())
	fmt.Fprintf(w, "  samples: %d (skipped %d), time %s\n", len(samples), skipped, res.TotalTime)
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return res, fmt.Errorf("replay: encode result: %w", err)
		}
	}
	return res, nil
}
