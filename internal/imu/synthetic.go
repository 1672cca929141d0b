// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"io"
	"math"
)

const standardGravity = 9.80665

// SyntheticConfig describes a generated sit-stand-sit stream.
//
// Each cycle starts with a rise movement, holds standing, then a sit movement
// at half the cycle and holds seated. During a movement the pitch axis (X)
// carries one half-sine lobe (positive rising, negative sitting) and the Y
// axis carries one full sine period, so a single cycle produces four
// alternating Y peaks.
type SyntheticConfig struct {
	RateHz     int
	RestMs     int64 // still period before the first cycle
	Cycles     int
	CycleMs    int64
	MoveMs     int64
	TotalMs    int64 // stream length; 0 means until the last cycle ends
	Amplitude  float64
	StartMs    int64 // timestamp of the first sample
	GravityAxZ bool  // put gravity on Z (phone flat) instead of Y (phone upright)
}

// DefaultSyntheticConfig is a 30 second test with five clean repetitions.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		RateHz:    50,
		RestMs:    3000,
		Cycles:    5,
		CycleMs:   5000,
		MoveMs:    800,
		TotalMs:   30000,
		Amplitude: 1.0,
	}
}

// SyntheticSource generates samples for SyntheticConfig. It is
// deterministic and returns io.EOF once TotalMs has been produced.
type SyntheticSource struct {
	cfg   SyntheticConfig
	index int64
}

// NewSyntheticSource creates a generator, filling zero fields with defaults.
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	def := DefaultSyntheticConfig()
	if cfg.RateHz <= 0 {
		cfg.RateHz = def.RateHz
	}
	if cfg.CycleMs <= 0 {
		cfg.CycleMs = def.CycleMs
	}
	if cfg.MoveMs <= 0 || cfg.MoveMs > cfg.CycleMs/2 {
		cfg.MoveMs = cfg.CycleMs / 2
		if def.MoveMs < cfg.MoveMs {
			cfg.MoveMs = def.MoveMs
		}
	}
	if cfg.Amplitude == 0 {
		cfg.Amplitude = def.Amplitude
	}
	if cfg.TotalMs <= 0 {
		cfg.TotalMs = cfg.RestMs + int64(cfg.Cycles)*cfg.CycleMs
	}
	return &SyntheticSource{cfg: cfg}
}

// Next returns the next generated sample.
func (g *SyntheticSource) Next() (Sample, error) {
	elapsed := g.index * 1000 / int64(g.cfg.RateHz)
	if elapsed > g.cfg.TotalMs {
		return Sample{}, io.EOF
	}
	g.index++
	return g.At(elapsed), nil
}

// At returns the sample elapsedMs after the start of the stream.
func (g *SyntheticSource) At(elapsedMs int64) Sample {
	s := Sample{TimestampMs: g.cfg.StartMs + elapsedMs}
	if g.cfg.GravityAxZ {
		s.Az = standardGravity
	} else {
		s.Ay = standardGravity
	}

	t := elapsedMs - g.cfg.RestMs
	if t < 0 || t >= int64(g.cfg.Cycles)*g.cfg.CycleMs {
		return s
	}

	off := t % g.cfg.CycleMs
	sitAt := g.cfg.CycleMs / 2
	a := g.cfg.Amplitude

	var sign float64
	var phase float64
	switch {
	case off < g.cfg.MoveMs:
		sign = 1
		phase = float64(off) / float64(g.cfg.MoveMs)
	case off >= sitAt && off < sitAt+g.cfg.MoveMs:
		sign = -1
		phase = float64(off-sitAt) / float64(g.cfg.MoveMs)
	default:
		return s
	}

	s.Gx = sign * a * math.Sin(math.Pi*phase)
	s.Gy = 0.5 * a * math.Sin(2*math.Pi*phase)
	// Forward lean while moving shows up as a small accel swing.
	s.Ax = 0.8 * a * math.Sin(math.Pi*phase)
	return s
}

// Reset rewinds the generator.
func (g *SyntheticSource) Reset() { g.index = 0 }

// Collect drains src into a slice, stopping at io.EOF.
func Collect(src Source) ([]Sample, error) {
	var out []Sample
	for {
		s, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
}
