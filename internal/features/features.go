// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package features computes window statistics over scalar sensor channels.
package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SignalFeatures summarizes one window of samples.
type SignalFeatures struct {
	Energy   float64 `json:"energy"`   // Σx²
	Variance float64 `json:"variance"` // sample variance (n-1)
	Mean     float64 `json:"mean"`
	RMS      float64 `json:"rms"` // sqrt(Energy/n)
}

// Extract computes the features of window. An empty window yields zeros and
// a single-element window has zero variance.
func Extract(window []float64) SignalFeatures {
	n := len(window)
	if n == 0 {
		return SignalFeatures{}
	}

	energy := floats.Dot(window, window)
	f := SignalFeatures{
		Energy: energy,
		Mean:   stat.Mean(window, nil),
		RMS:    math.Sqrt(energy / float64(n)),
	}
	if n > 1 {
		f.Variance = stat.Variance(window, nil)
	}
	return f
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// Magnitude3D is the Euclidean norm of a 3-axis reading.
func Magnitude3D(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// Magnitude2D is the Euclidean norm in a single plane.
func Magnitude2D(x, y float64) float64 {
	return math.Sqrt(x*x + y*y)
}
