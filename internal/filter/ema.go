// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter holds the per-channel smoothing and windowing primitives
// used by the cycle detectors.
package filter

// Typical smoothing factors. Lower alpha is smoother but lags more.
const (
	GyroAlpha  = 0.3
	AccelAlpha = 0.4
)

// EMA is an exponential moving average over a single scalar channel.
//
//	y = alpha*x + (1-alpha)*y_prev
//
// The first sample passes through unchanged.
type EMA struct {
	alpha float64
	value float64
	has   bool
}

// NewEMA returns a filter with the given smoothing factor. Alpha must be in
// (0,1]; anything outside that range disables smoothing (alpha = 1).
func NewEMA(alpha float64) *EMA {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &EMA{alpha: alpha}
}

// Filter feeds x through the filter and returns the smoothed value.
func (f *EMA) Filter(x float64) float64 {
	if !f.has {
		f.value = x
		f.has = true
		return x
	}
	f.value = f.alpha*x + (1-f.alpha)*f.value
	return f.value
}

// Value returns the last output, or false if the filter has no history.
func (f *EMA) Value() (float64, bool) {
	return f.value, f.has
}

// Alpha returns the smoothing factor in use.
func (f *EMA) Alpha() float64 { return f.alpha }

// Reset drops the history; the next sample passes through unchanged.
func (f *EMA) Reset() {
	f.value = 0
	f.has = false
}
