// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

// Window sizes used by the fusion detector.
const (
	MagnitudeWindowSize = 5 // ~200ms at 25Hz
	DirectionWindowSize = 3
)

// Window is a fixed-capacity FIFO of the most recent samples. Once full,
// every Add evicts the oldest value.
type Window struct {
	buf   []float64
	start int
	size  int
}

// NewWindow creates a window holding at most n values. n < 1 is treated as 1.
func NewWindow(n int) *Window {
	if n < 1 {
		n = 1
	}
	return &Window{buf: make([]float64, n)}
}

// Add appends x, evicting the oldest value if the window is full.
func (w *Window) Add(x float64) {
	capacity := len(w.buf)
	if w.size < capacity {
		w.buf[(w.start+w.size)%capacity] = x
		w.size++
		return
	}
	w.buf[w.start] = x
	w.start = (w.start + 1) % capacity
}

// Full reports whether the window holds its full capacity.
func (w *Window) Full() bool { return w.size >= len(w.buf) }

// Len returns the number of values currently held.
func (w *Window) Len() int { return w.size }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Values returns a copy of the contents, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Clear empties the window.
func (w *Window) Clear() {
	w.start = 0
	w.size = 0
}
