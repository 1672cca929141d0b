// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/relabs-tech/sts_counter/internal/imu"
)

const (
	// PeakWindow is the number of neighbours on each side a peak must beat.
	PeakWindow = 6
	// MinPeakMagnitude filters out noise-level extrema (rad/s).
	MinPeakMagnitude = 0.15
	// MinSamePeakIntervalMs debounces consecutive peaks of the same sign.
	MinSamePeakIntervalMs = 300
	// HalfCyclesPerCycle is the number of alternating peaks in one
	// sit-stand-sit repetition.
	HalfCyclesPerCycle = 4
)

const peakBufferSize = 2*PeakWindow + 1

type point struct {
	v  float64
	ts int64
}

// lastPeak is the center time of the last peak of one sign.
type lastPeak struct {
	has bool
	ts  int64
}

// PeakDetector counts repetitions from alternating positive and negative
// peaks on a single angular-rate channel. It needs no calibration.
type PeakDetector struct {
	observer Observer
	log      *slog.Logger
	axis     imu.Axis

	buf [peakBufferSize]point
	n   int

	clock            clock
	lastPos, lastNeg lastPeak
	expectPositive   bool
	halfCycles       int
	count            int
}

// NewPeakDetector builds a detector expecting a positive peak first.
func NewPeakDetector(opts ...Option) *PeakDetector {
	o := buildOptions(opts)
	return &PeakDetector{
		observer:       o.observer,
		log:            o.log,
		axis:           o.axis,
		expectPositive: true,
	}
}

// Process feeds the configured gyro axis of s.
func (p *PeakDetector) Process(s imu.Sample) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSample, err)
	}
	return p.ProcessSample(s.Gyro(p.axis), s.TimestampMs)
}

// ProcessSample feeds one angular-rate value.
func (p *PeakDetector) ProcessSample(v float64, tsMs int64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %w: %v at t=%dms", ErrInvalidSample, imu.ErrNonFinite, v, tsMs)
	}
	if err := p.clock.check(tsMs); err != nil {
		return err
	}
	p.clock.advance(tsMs)

	if p.n < peakBufferSize {
		p.buf[p.n] = point{v, tsMs}
		p.n++
	} else {
		copy(p.buf[:], p.buf[1:])
		p.buf[peakBufferSize-1] = point{v, tsMs}
	}
	if p.n < peakBufferSize {
		return nil
	}

	c := p.buf[PeakWindow]
	if math.Abs(c.v) < MinPeakMagnitude {
		return nil
	}

	switch {
	case c.v > 0 && p.isPeak(true):
		p.onPeak(true, c)
	case c.v < 0 && p.isPeak(false):
		p.onPeak(false, c)
	}
	return nil
}

func (p *PeakDetector) isPeak(positive bool) bool {
	c := p.buf[PeakWindow].v
	for i := 1; i <= PeakWindow; i++ {
		before, after := p.buf[PeakWindow-i].v, p.buf[PeakWindow+i].v
		if positive && (before >= c || after >= c) {
			return false
		}
		if !positive && (before <= c || after <= c) {
			return false
		}
	}
	return true
}

func (p *PeakDetector) onPeak(positive bool, c point) {
	last := &p.lastNeg
	if positive {
		last = &p.lastPos
	}
	if last.has && c.ts-last.ts <= MinSamePeakIntervalMs {
		p.log.Debug("peak: too close to previous", "positive", positive, "gap_ms", c.ts-last.ts)
		return
	}
	*last = lastPeak{has: true, ts: c.ts}

	if positive != p.expectPositive {
		p.log.Debug("peak: unexpected sign", "positive", positive, "value", c.v, "t_ms", c.ts)
		return
	}

	p.halfCycles++
	p.expectPositive = !p.expectPositive
	p.log.Debug("peak: accepted", "positive", positive, "value", c.v, "t_ms", c.ts, "half_cycles", p.halfCycles)

	if p.halfCycles >= HalfCyclesPerCycle {
		p.halfCycles = 0
		p.count++
		p.log.Info("peak: repetition", "count", p.count, "t_ms", c.ts)
		p.observer.OnCycleComplete(p.count)
	}
}

// Count returns completed repetitions.
func (p *PeakDetector) Count() int { return p.count }

// HalfCycles returns accepted peaks toward the next repetition.
func (p *PeakDetector) HalfCycles() int { return p.halfCycles }

// Axis returns the gyro channel used by Process.
func (p *PeakDetector) Axis() imu.Axis { return p.axis }

// Reset clears the buffer and counters.
func (p *PeakDetector) Reset() {
	p.buf = [peakBufferSize]point{}
	p.n = 0
	p.clock.reset()
	p.lastPos = lastPeak{}
	p.lastNeg = lastPeak{}
	p.expectPositive = true
	p.halfCycles = 0
	p.count = 0
}

func (p *PeakDetector) String() string {
	return fmt.Sprintf("peak: axis=%s cycles=%d pending_half_cycles=%d expecting_positive=%t",
		p.axis, p.count, p.halfCycles, p.expectPositive)
}
