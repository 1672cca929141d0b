// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/relabs-tech/sts_counter/internal/calibration"
	"github.com/relabs-tech/sts_counter/internal/imu"
)

var (
	// ErrInvalidSample wraps imu.ErrNonFinite for rejected samples.
	ErrInvalidSample = errors.New("cycle: invalid sample")
	// ErrOutOfOrder is returned when a timestamp goes backwards.
	ErrOutOfOrder = errors.New("cycle: sample out of order")
)

type options struct {
	observer    Observer
	log         *slog.Logger
	calibration []calibration.Option
	axis        imu.Axis
}

// Option configures a detector or state machine.
type Option func(*options)

// WithObserver sets the notification target.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// WithLogger attaches a debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(opts *options) {
		if l != nil {
			opts.log = l
		}
	}
}

// WithCalibrationOptions tunes the fusion detector's calibrator.
func WithCalibrationOptions(o ...calibration.Option) Option {
	return func(opts *options) {
		opts.calibration = append(opts.calibration, o...)
	}
}

// WithAxis selects the gyro channel PeakDetector.Process reads. The zero
// Axis keeps the default, gyro_y.
func WithAxis(a imu.Axis) Option {
	return func(opts *options) {
		if a != 0 {
			opts.axis = a
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		observer: nopObserver{},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		axis:     imu.AxisY,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// clock rejects timestamps that go backwards. Equal timestamps are allowed.
type clock struct {
	has  bool
	last int64
}

func (c *clock) check(ts int64) error {
	if c.has && ts < c.last {
		return fmt.Errorf("%w: t=%dms after t=%dms", ErrOutOfOrder, ts, c.last)
	}
	return nil
}

func (c *clock) advance(ts int64) {
	c.has = true
	c.last = ts
}

func (c *clock) reset() { *c = clock{} }
