// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/relabs-tech/sts_counter/internal/config"
	"github.com/relabs-tech/sts_counter/internal/imu"
	"github.com/relabs-tech/sts_counter/internal/sensors"
)

// sampleSource is an imu.Source plus how the producer should drive it.
type sampleSource struct {
	imu.Source
	io.Closer

	// paced sources are read on a ticker; unpaced ones block until the
	// device has a sample.
	paced bool
	name  string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openSource(cfg *config.Config) (*sampleSource, error) {
	switch cfg.Source {
	case "mock":
		syn := imu.DefaultSyntheticConfig()
		syn.RateHz = cfg.SampleRateHz
		log.Printf("producer: using synthetic chair-stand source at %d Hz", syn.RateHz)
		return &sampleSource{Source: newLoopingSource(syn), Closer: nopCloser{}, paced: true, name: "mock"}, nil

	case "serial":
		src, err := sensors.OpenSerialSource(cfg.SerialPort, cfg.SerialBaudRate)
		if err != nil {
			return nil, err
		}
		return &sampleSource{Source: src, Closer: src, name: "serial"}, nil

	case "mpu9250":
		src, err := sensors.NewMPU9250Source(cfg.IMUSPIDevice, cfg.IMUCSPin)
		if err != nil {
			return nil, err
		}
		return &sampleSource{Source: src, Closer: nopCloser{}, paced: true, name: "mpu9250"}, nil
	}
	return nil, fmt.Errorf("producer: unknown source %q", cfg.Source)
}

// loopingSource replays a synthetic session forever, shifting timestamps so
// they keep increasing across loops.
type loopingSource struct {
	gen      *imu.SyntheticSource
	periodMs int64
	lengthMs int64
	offsetMs int64
}

func newLoopingSource(cfg imu.SyntheticConfig) *loopingSource {
	gen := imu.NewSyntheticSource(cfg)
	rate := cfg.RateHz
	if rate <= 0 {
		rate = imu.DefaultSyntheticConfig().RateHz
	}
	length := cfg.TotalMs
	if length <= 0 {
		length = cfg.RestMs + int64(cfg.Cycles)*cfg.CycleMs
	}
	return &loopingSource{gen: gen, periodMs: int64(1000 / rate), lengthMs: length}
}

func (l *loopingSource) Next() (imu.Sample, error) {
	s, err := l.gen.Next()
	if errors.Is(err, io.EOF) {
		l.offsetMs += l.lengthMs + l.periodMs
		l.gen.Reset()
		s, err = l.gen.Next()
	}
	if err != nil {
		return imu.Sample{}, err
	}
	s.TimestampMs += l.offsetMs
	return s, nil
}
