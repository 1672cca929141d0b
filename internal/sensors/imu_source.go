// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sts_counter/internal/imu"
)

// registerReader is the subset of the MPU9250 driver used for sampling.
type registerReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

// MPU9250Source reads an MPU9250 over SPI. It implements imu.RawSource and,
// through imu.RawAdapter, imu.Source. Timestamps are milliseconds since the
// source was opened.
type MPU9250Source struct {
	dev   registerReader
	start time.Time
	now   func() time.Time
}

// NewMPU9250Source initializes the IMU on spiDev with chip select csPin.
func NewMPU9250Source(spiDev, csPin string) (*MPU9250Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	// Ask the subject to keep still; the chair-stand protocol calibrates
	// thresholds afterwards, this only removes the factory bias.
	if err := dev.Calibrate(); err != nil {
		log.Printf("IMU: warning: bias calibration failed: %v", err)
	} else {
		log.Printf("IMU: bias calibration complete")
	}

	log.Printf("IMU: MPU9250 ready on %s (cs=%s), accel ±2g, gyro ±250°/s", spiDev, csPin)
	return newMPU9250Source(dev, time.Now), nil
}

func newMPU9250Source(dev registerReader, now func() time.Time) *MPU9250Source {
	return &MPU9250Source{dev: dev, start: now(), now: now}
}

// NextRaw reads accelerometer and gyroscope registers.
func (s *MPU9250Source) NextRaw() (imu.Raw, error) {
	ts := s.now().Sub(s.start).Milliseconds()

	ax, err := s.dev.GetAccelerationX()
	if err != nil {
		return imu.Raw{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.dev.GetAccelerationY()
	if err != nil {
		return imu.Raw{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.dev.GetAccelerationZ()
	if err != nil {
		return imu.Raw{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	gx, err := s.dev.GetRotationX()
	if err != nil {
		return imu.Raw{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := s.dev.GetRotationY()
	if err != nil {
		return imu.Raw{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := s.dev.GetRotationZ()
	if err != nil {
		return imu.Raw{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return imu.Raw{
		TimestampMs: ts,
		Ax:          ax,
		Ay:          ay,
		Az:          az,
		Gx:          gx,
		Gy:          gy,
		Gz:          gz,
	}, nil
}

// Next reads one sample in SI units.
func (s *MPU9250Source) Next() (imu.Sample, error) {
	return imu.RawAdapter{Raw: s}.Next()
}
