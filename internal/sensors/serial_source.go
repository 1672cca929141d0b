// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/sts_counter/internal/imu"
)

// LineSource parses samples from a text stream. A line is either a full
// sample
//
//	t_ms,accel_x,accel_y,accel_z,gyro_x,gyro_y,gyro_z
//
// or a single sensor event, as phones deliver them
//
//	A,t_ms,x,y,z
//	G,t_ms,x,y,z
//
// Sensor events are paired by imu.Merger. Units are m/s² and rad/s. Blank
// lines, '#' comments and a header line starting with "t" are skipped;
// malformed lines are logged and skipped.
type LineSource struct {
	r       *bufio.Reader
	closer  io.Closer
	merger  *imu.Merger
	pending []imu.Sample
	skipped int
}

// NewLineSource reads from r.
func NewLineSource(r io.Reader) *LineSource {
	s := &LineSource{r: bufio.NewReader(r), merger: imu.NewMerger(0)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenSerialSource opens a serial port carrying sample lines.
func OpenSerialSource(portName string, baudRate int) (*LineSource, error) {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", portName, err)
	}
	log.Printf("serial: port opened on %s at %d baud", portName, baudRate)
	return NewLineSource(port), nil
}

// Next returns the next well-formed sample, or the reader's error.
func (s *LineSource) Next() (imu.Sample, error) {
	for {
		if len(s.pending) > 0 {
			smp := s.pending[0]
			s.pending = s.pending[1:]
			return smp, nil
		}

		line, err := s.r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "t") {
			if perr := s.parse(line); perr != nil {
				s.skipped++
				log.Printf("serial: skipping line %q: %v", line, perr)
			}
		}
		if err != nil && len(s.pending) == 0 {
			return imu.Sample{}, err
		}
	}
}

func (s *LineSource) parse(line string) error {
	switch {
	case strings.HasPrefix(line, "A,"), strings.HasPrefix(line, "G,"):
		r, err := ParseReading(line[2:])
		if err != nil {
			return err
		}
		var merged []imu.Sample
		if line[0] == 'A' {
			merged = s.merger.PushAccel(r)
		} else {
			merged = s.merger.PushGyro(r)
		}
		s.pending = append(s.pending, merged...)
		return nil
	}

	smp, err := ParseLine(line)
	if err != nil {
		return err
	}
	s.pending = append(s.pending, smp)
	return nil
}

// Skipped returns how many malformed lines were dropped.
func (s *LineSource) Skipped() int { return s.skipped }

// Unpaired returns how many sensor events were dropped for lack of a
// partner within the merge tolerance.
func (s *LineSource) Unpaired() int { return s.merger.Dropped() }

// Close closes the underlying port, if any.
func (s *LineSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ParseLine parses one CSV sample line.
func ParseLine(line string) (imu.Sample, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 7 {
		return imu.Sample{}, fmt.Errorf("want 7 fields, got %d", len(fields))
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return imu.Sample{}, fmt.Errorf("timestamp: %w", err)
	}

	var v [6]float64
	for i := range v {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return imu.Sample{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}

	smp := imu.Sample{
		TimestampMs: ts,
		Ax:          v[0], Ay: v[1], Az: v[2],
		Gx: v[3], Gy: v[4], Gz: v[5],
	}
	return smp, smp.Validate()
}

// ParseReading parses "t_ms,x,y,z" from a single sensor event line.
func ParseReading(fields string) (imu.Reading, error) {
	parts := strings.Split(fields, ",")
	if len(parts) != 4 {
		return imu.Reading{}, fmt.Errorf("want 4 fields after the sensor tag, got %d", len(parts))
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return imu.Reading{}, fmt.Errorf("timestamp: %w", err)
	}

	var v [3]float64
	for i := range v {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return imu.Reading{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return imu.Reading{}, fmt.Errorf("%w: field %d=%v at t=%dms", imu.ErrNonFinite, i+1, v[i], ts)
		}
	}
	return imu.Reading{TimestampMs: ts, X: v[0], Y: v[1], Z: v[2]}, nil
}
