// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/sts_counter/internal/imu"
)

var csvHeader = []string{"timestamp", "accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z"}

// WriteCSV writes points with a header row.
func WriteCSV(w io.Writer, points []DataPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			p.Timestamp,
			formatFloat(p.AccelX), formatFloat(p.AccelY), formatFloat(p.AccelZ),
			formatFloat(p.GyroX), formatFloat(p.GyroY), formatFloat(p.GyroZ),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// ReadCSV parses a file written by WriteCSV. Sample timestamps are
// milliseconds since the first row.
func ReadCSV(r io.Reader) ([]imu.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read csv header: %w", err)
	}
	if strings.TrimPrefix(header[0], "\ufeff") != csvHeader[0] {
		return nil, fmt.Errorf("session: unexpected csv header %v", header)
	}

	var (
		out   []imu.Sample
		first time.Time
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("session: read csv: %w", err)
		}

		at, err := time.Parse(timestampLayout, rec[0])
		if err != nil {
			return out, fmt.Errorf("session: csv line %d: timestamp: %w", line, err)
		}
		if first.IsZero() {
			first = at
		}

		var v [6]float64
		for i := range v {
			v[i], err = strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return out, fmt.Errorf("session: csv line %d: %s: %w", line, csvHeader[i+1], err)
			}
		}
		out = append(out, imu.Sample{
			TimestampMs: at.Sub(first).Milliseconds(),
			Ax:          v[0], Ay: v[1], Az: v[2],
			Gx: v[3], Gy: v[4], Gz: v[5],
		})
	}
}

// ExportFileName is 30sSTS_<patient>_<yyyymmdd_hhmmss>.csv with spaces in the
// patient name replaced by underscores.
func ExportFileName(patient string, now time.Time) string {
	patient = strings.ReplaceAll(strings.TrimSpace(patient), " ", "_")
	if patient == "" {
		patient = "anonymous"
	}
	return fmt.Sprintf("30sSTS_%s_%s.csv", patient, now.Format("20060102_150405"))
}

// ExportCSV writes points to dir and returns the file path.
func ExportCSV(dir, patient string, now time.Time, points []DataPoint) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("session: create export dir: %w", err)
	}
	path := filepath.Join(dir, ExportFileName(patient, now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("session: create csv: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, points); err != nil {
		return "", fmt.Errorf("session: write csv: %w", err)
	}
	return path, f.Close()
}
