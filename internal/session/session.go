// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session runs one timed chair-stand test: it drives the cycle
// detectors over incoming samples, keeps the countdown, records the merged
// sensor data and builds the result payload.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/sts_counter/internal/calibration"
	"github.com/relabs-tech/sts_counter/internal/cycle"
	"github.com/relabs-tech/sts_counter/internal/imu"
)

const (
	DefaultDurationMs = 30_000
	TestType          = "TTSTS"
	timestampLayout   = "2006-01-02T15:04:05.000Z"
)

var (
	ErrNotRunning = errors.New("session: not running")
	ErrFinished   = errors.New("session: time is up")
)

// Mode selects which detectors run and which one is authoritative.
type Mode string

const (
	ModeFusion Mode = "fusion"
	ModePeak   Mode = "peak"
	ModeBoth   Mode = "both" // both run, peak count is reported
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFusion, ModePeak, ModeBoth:
		return m, nil
	}
	return "", fmt.Errorf("session: unknown detector mode %q", s)
}

func (m Mode) fusion() bool { return m == ModeFusion || m == ModeBoth }
func (m Mode) peak() bool   { return m == ModePeak || m == ModeBoth }

// Config describes a session.
type Config struct {
	DurationMs  int64
	Mode        Mode
	Axis        imu.Axis
	Calibration []calibration.Option

	// Observer receives fusion state changes and authoritative
	// repetition counts.
	Observer cycle.Observer
	Logger   *slog.Logger
	Now      func() time.Time

	ParticipantID        string
	HealthProfessionalID string
	HealthcareUnitID     string
}

// Session is not safe for concurrent use.
type Session struct {
	cfg Config
	log *slog.Logger

	fusion *cycle.FusionDetector
	peak   *cycle.PeakDetector

	running  bool
	started  bool
	paused   bool
	finished bool

	startMs     int64
	pausedAtMs  int64
	pausedTotal int64
	lastMs      int64
	wallStart   time.Time
	wallEnd     time.Time

	repTimesMs []int64
	samples    []imu.Sample
}

// New builds an idle session.
func New(cfg Config) *Session {
	if cfg.DurationMs <= 0 {
		cfg.DurationMs = DefaultDurationMs
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeBoth
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Session{cfg: cfg, log: cfg.Logger}
	fusionOpts := []cycle.Option{
		cycle.WithLogger(cfg.Logger),
		cycle.WithCalibrationOptions(cfg.Calibration...),
		cycle.WithObserver(cycle.ObserverFuncs{
			State: s.onState,
			Cycle: s.onCycle(ModeFusion),
		}),
	}
	peakOpts := []cycle.Option{
		cycle.WithLogger(cfg.Logger),
		cycle.WithAxis(cfg.Axis),
		cycle.WithObserver(cycle.ObserverFuncs{Cycle: s.onCycle(ModePeak)}),
	}
	s.fusion = cycle.NewFusionDetector(fusionOpts...)
	s.peak = cycle.NewPeakDetector(peakOpts...)
	return s
}

func (s *Session) authoritative() Mode {
	if s.cfg.Mode == ModeFusion {
		return ModeFusion
	}
	return ModePeak
}

func (s *Session) onState(st cycle.State) {
	if s.cfg.Observer != nil {
		s.cfg.Observer.OnStateChange(st)
	}
}

func (s *Session) onCycle(source Mode) func(int) {
	return func(n int) {
		if source != s.authoritative() {
			return
		}
		s.repTimesMs = append(s.repTimesMs, s.lastMs)
		if s.cfg.Observer != nil {
			s.cfg.Observer.OnCycleComplete(n)
		}
	}
}

// Start begins the countdown at nowMs, on the same clock as the samples.
// Starting again discards the previous run.
func (s *Session) Start(nowMs int64) {
	s.Reset()
	s.started = true
	s.running = true
	s.startMs = nowMs
	s.lastMs = nowMs
	s.wallStart = s.cfg.Now()
	s.log.Info("session: started", "mode", s.cfg.Mode, "duration_ms", s.cfg.DurationMs)
}

// Process feeds one sample. It returns ErrFinished once the countdown has
// run out, which also stops the session.
func (s *Session) Process(sample imu.Sample) error {
	if !s.running || s.paused {
		return ErrNotRunning
	}
	if s.Remaining(sample.TimestampMs) == 0 {
		s.lastMs = sample.TimestampMs
		s.Stop()
		return ErrFinished
	}
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("%w: %w", cycle.ErrInvalidSample, err)
	}

	prev := s.lastMs
	s.lastMs = sample.TimestampMs
	if s.cfg.Mode.fusion() {
		if err := s.fusion.Process(sample); err != nil {
			s.lastMs = prev
			return err
		}
	}
	if s.cfg.Mode.peak() {
		if err := s.peak.Process(sample); err != nil {
			s.lastMs = prev
			return err
		}
	}
	s.samples = append(s.samples, sample)
	return nil
}

// Pause freezes the countdown; samples are refused until Resume.
func (s *Session) Pause(nowMs int64) {
	if !s.running || s.paused {
		return
	}
	s.paused = true
	s.pausedAtMs = nowMs
	s.lastMs = max(s.lastMs, nowMs)
	s.log.Info("session: paused", "remaining_ms", s.Remaining(nowMs))
}

// Resume continues a paused countdown.
func (s *Session) Resume(nowMs int64) {
	if !s.paused {
		return
	}
	s.paused = false
	s.pausedTotal += nowMs - s.pausedAtMs
	s.lastMs = max(s.lastMs, nowMs)
	s.log.Info("session: resumed", "remaining_ms", s.Remaining(nowMs))
}

// Stop ends the session early or after the countdown.
func (s *Session) Stop() {
	if !s.running {
		return
	}
	s.running = false
	s.finished = true
	s.wallEnd = s.cfg.Now()
	s.log.Info("session: finished", "repetitions", s.Count(), "fusion", s.fusion.Count(), "peak", s.peak.Count())
}

// Reset drops all data and returns to idle.
func (s *Session) Reset() {
	s.fusion.Reset()
	s.peak.Reset()
	s.running, s.started, s.paused, s.finished = false, false, false, false
	s.startMs, s.pausedAtMs, s.pausedTotal, s.lastMs = 0, 0, 0, 0
	s.wallStart, s.wallEnd = time.Time{}, time.Time{}
	s.repTimesMs = nil
	s.samples = nil
}

func (s *Session) activeMs(nowMs int64) int64 {
	if !s.started {
		return 0
	}
	active := nowMs - s.startMs - s.pausedTotal
	if s.paused {
		active -= nowMs - s.pausedAtMs
	}
	return max(active, 0)
}

// Elapsed returns active (unpaused) time in ms.
func (s *Session) Elapsed(nowMs int64) int64 {
	return min(s.activeMs(nowMs), s.cfg.DurationMs)
}

// Remaining returns the countdown value in ms, never negative.
func (s *Session) Remaining(nowMs int64) int64 {
	if !s.started {
		return s.cfg.DurationMs
	}
	return s.cfg.DurationMs - s.Elapsed(nowMs)
}

// Finished reports whether the session was stopped or the countdown ran out.
func (s *Session) Finished(nowMs int64) bool {
	return s.finished || (s.started && s.Remaining(nowMs) == 0)
}

// Active reports whether the session has started and not yet stopped,
// paused or not.
func (s *Session) Active() bool { return s.running }

// Running reports whether samples are being accepted.
func (s *Session) Running() bool { return s.running && !s.paused }

// Count returns the authoritative repetition count for the mode.
func (s *Session) Count() int {
	if s.authoritative() == ModeFusion {
		return s.fusion.Count()
	}
	return s.peak.Count()
}

func (s *Session) FusionCount() int { return s.fusion.Count() }
func (s *Session) PeakCount() int { return s.peak.Count() }
func (s *Session) State() cycle.State { return s.fusion.State() }
func (s *Session) Mode() Mode { return s.cfg.Mode }

// Calibrating reports whether the fusion detector is still collecting its
// resting baseline. Always false when fusion is not running.
func (s *Session) Calibrating() bool { return s.cfg.Mode.fusion() && s.fusion.Calibrating() }

// Fusion exposes the fusion detector for diagnostics.
func (s *Session) Fusion() *cycle.FusionDetector { return s.fusion }

// Peak exposes the peak detector for diagnostics.
func (s *Session) Peak() *cycle.PeakDetector { return s.peak }

// Samples returns the recorded samples.
func (s *Session) Samples() []imu.Sample { return s.samples }

// Status is a point-in-time view for live displays.
type Status struct {
	Mode        Mode        `json:"mode"`
	Running     bool        `json:"running"`
	Finished    bool        `json:"finished"`
	Calibrating bool        `json:"calibrating"`
	State       cycle.State `json:"state"`
	Count       int         `json:"count"`
	FusionCount int         `json:"fusion_count"`
	PeakCount   int         `json:"peak_count"`
	RemainingMs int64       `json:"remaining_ms"`
	Clock       string      `json:"clock"`
}

// Status snapshots the session at nowMs.
func (s *Session) Status(nowMs int64) Status {
	rem := s.Remaining(nowMs)
	return Status{
		Mode:        s.cfg.Mode,
		Running:     s.Running(),
		Finished:    s.Finished(nowMs),
		Calibrating: s.Calibrating(),
		State:       s.fusion.State(),
		Count:       s.Count(),
		FusionCount: s.fusion.Count(),
		PeakCount:   s.peak.Count(),
		RemainingMs: rem,
		Clock:       FormatClock(rem),
	}
}

// FormatClock renders ms as mm:ss, clamping negatives to zero.
func FormatClock(ms int64) string {
	ms = max(ms, 0)
	sec := ms / 1000
	return fmt.Sprintf("%02d:%02d", (sec/60)%60, sec%60)
}

// DataPoint is one recorded sample in the submission schema.
type DataPoint struct {
	Timestamp string  `json:"timestamp"`
	AccelX    float64 `json:"accel_x"`
	AccelY    float64 `json:"accel_y"`
	AccelZ    float64 `json:"accel_z"`
	GyroX     float64 `json:"gyro_x"`
	GyroY     float64 `json:"gyro_y"`
	GyroZ     float64 `json:"gyro_z"`
}

// Cadence summarises the spacing between counted repetitions.
type Cadence struct {
	MeanIntervalMs   float64 `json:"mean_interval_ms"`
	StdDevIntervalMs float64 `json:"stddev_interval_ms"`
}

// Result is the payload submitted at the end of a session.
type Result struct {
	ID                   uuid.UUID   `json:"id"`
	Type                 string      `json:"type"`
	ParticipantID        string      `json:"participantId,omitempty"`
	HealthProfessionalID string      `json:"healthProfessionalId,omitempty"`
	HealthcareUnitID     string      `json:"healthcareUnitId,omitempty"`
	Date                 time.Time   `json:"date"`
	TotalTime            string      `json:"totalTime"`
	TimeInit             string      `json:"time_init"`
	TimeEnd              string      `json:"time_end"`
	Mode                 Mode        `json:"mode"`
	Repetitions          int         `json:"repetitions"`
	FusionCount          int         `json:"fusion_count"`
	PeakCount            int         `json:"peak_count"`
	PendingHalfCycles    int         `json:"pending_half_cycles"`
	FinalState           cycle.State `json:"final_state"`
	Cadence              Cadence     `json:"cadence"`
	SensorData           []DataPoint `json:"sensorData"`
}

// Result builds the submission payload. Call after Stop.
func (s *Session) Result() Result {
	end := s.wallEnd
	if end.IsZero() {
		end = s.cfg.Now()
	}
	return Result{
		ID:                   uuid.New(),
		Type:                 TestType,
		ParticipantID:        s.cfg.ParticipantID,
		HealthProfessionalID: s.cfg.HealthProfessionalID,
		HealthcareUnitID:     s.cfg.HealthcareUnitID,
		Date:                 s.wallStart,
		TotalTime:            FormatClock(s.Elapsed(s.lastMs)),
		TimeInit:             s.wallStart.UTC().Format(timestampLayout),
		TimeEnd:              end.UTC().Format(timestampLayout),
		Mode:                 s.cfg.Mode,
		Repetitions:          s.Count(),
		FusionCount:          s.fusion.Count(),
		PeakCount:            s.peak.Count(),
		PendingHalfCycles:    s.peak.HalfCycles(),
		FinalState:           s.fusion.State(),
		Cadence:              s.cadence(),
		SensorData:           s.DataPoints(),
	}
}

func (s *Session) cadence() Cadence {
	if len(s.repTimesMs) < 2 {
		return Cadence{}
	}
	intervals := make([]float64, len(s.repTimesMs)-1)
	for i := 1; i < len(s.repTimesMs); i++ {
		intervals[i-1] = float64(s.repTimesMs[i] - s.repTimesMs[i-1])
	}
	mean, std := stat.MeanStdDev(intervals, nil)
	return Cadence{MeanIntervalMs: mean, StdDevIntervalMs: std}
}

// DataPoints converts recorded samples to wall-clock stamped points.
func (s *Session) DataPoints() []DataPoint {
	out := make([]DataPoint, len(s.samples))
	for i, smp := range s.samples {
		out[i] = NewDataPoint(smp, s.wallStart.Add(time.Duration(smp.TimestampMs-s.startMs)*time.Millisecond))
	}
	return out
}

// NewDataPoint stamps a sample with an absolute time.
func NewDataPoint(smp imu.Sample, at time.Time) DataPoint {
	return DataPoint{
		Timestamp: at.UTC().Format(timestampLayout),
		AccelX:    smp.Ax,
		AccelY:    smp.Ay,
		AccelZ:    smp.Az,
		GyroX:     smp.Gx,
		GyroY:     smp.Gy,
		GyroZ:     smp.Gz,
	}
}

// Summary is the human-readable end-of-test report.
func (s *Session) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%gs chair-stand result\n", float64(s.cfg.DurationMs)/1000)
	fmt.Fprintf(&b, "  repetitions: %d (%s)\n", s.Count(), s.cfg.Mode)
	if s.cfg.Mode.fusion() {
		fmt.Fprintf(&b, "  fusion: %d, final state %s\n", s.fusion.Count(), s.fusion.State())
	}
	if s.cfg.Mode.peak() {
		fmt.Fprintf(&b, "  peak: %d, pending half-cycles %d\n", s.peak.Count(), s.peak.HalfCycles())
	}
	return b.String()
}
