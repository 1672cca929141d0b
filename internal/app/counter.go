// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relabs-tech/sts_counter/internal/calibration"
	"github.com/relabs-tech/sts_counter/internal/config"
	"github.com/relabs-tech/sts_counter/internal/cycle"
	"github.com/relabs-tech/sts_counter/internal/imu"
	"github.com/relabs-tech/sts_counter/internal/session"
	"github.com/relabs-tech/sts_counter/internal/transport"
)

// statusIntervalMs is how often, in sample time, a running session
// republishes its status for countdown displays.
const statusIntervalMs = 1000

// Counter turns the sample stream into session events. A start command arms
// the next session; it begins on the first sample that follows so the
// countdown runs on the producer's clock.
type Counter struct {
	mu  sync.Mutex
	cfg *config.Config
	pub transport.Publisher
	now func() time.Time

	mode session.Mode
	axis imu.Axis

	sess    *session.Session
	patient string
	armed   *transport.Control

	lastTs       int64
	lastStatusMs int64
	lastResult   *session.Result
}

// NewCounter validates the detector settings in cfg. With autoStart the
// first session begins on the first sample.
func NewCounter(cfg *config.Config, pub transport.Publisher, autoStart bool) (*Counter, error) {
	mode, err := session.ParseMode(cfg.DetectorMode)
	if err != nil {
		return nil, err
	}
	axis, err := imu.ParseAxis(cfg.PeakAxis)
	if err != nil {
		return nil, err
	}

	c := &Counter{cfg: cfg, pub: pub, now: time.Now, mode: mode, axis: axis}
	c.sess = session.New(c.sessionConfig(transport.Control{}))
	if autoStart {
		c.armed = &transport.Control{Action: transport.ActionStart}
	}
	return c, nil
}

func (c *Counter) sessionConfig(ctl transport.Control) session.Config {
	return session.Config{
		DurationMs: c.cfg.SessionDurationMs,
		Mode:       c.mode,
		Axis:       c.axis,
		Calibration: []calibration.Option{
			calibration.WithDuration(c.cfg.CalibrationDurationMs),
			calibration.WithMinSamples(c.cfg.CalibrationMinSamples),
		},
		Observer: cycle.ObserverFuncs{
			State: func(cycle.State) { c.publishStatus() },
			Cycle: c.onCycle,
		},
		Logger:               slog.Default(),
		Now:                  c.now,
		ParticipantID:        ctl.ParticipantID,
		HealthProfessionalID: ctl.HealthProfessionalID,
		HealthcareUnitID:     ctl.HealthcareUnitID,
	}
}

func (c *Counter) onCycle(count int) {
	ev := transport.CycleEvent{Count: count, Mode: string(c.mode), TimestampMs: c.lastTs}
	if err := c.pub.Publish(c.cfg.TopicCycle, ev); err != nil {
		log.Printf("counter: publish cycle: %v", err)
	}
	log.Printf("counter: repetition %d at t=%dms", count, c.lastTs)
	c.publishStatus()
}

func (c *Counter) publishStatus() {
	c.lastStatusMs = c.lastTs
	if err := c.pub.Publish(c.cfg.TopicState, c.sess.Status(c.lastTs)); err != nil {
		log.Printf("counter: publish status: %v", err)
	}
}

// HandleSample feeds one sample into the active session.
func (c *Counter) HandleSample(s imu.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastTs = s.TimestampMs
	if c.armed != nil {
		c.begin(*c.armed, s.TimestampMs)
		c.armed = nil
	}
	if !c.sess.Running() {
		return
	}

	err := c.sess.Process(s)
	switch {
	case errors.Is(err, session.ErrFinished):
		c.finish()
	case err != nil:
		log.Printf("counter: dropping sample: %v", err)
	case s.TimestampMs-c.lastStatusMs >= statusIntervalMs:
		c.publishStatus()
	}
}

// HandleControl applies a control command.
func (c *Counter) HandleControl(ctl transport.Control) {
	if err := ctl.Validate(); err != nil {
		log.Printf("counter: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log.Printf("counter: control %s", ctl.Action)
	switch ctl.Action {
	case transport.ActionStart:
		c.sess.Reset()
		c.armed = &ctl
	case transport.ActionStop:
		c.armed = nil
		if !c.sess.Active() {
			break
		}
		c.sess.Stop()
		c.finish()
		return
	case transport.ActionReset:
		c.armed = nil
		c.sess.Reset()
	case transport.ActionPause:
		c.sess.Pause(c.lastTs)
	case transport.ActionResume:
		c.sess.Resume(c.lastTs)
	}
	c.publishStatus()
}

func (c *Counter) begin(ctl transport.Control, ts int64) {
	c.patient = ctl.Patient
	c.sess = session.New(c.sessionConfig(ctl))
	c.sess.Start(ts)
	log.Printf("counter: session started at t=%dms (mode=%s, axis=%s)", ts, c.mode, c.axis)
	c.publishStatus()
}

func (c *Counter) finish() {
	c.publishStatus()

	res := c.sess.Result()
	c.lastResult = &res
	if err := c.pub.Publish(c.cfg.TopicResult, res); err != nil {
		log.Printf("counter: publish result: %v", err)
	}
	log.Printf("counter: session finished with %d repetitions", res.Repetitions)

	if c.cfg.ExportDir == "" {
		return
	}
	path, err := session.ExportCSV(c.cfg.ExportDir, c.patient, c.now(), res.SensorData)
	if err != nil {
		log.Printf("counter: export: %v", err)
		return
	}
	log.Printf("counter: exported %d samples to %s", len(res.SensorData), path)
}

// Status returns the current session status.
func (c *Counter) Status() session.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Status(c.lastTs)
}

// LastResult returns the most recent finished session, if any.
func (c *Counter) LastResult() (session.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastResult == nil {
		return session.Result{}, false
	}
	return *c.lastResult, true
}

// RunCounter subscribes to samples and control commands and publishes
// session events until interrupted.
func RunCounter(autoStart bool) error {
	cfg := config.Get()

	client, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDCounter)
	if err != nil {
		return err
	}
	defer client.Close()

	counter, err := NewCounter(cfg, client, autoStart)
	if err != nil {
		return err
	}

	if err := transport.Subscribe(client, cfg.TopicControl, counter.HandleControl); err != nil {
		return err
	}
	if err := transport.Subscribe(client, cfg.TopicSamples, counter.HandleSample); err != nil {
		return err
	}

	if autoStart {
		log.Println("counter: waiting for samples, session starts on the first one")
	} else {
		log.Printf("counter: waiting for a start command on %s", cfg.TopicControl)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("counter: shutting down")
	return nil
}
