// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/sts_counter/internal/config"
	"github.com/relabs-tech/sts_counter/internal/session"
	"github.com/relabs-tech/sts_counter/internal/transport"
)

func formatStatus(st session.Status) string {
	flag := ""
	switch {
	case st.Finished:
		flag = "  finished"
	case st.Calibrating:
		flag = "  calibrating"
	case !st.Running:
		flag = "  idle"
	}
	return fmt.Sprintf("[STATE] %-8s reps=%2d (fusion=%d peak=%d)  %s%s",
		st.State, st.Count, st.FusionCount, st.PeakCount, st.Clock, flag)
}

func formatCycle(ev transport.CycleEvent) string {
	return fmt.Sprintf("[REP  ] #%d at t=%dms (%s)", ev.Count, ev.TimestampMs, ev.Mode)
}

func formatResult(res session.Result) string {
	return fmt.Sprintf("[DONE ] %d repetitions in %s  mean interval %.0fms ±%.0fms  id=%s",
		res.Repetitions, res.TotalTime, res.Cadence.MeanIntervalMs, res.Cadence.StdDevIntervalMs, res.ID)
}

// RunConsoleMQTT prints session events as they are published.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := transport.Subscribe(client, cfg.TopicState, func(st session.Status) {
		fmt.Println(formatStatus(st))
	}); err != nil {
		return err
	}
	if err := transport.Subscribe(client, cfg.TopicCycle, func(ev transport.CycleEvent) {
		fmt.Println(formatCycle(ev))
	}); err != nil {
		return err
	}
	if err := transport.Subscribe(client, cfg.TopicResult, func(res session.Result) {
		fmt.Println(formatResult(res))
	}); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	return nil
}
