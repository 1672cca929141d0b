// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/sts_counter/internal/config"
	"github.com/relabs-tech/sts_counter/internal/imu"
	"github.com/relabs-tech/sts_counter/internal/transport"
)

// RunProducer reads samples from the configured source and publishes them
// on the samples topic until interrupted or the source ends.
func RunProducer() error {
	cfg := config.Get()

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	client, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var tick <-chan time.Time
	if src.paced {
		ticker := time.NewTicker(time.Second / time.Duration(cfg.SampleRateHz))
		defer ticker.Stop()
		tick = ticker.C
	}

	log.Printf("producer: publishing %s samples to %s", src.name, cfg.TopicSamples)
	publish := func(s imu.Sample) error {
		return client.PublishWait(cfg.TopicSamples, s, time.Second)
	}
	published, err := pump(src, tick, sigCh, publish, readRetryDelay, cfg.SampleRateHz*10)
	log.Printf("producer: stopped after %d samples", published)
	return err
}

const (
	// maxReadFailures consecutive read errors end the producer.
	maxReadFailures = 50
	readRetryDelay  = 100 * time.Millisecond
)

// pump moves samples from src to publish until stop fires, src ends or src
// keeps failing. A nil tick reads as fast as src delivers.
func pump(src imu.Source, tick <-chan time.Time, stop <-chan os.Signal, publish func(imu.Sample) error, retry time.Duration, logEvery int) (int, error) {
	published, failures := 0, 0
	for {
		if tick != nil {
			select {
			case <-stop:
				return published, nil
			case <-tick:
			}
		} else {
			select {
			case <-stop:
				return published, nil
			default:
			}
		}

		s, err := src.Next()
		if errors.Is(err, io.EOF) {
			log.Printf("producer: source ended")
			return published, nil
		}
		if err != nil {
			failures++
			if failures >= maxReadFailures {
				return published, fmt.Errorf("producer: giving up after %d read errors: %w", failures, err)
			}
			log.Printf("producer: read error (%d/%d): %v", failures, maxReadFailures, err)
			time.Sleep(retry)
			continue
		}
		failures = 0

		if err := publish(s); err != nil {
			log.Printf("producer: publish error: %v", err)
			continue
		}
		published++
		if logEvery > 0 && published%logEvery == 0 {
			log.Printf("producer: %d samples published (t=%dms)", published, s.TimestampMs)
		}
	}
}
