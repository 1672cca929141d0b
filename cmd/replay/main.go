// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/lmittmann/tint"

	"github.com/relabs-tech/sts_counter/internal/app"
)

func main() {
	var opts struct {
		Mode     string `short:"m" long:"mode" default:"both" choice:"fusion" choice:"peak" choice:"both" description:"Detectors to run"`
		Axis     string `short:"a" long:"axis" default:"gyro_y" description:"Gyro axis for the peak detector"`
		Duration int64  `short:"d" long:"duration" default:"30000" description:"Session length in milliseconds"`
		JSON     bool   `short:"j" long:"json" description:"Print the result payload as JSON"`
		Args     struct {
			File string `positional-arg-name:"FILE" description:"Recorded session CSV"`
		} `positional-args:"yes" required:"yes"`
	}
	if _, err := flags.Parse(&opts); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn})))

	_, err := app.RunReplay(app.ReplayOptions{
		Path:       opts.Args.File,
		Mode:       opts.Mode,
		Axis:       opts.Axis,
		DurationMs: opts.Duration,
		JSON:       opts.JSON,
	}, os.Stdout)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
