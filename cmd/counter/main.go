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
	"github.com/relabs-tech/sts_counter/internal/config"
)

func main() {
	var opts struct {
		Config    string `short:"c" long:"config" default:"./sts_config.txt" description:"Path to configuration file"`
		AutoStart bool   `short:"a" long:"auto-start" description:"Start the first session on the first sample instead of waiting for a start command"`
	}
	if _, err := flags.Parse(&opts); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, nil)))

	log.Println("starting sts-counter repetition counter (samples → session events)")

	// Load configuration
	if err := config.InitGlobal(opts.Config); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunCounter(opts.AutoStart); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
