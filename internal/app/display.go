// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sts_counter/internal/config"
	"github.com/relabs-tech/sts_counter/internal/session"
	"github.com/relabs-tech/sts_counter/internal/transport"
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	status     session.Status
	haveStatus bool

	result     session.Result
	haveResult bool
}

func (d *DisplayData) setStatus(st session.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = st
	d.haveStatus = true
	// A new session clears the previous result screen.
	if st.Running {
		d.haveResult = false
	}
}

func (d *DisplayData) setResult(res session.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = res
	d.haveResult = true
}

// RunDisplay shows the live count and countdown on an SSD1306 OLED.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, cfg.DisplayI2CAddr, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Close()

	data := &DisplayData{}
	if err := transport.Subscribe(client, cfg.TopicState, data.setStatus); err != nil {
		return err
	}
	if err := transport.Subscribe(client, cfg.TopicResult, data.setResult); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			log.Println("display: shutting down")
			return dev.Halt()
		case <-ticker.C:
			if err := dev.Draw(dev.Bounds(), data.render(), image.Point{}); err != nil {
				log.Printf("display: draw error: %v", err)
			}
		}
	}
}

func (d *DisplayData) render() *image1bit.VerticalLSB {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch {
	case d.haveResult:
		return renderResult(d.result)
	case d.haveStatus:
		return renderStatus(d.status)
	default:
		return renderLines("30s Chair Stand", "", "Waiting...")
	}
}

// renderLines draws up to four lines of 7x13 text on a blank 128x64 frame.
func renderLines(lines ...string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if i > 3 {
			break
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawBytes([]byte(line))
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	return renderLines("", "  STS Counter", "  starting...")
}

func renderStatus(st session.Status) *image1bit.VerticalLSB {
	phase := st.State.String()
	switch {
	case st.Finished:
		phase = "DONE"
	case st.Calibrating:
		phase = "CALIBRATING"
	case !st.Running && st.RemainingMs > 0:
		phase = "READY"
	}
	return renderLines(
		fmt.Sprintf("Reps: %d", st.Count),
		fmt.Sprintf("Time: %s", st.Clock),
		phase,
		fmt.Sprintf("F:%d P:%d", st.FusionCount, st.PeakCount),
	)
}

func renderResult(res session.Result) *image1bit.VerticalLSB {
	return renderLines(
		"Result",
		fmt.Sprintf("Reps: %d", res.Repetitions),
		fmt.Sprintf("Time: %s", res.TotalTime),
		fmt.Sprintf("F:%d P:%d", res.FusionCount, res.PeakCount),
	)
}
