// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sts_counter/internal/cycle"
	"github.com/relabs-tech/sts_counter/internal/session"
)

func litPixels(pix []byte) int {
	n := 0
	for _, b := range pix {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func TestRenderStatusDrawsText(t *testing.T) {
	img := renderStatus(session.Status{Running: true, State: cycle.Rising, Count: 2, Clock: "00:21"})
	require.Equal(t, 128, img.Bounds().Dx())
	require.Equal(t, 64, img.Bounds().Dy())
	require.Greater(t, litPixels(img.Pix), 0)

	other := renderStatus(session.Status{Running: true, State: cycle.Rising, Count: 3, Clock: "00:21"})
	require.False(t, bytes.Equal(img.Pix, other.Pix))
}

func TestRenderLinesClipsToFour(t *testing.T) {
	four := renderLines("a", "b", "c", "d")
	five := renderLines("a", "b", "c", "d", "e")
	require.Equal(t, four.Pix, five.Pix)
	require.Zero(t, litPixels(renderLines().Pix))
}

func TestDisplayDataPicksScreen(t *testing.T) {
	d := &DisplayData{}
	waiting := d.render()

	st := session.Status{Running: true, State: cycle.Seated, Count: 0, Clock: "00:30"}
	d.setStatus(st)
	require.Equal(t, renderStatus(st).Pix, d.render().Pix)
	require.NotEqual(t, waiting.Pix, d.render().Pix)

	res := session.Result{Repetitions: 12, TotalTime: "00:30"}
	d.setResult(res)
	require.Equal(t, renderResult(res).Pix, d.render().Pix)

	// The next running status replaces the result screen.
	d.setStatus(st)
	require.Equal(t, renderStatus(st).Pix, d.render().Pix)
}
