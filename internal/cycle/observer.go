// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package cycle

// Observer receives detector notifications synchronously, on the goroutine
// that called Process. OnCycleComplete fires exactly once per new
// repetition, with counts in increasing order.
type Observer interface {
	OnCycleComplete(count int)
	OnStateChange(s State)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Cycle func(count int)
	State func(s State)
}

func (f ObserverFuncs) OnCycleComplete(count int) {
	if f.Cycle != nil {
		f.Cycle(count)
	}
}

func (f ObserverFuncs) OnStateChange(s State) {
	if f.State != nil {
		f.State(s)
	}
}

type nopObserver struct{}

func (nopObserver) OnCycleComplete(int) {}
func (nopObserver) OnStateChange(State) {}
