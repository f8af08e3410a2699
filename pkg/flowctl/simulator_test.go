// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestSimulator() (*Simulator, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)}
	return NewSimulator(WithSimulatorClock(clock.Now)), clock
}

func TestSimulator_InitialState(t *testing.T) {
	s, clock := newTestSimulator()
	clock.Advance(time.Hour)

	require.Zero(t, s.ReadTicks())
	require.Equal(t, FridgeOff, s.FridgeStatus())
	require.Equal(t, ValveClosed, s.ValveStatus())
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
}

func TestSimulator_PourRate(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    uint64
	}{
		{"instant", 0, 0},
		{"fraction", 10 * time.Millisecond, 0},
		{"one tick", 20 * time.Millisecond, 1},
		{"one second", time.Second, SimulatorTickRate},
		{"two and a half seconds", 2500 * time.Millisecond, 125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clock := newTestSimulator()
			require.NoError(t, s.OpenValve())
			clock.Advance(tt.elapsed)
			require.Equal(t, tt.want, s.ReadTicks())
		})
	}
}

func TestSimulator_ClockBeforeOpenIsClamped(t *testing.T) {
	s, clock := newTestSimulator()
	require.NoError(t, s.OpenValve())
	clock.Advance(-time.Minute)
	require.Zero(t, s.ReadTicks())
}

func TestSimulator_ReopenRestartsPour(t *testing.T) {
	s, clock := newTestSimulator()

	require.NoError(t, s.OpenValve())
	clock.Advance(2 * time.Second)
	require.NoError(t, s.CloseValve())
	require.Equal(t, ValveClosed, s.ValveStatus())

	// Ticks keep counting from the last open until the valve reopens
	clock.Advance(time.Second)
	require.Equal(t, uint64(3*SimulatorTickRate), s.ReadTicks())

	require.NoError(t, s.OpenValve())
	require.Equal(t, ValveOpen, s.ValveStatus())
	require.Zero(t, s.ReadTicks())
}

func TestSimulator_Fridge(t *testing.T) {
	s, _ := newTestSimulator()

	require.NoError(t, s.EnableFridge())
	require.Equal(t, FridgeOn, s.FridgeStatus())

	require.NoError(t, s.DisableFridge())
	require.Equal(t, FridgeOff, s.FridgeStatus())
}

func TestSimulator_ImplementsDevice(t *testing.T) {
	var d Device = NewSimulator()
	require.NoError(t, d.OpenValve())
	require.Equal(t, ValveOpen, d.ValveStatus())
}
