// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"sync"
	"time"
)

// SimulatorOption configures a Simulator
type SimulatorOption func(*Simulator)

// WithSimulatorClock replaces the simulator's time source
func WithSimulatorClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) {
		s.now = now
	}
}

// Simulator is a fake flow controller that pours a slow drink.
//
// Ticks are derived from the time elapsed since the valve was last opened
// at SimulatorTickRate ticks per second. Closing the valve does not reset
// or freeze the count; only reopening restarts it.
type Simulator struct {
	mu        sync.Mutex
	now       func() time.Time
	valveOpen bool
	fridgeOn  bool
	pourStart time.Time
}

// NewSimulator creates a simulator with the valve closed and fridge off
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start is a no-op; the simulator has no background task
func (s *Simulator) Start() error { return nil }

// Stop is a no-op
func (s *Simulator) Stop() error { return nil }

// OpenValve opens the valve and restarts the pour clock
func (s *Simulator) OpenValve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valveOpen = true
	s.pourStart = s.now()
	return nil
}

// CloseValve closes the valve
func (s *Simulator) CloseValve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valveOpen = false
	return nil
}

// EnableFridge turns the fridge on
func (s *Simulator) EnableFridge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fridgeOn = true
	return nil
}

// DisableFridge turns the fridge off
func (s *Simulator) DisableFridge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fridgeOn = false
	return nil
}

// ReadTicks returns the ticks poured since the valve was last opened,
// or zero if it never was
func (s *Simulator) ReadTicks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pourStart.IsZero() {
		return 0
	}
	elapsed := s.now().Sub(s.pourStart).Seconds()
	ticks := int64(SimulatorTickRate * elapsed)
	if ticks < 0 {
		return 0
	}
	return uint64(ticks)
}

// FridgeStatus returns the fridge state from the last fridge command
func (s *Simulator) FridgeStatus() FridgeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fridgeOn {
		return FridgeOn
	}
	return FridgeOff
}

// ValveStatus returns the valve state from the last valve command
func (s *Simulator) ValveStatus() ValveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valveOpen {
		return ValveOpen
	}
	return ValveClosed
}
