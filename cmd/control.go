// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/kegstat/pkg/flowctl"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var controlSimulate bool

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling a flow controller",
	Long: `Control a kegboard flow controller via an interactive terminal UI.

Features:
  - Live tick count, valve and fridge state
  - Valve and fridge toggles
  - Frame statistics
  - Event logging

Keys: v toggles the valve, f toggles the fridge, s requests status,
r zeroes the displayed tick counter, q quits.

With --simulate no connection is opened; a simulated board pours at a
fixed rate while the valve is open.

Logs are discarded unless --log-file is set, so they do not draw over the
TUI. Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().BoolVar(&controlSimulate, "simulate", false, "Drive a simulated board instead of real hardware")
}

func runControl(cmd *cobra.Command, args []string) error {
	s := loadSettings()

	log := zap.NewNop()
	if s.LogFile != "" {
		var err error
		if log, err = loggerFor(s); err != nil {
			return err
		}
	}
	defer func() { _ = log.Sync() }()

	if controlSimulate {
		return runControlProgram(flowctl.NewSimulator(), "Simulator")
	}

	lost := make(chan struct{})
	sess, err := openSession(s, log, flowctl.WithExitFunc(func(int) {
		close(lost)
	}))
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	m := initialControlModel(sess.ctrl, sess.info)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// The receive loop hands end of stream to the TUI instead of exiting
	go func() {
		<-lost
		p.Send(connectionLostMsg{})
	}()

	return runProgram(p, sess.ctrl)
}

func runControlProgram(dev flowctl.Device, connInfo string) error {
	p := tea.NewProgram(initialControlModel(dev, connInfo), tea.WithAltScreen())
	return runProgram(p, dev)
}

func runProgram(p *tea.Program, dev flowctl.Device) error {
	if err := dev.Start(); err != nil {
		return err
	}
	defer func() { _ = dev.Stop() }()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
