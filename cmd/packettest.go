// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/kegstat/pkg/flowctl"
	"github.com/spf13/cobra"
)

// packet_test exit codes
const (
	exitPacketReceived = 0
	exitTimeout        = 1
	exitConnection     = 2
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid status frame",
	Long: `Request status and wait for a valid status frame until timeout.

This command connects to a serial port or WebSocket, sends STATUS once per
second and waits for a well-formed "M:" status frame. Banners and malformed
lines are ignored.

Exit codes:
  0 - Status frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a status frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	s := loadSettings()
	log, err := loggerFor(s)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	packetChan := make(chan *flowctl.StatusPacket, 1)
	onStatus := func(p *flowctl.StatusPacket) {
		select {
		case packetChan <- p:
		default:
		}
	}

	// Open connection (serial or WebSocket)
	sess, err := openSession(s, log,
		flowctl.WithStatusHandler(onStatus),
		flowctl.WithExitFunc(func(int) {
			fmt.Fprintf(os.Stderr, "Connection closed before a status frame arrived\n")
			os.Exit(exitConnection)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(exitConnection)
	}
	ctrl := sess.ctrl

	fmt.Printf("Kegstat - Packet Test\n")
	fmt.Printf("Connection: %s\n", sess.info)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid status frame...\n\n")

	if err := ctrl.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Start error: %v\n", err)
		os.Exit(exitConnection)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.After(time.Duration(packetTestTimeout) * time.Second)

	if err := ctrl.RequestStatus(); err != nil {
		fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		os.Exit(exitConnection)
	}

	for {
		select {
		case packet := <-packetChan:
			stats := ctrl.Stats()
			fmt.Printf("SUCCESS: Received valid status frame\n")
			fmt.Printf("  Type: STATUS (0x%02X)\n", packet.Type())
			fmt.Printf("  Ticks: %d\n", packet.Ticks())
			fmt.Printf("  Fridge: %s\n", packet.Fridge())
			fmt.Printf("  Valve: %s\n", packet.Valve())
			fmt.Printf("  Temperature: %s\n", flowctl.FormatTemperature(packet.Temperature()))
			if skipped := stats.TotalFrames - stats.ValidPackets; skipped > 0 {
				fmt.Printf("(skipped %d lines before a valid frame)\n", skipped)
			}
			_ = sess.Close()
			os.Exit(exitPacketReceived)

		case <-ticker.C:
			if err := ctrl.RequestStatus(); err != nil {
				fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
				os.Exit(exitConnection)
			}

		case <-deadline:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid status frame received within %d seconds\n", packetTestTimeout)
			os.Exit(exitTimeout)
		}
	}
}
