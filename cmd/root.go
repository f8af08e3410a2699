// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "kegstat",
	Short: "Kegboard Flow Controller Tool",
	Long: `Kegstat - A CLI tool for driving and monitoring kegboard flow controllers.

The flow controller accepts single-byte commands (valve, fridge, status) and
reports flow ticks, relay state and temperature in "M:" status frames.
Kegstat provides raw frame logging, one-shot commands, an interactive
control panel and an MQTT bridge.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Every flag can also be set in a config file (--config, or kegstat.yaml in
the working directory or ~/.config/kegstat) or through KEGSTAT_* environment
variables, e.g. KEGSTAT_PORT=/dev/ttyACM0.

For WebSocket authentication, the password is read from the KEGSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initConfig() },
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "Config file (default ./kegstat.yaml or ~/.config/kegstat/kegstat.yaml)")

	// Serial connection flags
	flags.StringP("port", "p", "", "Serial port device")
	flags.IntP("baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Protocol flags
	flags.Duration("poll-interval", defaultPollInterval, "How long the receive loop waits for data before rechecking for shutdown")
	flags.Bool("temperature", false, "Expect the 11-byte status frame carrying temperature bytes")

	// Logging flags
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Write logs to a rotated file instead of stderr")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
