// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/kegstat/pkg/flowctl"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rawLogStatsInterval   time.Duration
	rawLogRequestInterval time.Duration
	rawLogShowRejected    bool
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw status frames in human-readable format",
	Long: `Continuously decode and display flow controller status frames as they arrive.

Each accepted frame is printed with its timestamp, tick count, fridge and
valve state. Board banners ("K..." lines) are shown as they appear, and
rejected frames are dumped in hex when --show-rejected is set.

With --request-interval the tool sends STATUS on that period, for boards
that do not push ticks on their own.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().DurationVar(&rawLogStatsInterval, "stats-interval", 0, "Print frame statistics on this period (0 disables)")
	rawLogCmd.Flags().DurationVar(&rawLogRequestInterval, "request-interval", 0, "Send STATUS on this period (0 disables)")
	rawLogCmd.Flags().BoolVar(&rawLogShowRejected, "show-rejected", false, "Print rejected frames with a hex dump")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	s := loadSettings()
	log, err := loggerFor(s)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection(s)
	if err != nil {
		return err
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Kegstat - Raw Frame Log\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Layout: %s\n", s.layout())
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	r := &rawLogger{
		link:    flowctl.NewLineLink(conn),
		decoder: flowctl.NewDecoder(s.layout()),
		stats:   flowctl.NewStatistics(),
		log:     log,
		out:     out,
	}
	return r.run(s.PollInterval)
}

// rawLogger prints every line read from a link
type rawLogger struct {
	link    *flowctl.LineLink
	decoder *flowctl.Decoder
	stats   *flowctl.Statistics
	log     *zap.Logger
	out     io.Writer
}

func (r *rawLogger) run(poll time.Duration) error {
	lastStats := time.Now()
	lastRequest := time.Time{}

	for {
		now := time.Now()
		if rawLogRequestInterval > 0 && now.Sub(lastRequest) >= rawLogRequestInterval {
			if err := r.request(); err != nil {
				return err
			}
			lastRequest = now
		}
		if rawLogStatsInterval > 0 && now.Sub(lastStats) >= rawLogStatsInterval {
			r.stats.CalculateRates()
			fmt.Fprintln(r.out, r.stats.String())
			lastStats = now
		}

		ready, err := r.link.WaitReadable(poll)
		if err != nil {
			return r.linkError(err)
		}
		if !ready {
			continue
		}

		line, err := r.link.ReadLine()
		if err != nil {
			return r.linkError(err)
		}
		r.handle(line)
	}
}

func (r *rawLogger) request() error {
	frame, err := flowctl.EncodeCommand(flowctl.CmdStatus)
	if err != nil {
		return err
	}
	if _, err := r.link.Write(frame); err != nil {
		return fmt.Errorf("failed to send %s: %w", flowctl.CmdStatus, err)
	}
	r.stats.CommandSent()
	return nil
}

func (r *rawLogger) linkError(err error) error {
	if errors.Is(err, io.EOF) {
		r.log.Info("connection closed")
		return nil
	}
	return fmt.Errorf("read error: %w", err)
}

func (r *rawLogger) handle(line []byte) {
	packet, err := r.decoder.Decode(line)
	r.stats.Update(packet, err)

	switch {
	case err == nil:
		fmt.Fprintln(r.out, flowctl.FormatStatus(packet))
	case flowctl.IsBanner(err), rawLogShowRejected:
		fmt.Fprintln(r.out, flowctl.FormatFrameError(line, err))
	default:
		r.log.Debug("frame rejected", zap.Error(err))
	}
}
