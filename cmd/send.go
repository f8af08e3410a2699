// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/kegstat/pkg/flowctl"
	"github.com/spf13/cobra"
)

var sendWait time.Duration

var sendCmd = &cobra.Command{
	Use:   "send <command>...",
	Short: "Send one or more commands to the flow controller",
	Long: `Send commands to the flow controller in order, then exit.

Commands are matched case-insensitively and accept '-' for '_':
  ` + strings.Join(commandNames(), ", ") + `

With --wait, kegstat keeps listening after the last command and prints the
first status frame that arrives, e.g.:
  kegstat -p /dev/ttyUSB0 send valve_on status --wait 2s`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().DurationVar(&sendWait, "wait", 0, "Wait this long for a status frame after sending")
}

func commandNames() []string {
	names := make([]string, 0, len(flowctl.Commands()))
	for _, c := range flowctl.Commands() {
		names = append(names, strings.ToLower(c.String()))
	}
	return names
}

// parseCommands resolves every argument before anything is written
func parseCommands(args []string) ([]flowctl.Command, error) {
	cmds := make([]flowctl.Command, 0, len(args))
	for _, arg := range args {
		c, err := flowctl.ParseCommand(arg)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	cmds, err := parseCommands(args)
	if err != nil {
		return err
	}

	s := loadSettings()
	log, err := loggerFor(s)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	statusChan := make(chan *flowctl.StatusPacket, 1)
	sess, err := openSession(s, log, flowctl.WithStatusHandler(func(p *flowctl.StatusPacket) {
		select {
		case statusChan <- p:
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()
	ctrl := sess.ctrl

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connection: %s\n", sess.info)

	if sendWait > 0 {
		if err := ctrl.Start(); err != nil {
			return err
		}
	}

	for _, c := range cmds {
		if err := ctrl.Send(c); err != nil {
			return err
		}
		fmt.Fprintf(out, "Sent %s (0x%02X)\n", c, c.Byte())
	}

	if sendWait <= 0 {
		return nil
	}

	select {
	case p := <-statusChan:
		fmt.Fprintln(out, flowctl.FormatStatus(p))
		return nil
	case <-time.After(sendWait):
		return fmt.Errorf("no status frame received within %s", sendWait)
	}
}
