// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand is returned for bytes or names outside the command set
var ErrUnknownCommand = errors.New("unknown command")

// commandNames maps every opcode to its protocol name
var commandNames = map[Command]string{
	CmdStatus:      "STATUS",
	CmdValveOn:     "VALVE_ON",
	CmdValveOff:    "VALVE_OFF",
	CmdPushTicks:   "PUSH_TICKS",
	CmdNoPushTicks: "NO_PUSH_TICKS",
	CmdFridgeOn:    "FRIDGE_ON",
	CmdFridgeOff:   "FRIDGE_OFF",
	CmdReadTemp:    "READ_TEMP",
}

// Commands returns the full command set in opcode order
func Commands() []Command {
	return []Command{
		CmdStatus,
		CmdValveOn,
		CmdValveOff,
		CmdPushTicks,
		CmdNoPushTicks,
		CmdFridgeOn,
		CmdFridgeOff,
		CmdReadTemp,
	}
}

// Valid reports whether c is part of the command set
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

// Byte returns the wire encoding of the command
func (c Command) Byte() byte {
	return byte(c)
}

// String returns the protocol name of the command
func (c Command) String() string {
	return FormatCommand(c)
}

// EncodeCommand returns the wire bytes for a command.
// Commands carry no payload and no framing.
func EncodeCommand(c Command) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, byte(c))
	}
	return []byte{c.Byte()}, nil
}

// ParseCommand looks up a command by name. Matching is case-insensitive
// and accepts '-' in place of '_' (e.g. "valve-on").
func ParseCommand(name string) (Command, error) {
	want := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for c, n := range commandNames {
		if n == want {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}
