// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package flowctl drives the kegboard flow controller over a serial link.
//
// The controller board accepts single-byte commands and periodically emits
// fixed-size status frames of the form "M:" <payload> "\r\n". This package
// provides command encoding, frame validation and decoding, a Controller
// that owns the link, and a Simulator for running without hardware.
package flowctl

import "time"

// Command is a single-byte opcode understood by the flow controller.
type Command byte

// Command opcodes (host → board)
const (
	CmdStatus      Command = 0x81 // Request a status packet
	CmdValveOn     Command = 0x83 // Open the solenoid valve
	CmdValveOff    Command = 0x84 // Close the solenoid valve
	CmdPushTicks   Command = 0x87 // Give priority to the pulse counter
	CmdNoPushTicks Command = 0x88 // Inverse of CmdPushTicks
	CmdFridgeOn    Command = 0x90 // Energize the fridge relay
	CmdFridgeOff   Command = 0x91 // Pulse the fridge relay off
	CmdReadTemp    Command = 0x93 // Read the attached temperature sensor
)

// Frame boundaries
const (
	StartMarker  = "M:"
	BannerMarker = 'K'
	Terminator   = "\r\n"
)

// Packet types (payload byte 0)
const (
	PacketTypeStatus = 0x01
)

// Payload sizes
const (
	StatusPayloadSize     = 5
	StatusTempPayloadSize = 7
)

// Temperature conversion (12-bit sensor mode)
const (
	tempScale     = 0.0625
	tempHighMask  = 0x07
	tempSignShift = 3
)

// Controller defaults
const (
	DefaultPollInterval = time.Second
)

// Simulator pour rate in ticks per second
const (
	SimulatorTickRate = 50
)

// FridgeState is the fridge relay state reported in a status packet.
type FridgeState uint8

// Fridge state values
const (
	FridgeOff     FridgeState = 0
	FridgeOn      FridgeState = 1
	FridgeUnknown FridgeState = 2
)

// ValveState is the solenoid valve state reported in a status packet.
type ValveState uint8

// Valve state values
const (
	ValveClosed ValveState = 0
	ValveOpen   ValveState = 1
)
