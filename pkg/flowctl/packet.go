// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import "time"

// StatusPacket represents a decoded flow controller status report.
// Packets are immutable once decoded.
type StatusPacket struct {
	packetType  uint8
	fridge      FridgeState
	valve       ValveState
	ticks       uint16
	temperature float64
	hasTemp     bool
	timestamp   time.Time
}

// Type returns the raw packet type byte
func (p *StatusPacket) Type() uint8 {
	return p.packetType
}

// Fridge returns the reported fridge state
func (p *StatusPacket) Fridge() FridgeState {
	return p.fridge
}

// Valve returns the reported valve state
func (p *StatusPacket) Valve() ValveState {
	return p.valve
}

// Ticks returns the flow tick count carried by this report.
// This is not cumulative; see Controller.ReadTicks for the running total.
func (p *StatusPacket) Ticks() uint16 {
	return p.ticks
}

// Temperature returns the decoded temperature in degrees Celsius.
// The second return value is false when the decoder layout carries no
// temperature bytes.
func (p *StatusPacket) Temperature() (float64, bool) {
	return p.temperature, p.hasTemp
}

// Timestamp returns the packet's decode timestamp
func (p *StatusPacket) Timestamp() time.Time {
	return p.timestamp
}

// ValveOpen returns true if the valve is reported open
func (p *StatusPacket) ValveOpen() bool {
	return p.valve == ValveOpen
}

// ValveClosed returns true if the valve is reported closed
func (p *StatusPacket) ValveClosed() bool {
	return p.valve == ValveClosed
}

// FridgeOn returns true if the fridge relay is reported on
func (p *StatusPacket) FridgeOn() bool {
	return p.fridge == FridgeOn
}

// FridgeOff returns true if the fridge relay is reported off
func (p *StatusPacket) FridgeOff() bool {
	return p.fridge == FridgeOff
}

// String implements fmt.Stringer
func (p *StatusPacket) String() string {
	return FormatStatus(p)
}
