// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"errors"
	"fmt"
	"strconv"
)

// FormatCommand returns the human-readable name for a command
func FormatCommand(c Command) string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// String returns the fridge state name
func (s FridgeState) String() string {
	switch s {
	case FridgeOff:
		return "OFF"
	case FridgeOn:
		return "ON"
	case FridgeUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("INVALID(0x%02X)", uint8(s))
	}
}

// String returns the valve state name
func (s ValveState) String() string {
	switch s {
	case ValveClosed:
		return "CLOSED"
	case ValveOpen:
		return "OPEN"
	default:
		return fmt.Sprintf("INVALID(0x%02X)", uint8(s))
	}
}

// FormatTemperature formats a temperature reading, or "n/a" when absent
func FormatTemperature(temp float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.3f°C", temp)
}

// FormatStatus formats a status packet into a single human-readable line
func FormatStatus(p *StatusPacket) string {
	if p == nil {
		return "<no status>"
	}
	timestamp := p.timestamp.Format("15:04:05.000")
	return fmt.Sprintf("[%s] STATUS (0x%02X) ticks=%d fridge=%s valve=%s temp=%s",
		timestamp, p.packetType, p.ticks, p.fridge, p.valve,
		FormatTemperature(p.temperature, p.hasTemp))
}

// FormatFrameError formats a decode failure, including the raw frame bytes
func FormatFrameError(frame []byte, err error) string {
	var banner *BannerError
	if errors.As(err, &banner) {
		return fmt.Sprintf("BANNER %s", banner.Board)
	}

	var fe *FrameError
	if errors.As(err, &fe) {
		return fmt.Sprintf("REJECTED %s: %s\n  Frame: %s", fe.Kind, fe.Message, FormatFrame(frame))
	}

	return fmt.Sprintf("ERROR %v\n  Frame: %s", err, FormatFrame(frame))
}

// FormatFrame renders raw frame bytes as a hex dump followed by a quoted
// string, 16 bytes per row
func FormatFrame(frame []byte) string {
	result := ""
	for i, b := range frame {
		if i > 0 && i%16 == 0 {
			result += "\n         "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + strconv.Quote(string(frame))
}
