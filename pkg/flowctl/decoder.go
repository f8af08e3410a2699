// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import "time"

// Layout selects the status payload format the decoder accepts.
//
// The board documents a 5-byte payload with no temperature field, while
// some firmware revisions append a two-byte temperature reading. The
// layout must be chosen explicitly; frames of the other size are rejected.
type Layout int

const (
	// LayoutStatus is the documented 9-byte frame: type, fridge, valve,
	// ticks high, ticks low.
	LayoutStatus Layout = iota
	// LayoutStatusTemp is an 11-byte frame with temperature MSB and LSB
	// following the tick bytes.
	LayoutStatusTemp
)

// PayloadSize returns the number of bytes between marker and terminator
func (l Layout) PayloadSize() int {
	if l == LayoutStatusTemp {
		return StatusTempPayloadSize
	}
	return StatusPayloadSize
}

// FrameSize returns the full frame length including marker and terminator
func (l Layout) FrameSize() int {
	return len(StartMarker) + l.PayloadSize() + len(Terminator)
}

// String returns the layout name
func (l Layout) String() string {
	if l == LayoutStatusTemp {
		return "status+temp"
	}
	return "status"
}

// Decoder turns line frames into status packets
type Decoder struct {
	layout Layout
	now    func() time.Time
}

// NewDecoder creates a decoder for the given payload layout
func NewDecoder(layout Layout) *Decoder {
	return &Decoder{
		layout: layout,
		now:    time.Now,
	}
}

// Layout returns the decoder's payload layout
func (d *Decoder) Layout() Layout {
	return d.layout
}

// Decode validates one frame (including its "\r\n") and decodes it.
// Returns a *BannerError for board banners and a *FrameError for
// malformed frames. Decode never panics on arbitrary input.
func (d *Decoder) Decode(frame []byte) (*StatusPacket, error) {
	payload, err := validateFrame(frame, d.layout)
	if err != nil {
		return nil, err
	}

	p := &StatusPacket{
		packetType: payload[0],
		fridge:     FridgeState(payload[1]),
		valve:      ValveState(payload[2]),
		ticks:      uint16(payload[3])<<8 | uint16(payload[4]),
		timestamp:  d.now(),
	}

	if d.layout == LayoutStatusTemp {
		p.temperature = ConvertTemperature(payload[5], payload[6])
		p.hasTemp = true
	}

	return p, nil
}

// ConvertTemperature converts a 12-bit sensor reading to degrees Celsius.
// The low three bits of msb are the magnitude's high bits; any of the
// upper five bits set marks a negative reading.
func ConvertTemperature(msb, lsb byte) float64 {
	val := float64(int(msb&tempHighMask)<<8|int(lsb)) * tempScale
	if msb>>tempSignShift != 0 {
		val = -val
	}
	return val
}
