// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"errors"
	"math"
	"testing"
	"time"
)

// ============================================================
// Test Helpers
// ============================================================

// buildFrame wraps a payload in "M:" ... "\r\n"
func buildFrame(payload ...byte) []byte {
	frame := append([]byte(StartMarker), payload...)
	return append(frame, Terminator...)
}

// buildStatusFrame creates a 9-byte status frame
func buildStatusFrame(fridge FridgeState, valve ValveState, ticks uint16) []byte {
	return buildFrame(PacketTypeStatus, byte(fridge), byte(valve), byte(ticks>>8), byte(ticks))
}

func fixedDecoder(layout Layout) *Decoder {
	d := NewDecoder(layout)
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	d.now = func() time.Time { return at }
	return d
}

// ============================================================
// Layout Tests
// ============================================================

func TestLayout_Sizes(t *testing.T) {
	tests := []struct {
		layout  Layout
		payload int
		frame   int
		name    string
	}{
		{LayoutStatus, 5, 9, "status"},
		{LayoutStatusTemp, 7, 11, "status+temp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.layout.PayloadSize(); got != tt.payload {
				t.Errorf("PayloadSize() = %d, want %d", got, tt.payload)
			}
			if got := tt.layout.FrameSize(); got != tt.frame {
				t.Errorf("FrameSize() = %d, want %d", got, tt.frame)
			}
			if got := tt.layout.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
		})
	}
}

// ============================================================
// Decode Tests
// ============================================================

func TestDecode_StatusPacket(t *testing.T) {
	d := fixedDecoder(LayoutStatus)

	p, err := d.Decode(buildFrame(0x01, 0x01, 0x01, 0x01, 0x02))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	if p.Type() != PacketTypeStatus {
		t.Errorf("Type() = 0x%02X, want 0x01", p.Type())
	}
	if p.Ticks() != 0x0102 {
		t.Errorf("Ticks() = %d, want %d", p.Ticks(), 0x0102)
	}
	if !p.FridgeOn() || p.FridgeOff() {
		t.Errorf("Fridge() = %s, want ON", p.Fridge())
	}
	if !p.ValveOpen() || p.ValveClosed() {
		t.Errorf("Valve() = %s, want OPEN", p.Valve())
	}
	if _, ok := p.Temperature(); ok {
		t.Error("Temperature() should be absent for LayoutStatus")
	}
}

func TestDecode_TickBytes(t *testing.T) {
	tests := []struct {
		name     string
		high     byte
		low      byte
		expected uint16
	}{
		{"zero", 0x00, 0x00, 0},
		{"low only", 0x00, 0xFF, 255},
		{"high only", 0x01, 0x00, 256},
		{"max", 0xFF, 0xFF, 65535},
	}

	d := NewDecoder(LayoutStatus)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := d.Decode(buildFrame(0x01, 0x00, 0x00, tt.high, tt.low))
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if p.Ticks() != tt.expected {
				t.Errorf("Ticks() = %d, want %d", p.Ticks(), tt.expected)
			}
		})
	}
}

func TestDecode_Deterministic(t *testing.T) {
	d := fixedDecoder(LayoutStatus)
	frame := buildStatusFrame(FridgeUnknown, ValveClosed, 4242)

	p1, err1 := d.Decode(frame)
	p2, err2 := d.Decode(frame)
	if err1 != nil || err2 != nil {
		t.Fatalf("Decode errors: %v, %v", err1, err2)
	}
	if *p1 != *p2 {
		t.Errorf("Decode should be deterministic: %v != %v", p1, p2)
	}
}

func TestDecode_FridgeStates(t *testing.T) {
	d := NewDecoder(LayoutStatus)
	for _, state := range []FridgeState{FridgeOff, FridgeOn, FridgeUnknown} {
		t.Run(state.String(), func(t *testing.T) {
			p, err := d.Decode(buildStatusFrame(state, ValveClosed, 0))
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if p.Fridge() != state {
				t.Errorf("Fridge() = %s, want %s", p.Fridge(), state)
			}
		})
	}
}

func TestDecode_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		kind  FrameErrorKind
	}{
		{"empty", []byte{}, FrameNoStart},
		{"bare newline", []byte("\n"), FrameNoStart},
		{"wrong marker", []byte("X:\x01\x00\x00\x00\x01\r\n"), FrameNoStart},
		{"half marker", []byte("M\x01\x00\x00\x00\x01\r\n"), FrameNoStart},
		{"lf only", []byte("M:\x01\x00\x00\x00\x01\n"), FrameBadTrailer},
		{"no terminator", []byte("M:\x01\x00\x00\x00\x01"), FrameBadTrailer},
		{"cr lf swapped", []byte("M:\x01\x00\x00\x00\x01\n\r"), FrameBadTrailer},
		{"empty payload", []byte("M:\r\n"), FrameBadLength},
		{"short payload", buildFrame(0x01, 0x00, 0x00, 0x01), FrameBadLength},
		{"long payload", buildFrame(0x01, 0x00, 0x00, 0x00, 0x01, 0x00), FrameBadLength},
	}

	d := NewDecoder(LayoutStatus)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := d.Decode(tt.frame)
			if p != nil {
				t.Errorf("expected nil packet, got %v", p)
			}
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FrameError, got %T (%v)", err, err)
			}
			if fe.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", fe.Kind, tt.kind)
			}
			if IsBanner(err) {
				t.Error("rejection must not be reported as a banner")
			}
		})
	}
}

func TestDecode_Banner(t *testing.T) {
	d := NewDecoder(LayoutStatus)

	p, err := d.Decode([]byte("KEGBOARD v2.1\r\n"))
	if p != nil {
		t.Errorf("banner should not decode, got %v", p)
	}
	if !IsBanner(err) {
		t.Fatalf("expected banner, got %v", err)
	}

	var b *BannerError
	errors.As(err, &b)
	if b.Board != "KEGBOARD v2.1" {
		t.Errorf("Board = %q, want %q", b.Board, "KEGBOARD v2.1")
	}
}

func TestDecode_LayoutMismatch(t *testing.T) {
	short := buildStatusFrame(FridgeOff, ValveClosed, 1)
	long := buildFrame(0x01, 0x00, 0x00, 0x00, 0x01, 0x01, 0x90)

	if _, err := NewDecoder(LayoutStatusTemp).Decode(short); err == nil {
		t.Error("LayoutStatusTemp should reject a 9-byte frame")
	}
	if _, err := NewDecoder(LayoutStatus).Decode(long); err == nil {
		t.Error("LayoutStatus should reject an 11-byte frame")
	}
}

// ============================================================
// Temperature Tests
// ============================================================

func TestConvertTemperature(t *testing.T) {
	tests := []struct {
		name     string
		msb, lsb byte
		expected float64
	}{
		{"zero", 0x00, 0x00, 0.0},
		{"one degree", 0x00, 0x10, 1.0},
		{"sixteenth", 0x00, 0x01, 0.0625},
		{"room temp", 0x01, 0x90, 25.0},
		{"max magnitude", 0x07, 0xFF, 127.9375},
		{"negative one", 0xF8, 0x10, -1.0},
		{"sign bit only", 0x08, 0x10, -1.0},
		{"negative with high bits", 0xF8 | 0x01, 0x00, -16.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertTemperature(tt.msb, tt.lsb)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("ConvertTemperature(0x%02X, 0x%02X) = %v, want %v", tt.msb, tt.lsb, got, tt.expected)
			}
		})
	}
}

func TestDecode_TemperatureLayout(t *testing.T) {
	d := NewDecoder(LayoutStatusTemp)

	p, err := d.Decode(buildFrame(0x01, 0x00, 0x01, 0x00, 0x05, 0x00, 0x10))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	temp, ok := p.Temperature()
	if !ok {
		t.Fatal("Temperature() should be present for LayoutStatusTemp")
	}
	if temp != 1.0 {
		t.Errorf("Temperature() = %v, want 1.0", temp)
	}
	if p.Ticks() != 5 {
		t.Errorf("Ticks() = %d, want 5", p.Ticks())
	}

	p, err = d.Decode(buildFrame(0x01, 0x00, 0x01, 0x00, 0x05, 0xF8, 0x10))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if temp, _ := p.Temperature(); temp != -1.0 {
		t.Errorf("Temperature() = %v, want -1.0", temp)
	}
}
