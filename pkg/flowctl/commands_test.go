// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCommands_WireBytes(t *testing.T) {
	tests := []struct {
		cmd  Command
		wire byte
		name string
	}{
		{CmdStatus, 0x81, "STATUS"},
		{CmdValveOn, 0x83, "VALVE_ON"},
		{CmdValveOff, 0x84, "VALVE_OFF"},
		{CmdPushTicks, 0x87, "PUSH_TICKS"},
		{CmdNoPushTicks, 0x88, "NO_PUSH_TICKS"},
		{CmdFridgeOn, 0x90, "FRIDGE_ON"},
		{CmdFridgeOff, 0x91, "FRIDGE_OFF"},
		{CmdReadTemp, 0x93, "READ_TEMP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeCommand(tt.cmd)
			if err != nil {
				t.Fatalf("EncodeCommand error: %v", err)
			}
			if len(data) != 1 || data[0] != tt.wire {
				t.Errorf("EncodeCommand() = % X, want %02X", data, tt.wire)
			}
			if tt.cmd.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.cmd.String(), tt.name)
			}
		})
	}
}

func TestCommands_ClosedSet(t *testing.T) {
	if got := len(Commands()); got != 8 {
		t.Fatalf("Commands() has %d entries, want 8", got)
	}

	seen := map[byte]bool{}
	for _, c := range Commands() {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
		if seen[c.Byte()] {
			t.Errorf("duplicate opcode 0x%02X", c.Byte())
		}
		seen[c.Byte()] = true
	}

	valid := 0
	for b := 0; b < 256; b++ {
		if Command(b).Valid() {
			valid++
		}
	}
	if valid != len(Commands()) {
		t.Errorf("%d bytes are valid commands, want %d", valid, len(Commands()))
	}
}

func TestEncodeCommand_Unknown(t *testing.T) {
	data, err := EncodeCommand(Command(0x00))
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
	if data != nil {
		t.Errorf("expected nil data, got % X", data)
	}
	if Command(0x00).String() != "UNKNOWN" {
		t.Errorf("String() = %q, want UNKNOWN", Command(0x00).String())
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    Command
		wantErr bool
	}{
		{"status", CmdStatus, false},
		{"VALVE_ON", CmdValveOn, false},
		{"valve-off", CmdValveOff, false},
		{" fridge_on ", CmdFridgeOn, false},
		{"no-push-ticks", CmdNoPushTicks, false},
		{"read_temp", CmdReadTemp, false},
		{"valve", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCommand(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCommand) {
					t.Errorf("expected ErrUnknownCommand, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatStatus(t *testing.T) {
	d := fixedDecoder(LayoutStatus)
	p, err := d.Decode(buildStatusFrame(FridgeOn, ValveClosed, 300))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}

	want := "[03:04:05.000] STATUS (0x01) ticks=300 fridge=ON valve=CLOSED temp=n/a"
	if got := FormatStatus(p); got != want {
		t.Errorf("FormatStatus() = %q, want %q", got, want)
	}
	if p.String() != want {
		t.Errorf("String() = %q, want %q", p.String(), want)
	}
	if FormatStatus(nil) != "<no status>" {
		t.Errorf("FormatStatus(nil) = %q", FormatStatus(nil))
	}
}

func TestFormatStatus_Temperature(t *testing.T) {
	d := fixedDecoder(LayoutStatusTemp)
	p, err := d.Decode(buildFrame(0x01, 0x00, 0x01, 0x00, 0x00, 0x01, 0x90))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got := FormatStatus(p); !strings.Contains(got, "temp=25.000°C") {
		t.Errorf("FormatStatus() = %q, want temp=25.000°C", got)
	}
}

func TestFormatStates_Invalid(t *testing.T) {
	if got := FridgeState(7).String(); got != "INVALID(0x07)" {
		t.Errorf("FridgeState(7).String() = %q", got)
	}
	if got := ValveState(2).String(); got != "INVALID(0x02)" {
		t.Errorf("ValveState(2).String() = %q", got)
	}
}

func TestFormatFrameError(t *testing.T) {
	d := NewDecoder(LayoutStatus)

	frame := []byte("Kegboard\r\n")
	_, err := d.Decode(frame)
	if got := FormatFrameError(frame, err); got != "BANNER Kegboard" {
		t.Errorf("banner = %q", got)
	}

	frame = []byte("M:\x01\n")
	_, err = d.Decode(frame)
	got := FormatFrameError(frame, err)
	if !strings.HasPrefix(got, "REJECTED bad_trailer: bad trailer") {
		t.Errorf("rejection = %q", got)
	}
	if !strings.Contains(got, "4D 3A 01 0A") {
		t.Errorf("rejection should include hex dump, got %q", got)
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()
	d := NewDecoder(LayoutStatus)

	frames := [][]byte{
		buildStatusFrame(FridgeOff, ValveOpen, 10),
		buildStatusFrame(FridgeOff, ValveOpen, 5),
		[]byte("Kegboard\r\n"),
		[]byte("garbage\r\n"),
		[]byte("M:\x01\x00\n"),
		buildFrame(0x01),
	}
	for _, f := range frames {
		p, err := d.Decode(f)
		s.Update(p, err)
	}
	s.Update(nil, errors.New("other"))
	s.CommandSent()

	if s.TotalFrames != 7 {
		t.Errorf("TotalFrames = %d, want 7", s.TotalFrames)
	}
	if s.ValidPackets != 2 {
		t.Errorf("ValidPackets = %d, want 2", s.ValidPackets)
	}
	if s.TicksCounted != 15 {
		t.Errorf("TicksCounted = %d, want 15", s.TicksCounted)
	}
	if s.Banners != 1 {
		t.Errorf("Banners = %d, want 1", s.Banners)
	}
	if s.NoStart != 1 || s.BadTrailer != 1 || s.BadLength != 1 || s.OtherErrors != 1 {
		t.Errorf("rejections = %d/%d/%d/%d, want 1/1/1/1", s.NoStart, s.BadTrailer, s.BadLength, s.OtherErrors)
	}
	if s.RejectedFrames != 4 {
		t.Errorf("RejectedFrames = %d, want 4", s.RejectedFrames)
	}
	if s.CommandsSent != 1 {
		t.Errorf("CommandsSent = %d, want 1", s.CommandsSent)
	}

	summary := s.String()
	for _, want := range []string{"Total Frames:", "Board Banners:", "Bad Length:", "Ticks Counted:"} {
		if !strings.Contains(summary, want) {
			t.Errorf("String() missing %q", want)
		}
	}
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.Update(nil, &FrameError{Kind: FrameNoStart})
	start := s.StartTime
	time.Sleep(time.Millisecond)

	s.Reset()
	if s.TotalFrames != 0 || s.NoStart != 0 {
		t.Errorf("counters not reset: %+v", s)
	}
	if !s.StartTime.After(start) {
		t.Error("StartTime should advance on Reset")
	}
}
