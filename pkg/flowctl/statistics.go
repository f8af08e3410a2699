// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame statistics and rejection rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames    uint64
	ValidPackets   uint64
	Banners        uint64
	NoStart        uint64
	BadTrailer     uint64
	BadLength      uint64
	OtherErrors    uint64
	CommandsSent   uint64
	TicksCounted   uint64
	RejectedFrames uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // rejections/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records the outcome of decoding one frame
func (s *Statistics) Update(packet *StatusPacket, decodeErr error) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if decodeErr == nil {
		if packet != nil {
			s.ValidPackets++
			s.TicksCounted += uint64(packet.ticks)
		}
		return
	}

	if IsBanner(decodeErr) {
		s.Banners++
		return
	}

	s.RejectedFrames++
	var fe *FrameError
	if !errors.As(decodeErr, &fe) {
		s.OtherErrors++
		return
	}
	switch fe.Kind {
	case FrameNoStart:
		s.NoStart++
	case FrameBadTrailer:
		s.BadTrailer++
	case FrameBadLength:
		s.BadLength++
	}
}

// CommandSent records one command byte written to the link
func (s *Statistics) CommandSent() {
	s.CommandsSent++
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.RejectedFrames) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, rejectedPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidPackets) * 100.0 / float64(s.TotalFrames)
		rejectedPercent = float64(s.RejectedFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Packets:   %8d (%.1f%%)\n", s.ValidPackets, validPercent)

	if s.Banners > 0 {
		result += fmt.Sprintf("Board Banners:   %8d\n", s.Banners)
	}
	if s.RejectedFrames > 0 {
		result += fmt.Sprintf("Rejected:        %8d (%.1f%%)\n", s.RejectedFrames, rejectedPercent)
		if s.NoStart > 0 {
			result += fmt.Sprintf("  No Start:         %5d\n", s.NoStart)
		}
		if s.BadTrailer > 0 {
			result += fmt.Sprintf("  Bad Trailer:      %5d\n", s.BadTrailer)
		}
		if s.BadLength > 0 {
			result += fmt.Sprintf("  Bad Length:       %5d\n", s.BadLength)
		}
		if s.OtherErrors > 0 {
			result += fmt.Sprintf("  Other:            %5d\n", s.OtherErrors)
		}
	}

	result += fmt.Sprintf("Ticks Counted:   %8d\n", s.TicksCounted)
	result += fmt.Sprintf("Commands Sent:   %8d\n", s.CommandsSent)
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
