// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// FrameErrorKind represents the reason a frame was rejected
type FrameErrorKind int

const (
	FrameNoStart FrameErrorKind = iota
	FrameBadTrailer
	FrameBadLength
)

// String returns a short name for the rejection kind
func (k FrameErrorKind) String() string {
	switch k {
	case FrameNoStart:
		return "no_start"
	case FrameBadTrailer:
		return "bad_trailer"
	case FrameBadLength:
		return "bad_length"
	default:
		return "unknown"
	}
}

// FrameError represents a frame that failed boundary or size checks
type FrameError struct {
	Kind    FrameErrorKind
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (e *FrameError) Error() string {
	return e.Message
}

// BannerError is returned for board identification lines ("K...").
// It is not a fault; the board prints it after reset.
type BannerError struct {
	Board string
}

// Error implements the error interface
func (e *BannerError) Error() string {
	return fmt.Sprintf("found board: %s", e.Board)
}

// IsBanner reports whether err is a board banner
func IsBanner(err error) bool {
	var b *BannerError
	return errors.As(err, &b)
}

// validateFrame checks framing and returns the stripped payload
func validateFrame(frame []byte, layout Layout) ([]byte, error) {
	if !bytes.HasPrefix(frame, []byte(StartMarker)) {
		if len(frame) > 0 && frame[0] == BannerMarker {
			return nil, &BannerError{Board: strings.TrimRight(string(frame), Terminator)}
		}
		return nil, &FrameError{
			Kind:    FrameNoStart,
			Message: "no start of packet",
			Details: map[string]interface{}{"frame": frame},
		}
	}

	if !bytes.HasSuffix(frame, []byte(Terminator)) {
		return nil, &FrameError{
			Kind:    FrameBadTrailer,
			Message: "bad trailer",
			Details: map[string]interface{}{"frame": frame},
		}
	}

	// Marker and terminator cannot overlap, so the slice below is safe
	payload := frame[len(StartMarker) : len(frame)-len(Terminator)]
	if len(payload) != layout.PayloadSize() {
		return nil, &FrameError{
			Kind:    FrameBadLength,
			Message: fmt.Sprintf("payload length mismatch (%d bytes, expected %d)", len(payload), layout.PayloadSize()),
			Details: map[string]interface{}{"length": len(payload), "expected": layout.PayloadSize()},
		}
	}

	return payload, nil
}
