// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"bufio"
	"io"
	"sync"
	"time"
)

// Link is a duplex byte stream to the flow controller board.
//
// ReadLine and WaitReadable are only ever called from a single goroutine
// (the Controller's receive loop). Write may be called concurrently; the
// Controller serializes writes itself.
type Link interface {
	io.Writer

	// ReadLine blocks until one '\n'-terminated line is available and
	// returns it including the terminator. At end of stream it returns any
	// trailing partial line first, then io.EOF.
	ReadLine() ([]byte, error)

	// WaitReadable blocks for at most timeout and reports whether a
	// subsequent ReadLine will return without blocking.
	WaitReadable(timeout time.Duration) (bool, error)
}

type lineResult struct {
	line []byte
	err  error
}

// LineLink adapts a byte stream into a Link. A pump goroutine reads lines
// from the stream so that readiness can be polled with a timeout.
type LineLink struct {
	w       io.Writer
	lines   chan lineResult
	pending *lineResult

	closed    chan struct{}
	closeOnce sync.Once
	pumpDone  chan struct{}
}

// NewLineLink creates a Link over rw and starts its line pump.
// The pump exits when rw returns an error (including when it is closed)
// or, if it is waiting to hand over a line, when the link is closed.
func NewLineLink(rw io.ReadWriter) *LineLink {
	l := &LineLink{
		w:        rw,
		lines:    make(chan lineResult, 16),
		closed:   make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go l.pump(rw)
	return l
}

func (l *LineLink) pump(r io.Reader) {
	defer close(l.pumpDone)
	defer close(l.lines)
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 && !l.deliver(lineResult{line: line}) {
			return
		}
		if err != nil {
			l.deliver(lineResult{err: err})
			return
		}
	}
}

// deliver hands one result to the reader. Returns false once the link is
// closed.
func (l *LineLink) deliver(r lineResult) bool {
	select {
	case l.lines <- r:
		return true
	case <-l.closed:
		return false
	}
}

// Close stops delivering lines. Subsequent reads report io.EOF, though
// lines already buffered may still be returned first. Close does not
// close the underlying stream; a pump blocked in Read exits once the
// owner closes it.
func (l *LineLink) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

// Write implements io.Writer
func (l *LineLink) Write(p []byte) (int, error) {
	return l.w.Write(p)
}

// WaitReadable implements Link
func (l *LineLink) WaitReadable(timeout time.Duration) (bool, error) {
	if l.pending != nil {
		return true, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r, ok := <-l.lines:
		if !ok {
			r = lineResult{err: io.EOF}
		}
		l.pending = &r
		return true, nil
	case <-l.closed:
		l.pending = &lineResult{err: io.EOF}
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

// ReadLine implements Link
func (l *LineLink) ReadLine() ([]byte, error) {
	var r lineResult
	if l.pending != nil {
		r, l.pending = *l.pending, nil
	} else {
		select {
		case res, ok := <-l.lines:
			if !ok {
				return nil, io.EOF
			}
			r = res
		case <-l.closed:
			r = lineResult{err: io.EOF}
		}
	}

	// Keep reporting end of stream on every subsequent call
	if r.err != nil {
		e := r
		l.pending = &e
	}
	return r.line, r.err
}
