// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package flowctl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrAlreadyStarted is returned by Start when the receive loop is running
	ErrAlreadyStarted = errors.New("controller already started")
	// ErrStopped is returned by Start after Stop has been called
	ErrStopped = errors.New("controller stopped")
)

// Device is the capability surface shared by the hardware Controller and
// the Simulator.
type Device interface {
	Start() error
	Stop() error
	OpenValve() error
	CloseValve() error
	EnableFridge() error
	DisableFridge() error
	ReadTicks() uint64
	FridgeStatus() FridgeState
	ValveStatus() ValveState
}

var (
	_ Device = (*Controller)(nil)
	_ Device = (*Simulator)(nil)
)

// Option configures a Controller
type Option func(*Controller)

// WithLayout selects the status payload layout (default LayoutStatus)
func WithLayout(layout Layout) Option {
	return func(c *Controller) {
		c.decoder = NewDecoder(layout)
	}
}

// WithPollInterval sets how long the receive loop waits for the link to
// become readable before rechecking the stop signal
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithExitFunc replaces the function called when the link reaches end of
// stream (default os.Exit)
func WithExitFunc(exit func(code int)) Option {
	return func(c *Controller) {
		c.exit = exit
	}
}

// WithStatusHandler registers a callback invoked from the receive loop for
// every accepted status packet. The handler must not block.
func WithStatusHandler(fn func(*StatusPacket)) Option {
	return func(c *Controller) {
		c.onStatus = fn
	}
}

// Controller talks to a flow controller board over a Link.
//
// Commands are written one byte at a time under a lock. Status frames are
// read by a background loop started with Start, which keeps the most
// recent StatusPacket and a running total of flow ticks.
type Controller struct {
	link         Link
	log          *zap.Logger
	decoder      *Decoder
	pollInterval time.Duration
	exit         func(int)
	onStatus     func(*StatusPacket)
	now          func() time.Time

	writeMu sync.Mutex

	mu         sync.RWMutex
	status     *StatusPacket
	totalTicks uint64
	lastFridge time.Time
	stats      *Statistics
	started    bool
	stopped    bool

	quit     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewController creates a controller over an already configured link.
// A nil logger disables logging.
func NewController(link Link, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		link:         link,
		log:          logger,
		decoder:      NewDecoder(LayoutStatus),
		pollInterval: DefaultPollInterval,
		exit:         os.Exit,
		now:          time.Now,
		stats:        NewStatistics(),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ============================================================
// Write path
// ============================================================

// Send writes a single command byte to the link.
// Replies, if any, arrive asynchronously through the receive loop.
func (c *Controller) Send(cmd Command) error {
	buf, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	_, err = c.link.Write(buf)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	c.mu.Lock()
	c.stats.CommandSent()
	c.mu.Unlock()

	c.log.Debug("command sent", zap.Stringer("command", cmd))
	return nil
}

// RequestStatus asks the board to send a status packet
func (c *Controller) RequestStatus() error {
	return c.Send(CmdStatus)
}

// OpenValve opens the solenoid valve. The board has no valve watchdog, so
// callers must close it when finished.
func (c *Controller) OpenValve() error {
	return c.Send(CmdValveOn)
}

// CloseValve closes the solenoid valve
func (c *Controller) CloseValve() error {
	return c.Send(CmdValveOff)
}

// EnableFridge energizes the fridge relay and records the activation time.
// No minimum interval between activations is enforced.
func (c *Controller) EnableFridge() error {
	c.mu.Lock()
	c.lastFridge = c.now()
	c.mu.Unlock()
	return c.Send(CmdFridgeOn)
}

// DisableFridge turns the fridge relay off
func (c *Controller) DisableFridge() error {
	return c.Send(CmdFridgeOff)
}

// RequestTemperature asks the board to sample its temperature sensor
func (c *Controller) RequestTemperature() error {
	return c.Send(CmdReadTemp)
}

// EnableTickPush gives the pulse counter priority on the board
func (c *Controller) EnableTickPush() error {
	return c.Send(CmdPushTicks)
}

// DisableTickPush returns the board to normal scheduling
func (c *Controller) DisableTickPush() error {
	return c.Send(CmdNoPushTicks)
}

// ============================================================
// State accessors
// ============================================================

// ReadTicks returns the cumulative tick count of all accepted packets
func (c *Controller) ReadTicks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalTicks
}

// LastStatus returns the most recently accepted packet, or nil
func (c *Controller) LastStatus() *StatusPacket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// FridgeStatus returns the last reported fridge state, or FridgeUnknown
// before the first packet arrives
func (c *Controller) FridgeStatus() FridgeState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status == nil {
		return FridgeUnknown
	}
	return c.status.fridge
}

// ValveStatus returns the last reported valve state, or ValveClosed before
// the first packet arrives
func (c *Controller) ValveStatus() ValveState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status == nil {
		return ValveClosed
	}
	return c.status.valve
}

// LastFridgeActivation returns when EnableFridge was last called
func (c *Controller) LastFridgeActivation() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFridge
}

// Stats returns a copy of the frame statistics
func (c *Controller) Stats() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.stats
}

// Layout returns the payload layout the controller decodes
func (c *Controller) Layout() Layout {
	return c.decoder.Layout()
}

// ============================================================
// Receive loop
// ============================================================

// Start launches the background receive loop
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true
	go c.run()
	return nil
}

// Stop signals the receive loop to exit and sends a status request so a
// loop blocked waiting on the link wakes up. Use Wait or Done to observe
// the loop exiting.
func (c *Controller) Stop() error {
	c.mu.Lock()
	started := c.started
	c.stopped = true
	c.mu.Unlock()

	first := false
	c.stopOnce.Do(func() {
		close(c.quit)
		first = true
	})
	if !first {
		return nil
	}
	if !started {
		close(c.done)
		return nil
	}
	return c.RequestStatus()
}

// Done returns a channel closed once the receive loop has exited
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the receive loop has exited
func (c *Controller) Wait() {
	<-c.done
}

func (c *Controller) run() {
	defer close(c.done)

	c.log.Info("status loop starting",
		zap.Stringer("layout", c.decoder.Layout()),
		zap.Duration("poll_interval", c.pollInterval))

	for {
		select {
		case <-c.quit:
			c.log.Info("status loop exiting")
			return
		default:
		}

		if !c.poll() {
			return
		}
	}
}

// poll runs one wait/read iteration. Returns false when the loop must end.
func (c *Controller) poll() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("packet read error", zap.Any("panic", r), zap.Stack("stack"))
			ok = false
		}
	}()

	ready, err := c.link.WaitReadable(c.pollInterval)
	if err != nil {
		c.log.Error("packet read error", zap.Error(err), zap.Stack("stack"))
		return false
	}
	if !ready {
		return true
	}

	frame, err := c.link.ReadLine()
	if err != nil && c.stopping() {
		// The caller closed the transport after Stop
		c.log.Info("status loop exiting", zap.NamedError("reason", err))
		return false
	}
	if errors.Is(err, io.EOF) {
		c.log.Error("flow device went away; exiting")
		c.exit(1)
		return false
	}
	if err != nil {
		c.log.Error("packet read error", zap.Error(err), zap.Stack("stack"))
		return false
	}

	c.handleFrame(frame)
	return true
}

// stopping reports whether Stop has been called
func (c *Controller) stopping() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

// handleFrame decodes one frame and, if accepted, replaces the held status
// and adds its ticks to the running total
func (c *Controller) handleFrame(frame []byte) {
	p, err := c.decoder.Decode(frame)

	c.mu.Lock()
	c.stats.Update(p, err)
	if err == nil {
		c.status = p
		c.totalTicks += uint64(p.ticks)
	}
	total := c.totalTicks
	c.mu.Unlock()

	if err != nil {
		var banner *BannerError
		if errors.As(err, &banner) {
			c.log.Info("found board", zap.String("board", banner.Board))
			return
		}
		var fe *FrameError
		kind := "unknown"
		if errors.As(err, &fe) {
			kind = fe.Kind.String()
		}
		c.log.Info("frame rejected; ignoring",
			zap.String("kind", kind),
			zap.Error(err),
			zap.ByteString("frame", frame))
		return
	}

	c.log.Debug("status received",
		zap.Uint16("ticks", p.ticks),
		zap.Uint64("total_ticks", total),
		zap.Stringer("fridge", p.fridge),
		zap.Stringer("valve", p.valve))

	if c.onStatus != nil {
		c.onStatus(p)
	}
}
