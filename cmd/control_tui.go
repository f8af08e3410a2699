// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/kegstat/pkg/flowctl"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	refreshInterval = 250 * time.Millisecond
	statusInterval  = time.Second // STATUS request period for real hardware
	maxLogEntries   = 100
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// statusRequester is implemented by devices that answer STATUS
type statusRequester interface {
	RequestStatus() error
}

// statsSource is implemented by devices that track frame statistics
type statsSource interface {
	Stats() flowctl.Statistics
}

// lastStatusSource is implemented by devices that keep the last status frame
type lastStatusSource interface {
	LastStatus() *flowctl.StatusPacket
}

type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

type controlKeyMap struct {
	Valve  key.Binding
	Fridge key.Binding
	Status key.Binding
	Reset  key.Binding
	Quit   key.Binding
}

func (k controlKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Valve, k.Fridge, k.Status, k.Reset, k.Quit}
}

func (k controlKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var controlKeys = controlKeyMap{
	Valve:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "valve")),
	Fridge: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fridge")),
	Status: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
	Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset ticks")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	dev      flowctl.Device
	connInfo string

	// Snapshot refreshed on every tick
	ticks      uint64
	tickBase   uint64 // ticks at the last reset
	fridge     flowctl.FridgeState
	valve      flowctl.ValveState
	temp       string
	stats      *flowctl.Statistics
	lastStatus time.Time

	eventLog []eventLogEntry

	keys controlKeyMap
	help help.Model

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type connectionLostMsg struct{}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(dev flowctl.Device, connInfo string) controlModel {
	return controlModel{
		dev:      dev,
		connInfo: connInfo,
		fridge:   flowctl.FridgeUnknown,
		temp:     flowctl.FormatTemperature(0, false),
		eventLog: make([]eventLogEntry, 0),
		keys:     controlKeys,
		help:     help.New(),
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case controlTickMsg:
		m.refresh(time.Time(msg))
		return m, controlTickCmd()

	case connectionLostMsg:
		m.connectionLost = true
		m.addEvent("connection lost", true)
	}

	return m, nil
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Valve):
		if m.valve == flowctl.ValveOpen {
			m.apply("close valve", m.dev.CloseValve, func() { m.valve = flowctl.ValveClosed })
		} else {
			m.apply("open valve", m.dev.OpenValve, func() { m.valve = flowctl.ValveOpen })
		}

	case key.Matches(msg, m.keys.Fridge):
		if m.fridge == flowctl.FridgeOn {
			m.apply("disable fridge", m.dev.DisableFridge, func() { m.fridge = flowctl.FridgeOff })
		} else {
			m.apply("enable fridge", m.dev.EnableFridge, func() { m.fridge = flowctl.FridgeOn })
		}

	case key.Matches(msg, m.keys.Status):
		if r, ok := m.dev.(statusRequester); ok {
			m.apply("request status", r.RequestStatus, nil)
		} else {
			m.addEvent("status requests not supported", false)
		}

	case key.Matches(msg, m.keys.Reset):
		m.tickBase = m.ticks
		m.addEvent(fmt.Sprintf("tick counter reset at %d", m.ticks), false)
	}

	return m, nil
}

// apply runs a device command and records the outcome. On success the
// optimistic update is applied until the next refresh.
func (m *controlModel) apply(name string, fn func() error, update func()) {
	if err := fn(); err != nil {
		m.addEvent(fmt.Sprintf("%s failed: %v", name, err), true)
		return
	}
	if update != nil {
		update()
	}
	m.addEvent(name, false)
}

// refresh polls the device snapshot and, for hardware, requests status
// once per statusInterval
func (m *controlModel) refresh(now time.Time) {
	if r, ok := m.dev.(statusRequester); ok && !m.connectionLost && now.Sub(m.lastStatus) >= statusInterval {
		if err := r.RequestStatus(); err != nil {
			m.addEvent(fmt.Sprintf("status request failed: %v", err), true)
		}
		m.lastStatus = now
	}

	m.ticks = m.dev.ReadTicks()
	if m.ticks < m.tickBase {
		m.tickBase = 0
	}
	m.fridge = m.dev.FridgeStatus()
	m.valve = m.dev.ValveStatus()

	if src, ok := m.dev.(lastStatusSource); ok {
		if p := src.LastStatus(); p != nil {
			m.temp = flowctl.FormatTemperature(p.Temperature())
		}
	}

	if src, ok := m.dev.(statsSource); ok {
		stats := src.Stats()
		stats.CalculateRates()
		m.stats = &stats
	}
}

func (m *controlModel) addEvent(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}

// pouredTicks returns ticks since the last reset
func (m controlModel) pouredTicks() uint64 {
	return m.ticks - m.tickBase
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("KEGSTAT CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = errorStyle.Render("DISCONNECTED")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s", connStatus)))
	s.WriteString("\n\n")

	s.WriteString(m.renderDevice(labelStyle, valueStyle, warningStyle, boxStyle))
	s.WriteString("\n")

	if m.stats != nil {
		s.WriteString(m.renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle))
		s.WriteString("\n")
	}

	s.WriteString(m.renderEventLog(labelStyle, warningStyle, errorStyle, headerStyle, boxStyle))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderDevice(labelStyle, valueStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder

	stateStyle := func(on bool) lipgloss.Style {
		if on {
			return valueStyle
		}
		return warningStyle
	}

	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Ticks:"), valueStyle.Render(fmt.Sprintf("%d", m.pouredTicks()))))
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Valve:"), stateStyle(m.valve == flowctl.ValveOpen).Render(m.valve.String())))
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Fridge:"), stateStyle(m.fridge == flowctl.FridgeOn).Render(m.fridge.String())))
	s.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("Temp:"), valueStyle.Render(m.temp)))

	return boxStyle.Width(m.width - 4).Render(s.String())
}

func (m controlModel) renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle lipgloss.Style) string {
	rejected := valueStyle.Render("0")
	if m.stats.RejectedFrames > 0 {
		rejected = errorStyle.Render(fmt.Sprintf("%d", m.stats.RejectedFrames))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.ValidPackets)),
		labelStyle.Render("Rejected:"), rejected,
		labelStyle.Render("Commands:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.CommandsSent)),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f fr/s", m.stats.FrameRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(labelStyle, warningStyle, errorStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}
