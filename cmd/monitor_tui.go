// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bug.st/serial"

	"github.com/Thermoquad/obdstat/pkg/obd"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const maxLogEntries = 100

// Configure dialog focus
const (
	focusPortList = iota
	focusPortInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// eventLogEntry is one line of the event log
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// portItem is a serial port in the configure dialog
type portItem string

func (p portItem) Title() string       { return string(p) }
func (p portItem) Description() string { return "serial port" }
func (p portItem) FilterValue() string { return string(p) }

type monitorKeyMap struct {
	PrevPage  key.Binding
	NextPage  key.Binding
	Toggle    key.Binding
	All       key.Binding
	Units     key.Binding
	Reset     key.Binding
	Configure key.Binding
	Stats     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevPage, k.NextPage, k.Toggle, k.Help, k.Quit}
}

func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevPage, k.NextPage, k.Toggle, k.All},
		{k.Units, k.Reset, k.Configure, k.Stats},
		{k.Help, k.Quit},
	}
}

var monitorKeys = monitorKeyMap{
	PrevPage:  key.NewBinding(key.WithKeys("pgup", "left", "["), key.WithHelp("pgup", "prev page")),
	NextPage:  key.NewBinding(key.WithKeys("pgdown", "right", "]"), key.WithHelp("pgdn", "next page")),
	Toggle:    key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "toggle")),
	All:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all on/off")),
	Units:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "units")),
	Reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset interface")),
	Configure: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "choose port")),
	Stats:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "statistics")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	session *pollSession
	tick    time.Duration

	keys      monitorKeyMap
	help      help.Model
	showStats bool

	eventLog []eventLogEntry

	// Configure dialog
	configuring bool
	portList    list.Model
	portInput   textinput.Model
	focus       int

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(s *pollSession) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "/dev/ttyUSB0"
	ti.CharLimit = 128
	ti.Width = 30

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetHeight(1)
	portList := list.New([]list.Item{}, delegate, 40, 8)
	portList.Title = "Serial Ports"
	portList.SetShowStatusBar(false)
	portList.SetShowHelp(false)
	portList.SetFilteringEnabled(false)

	m := monitorModel{
		session:   s,
		tick:      config.TickInterval,
		keys:      monitorKeys,
		help:      help.New(),
		eventLog:  make([]eventLogEntry, 0),
		portList:  portList,
		portInput: ti,
		width:     80,
		height:    24,
	}
	if s.connErr != nil {
		m.addLogEntry(s.connErr.Error(), true)
	}
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return m.tickCmd()
}

func (m monitorModel) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.configuring {
			return m.handleConfigureKey(msg)
		}
		if _, pending := m.session.engine.Pending(); pending {
			return m.handleAlertKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case monitorTickMsg:
		if !m.configuring {
			m.session.engine.Tick()
		}
		m.processEvents()
		return m, m.tickCmd()
	}

	return m, nil
}

//////////////////////////////////////////////////////////////
// Event Handling
//////////////////////////////////////////////////////////////

func (m *monitorModel) processEvents() {
	for _, ev := range m.session.drain() {
		switch ev := ev.(type) {
		case obd.ValueUpdated, obd.RateUpdated, obd.RedrawRequested:
			// shown on the page
		case obd.ConfigurationRequested:
			m.openConfigure()
		case obd.AlertRaised:
			m.addLogEntry(fmt.Sprintf("%s: %s", ev.Kind, obd.AlertMessage(ev.Kind)[0]), true)
		case obd.DisconnectDetected:
			m.addLogEntry("Device is not responding", true)
		case obd.LinkChanged:
			m.addLogEntry(obd.FormatStatus(portLabel(), ev.Verdict), ev.Verdict != obd.LinkConnected)
		case obd.ResetIssued:
			if ev.Err != nil {
				m.addLogEntry(fmt.Sprintf("Reset failed: %v", ev.Err), true)
			} else {
				m.addLogEntry("Interface reset ("+obd.ResetCommand+")", false)
			}
		}
	}
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}

func (m monitorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.session.engine

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.PrevPage):
		e.SetPage(e.Page().Number - 1)

	case key.Matches(msg, m.keys.NextPage):
		e.SetPage(e.Page().Number + 1)

	case key.Matches(msg, m.keys.Toggle):
		slot := int(msg.Runes[0] - '1')
		page := e.Page()
		if slot < page.Len() {
			ch := page.At(slot)
			e.SetEnabled(ch.Index, !ch.Enabled)
		}

	case key.Matches(msg, m.keys.All):
		e.SetAllOnPage(e.Page().AllDisabled())

	case key.Matches(msg, m.keys.Units):
		next := obd.Imperial
		if e.Units() == obd.Imperial {
			next = obd.Metric
		}
		e.SetUnits(next)
		store.Set("units", next.String())
		m.addLogEntry("Units: "+next.String(), false)

	case key.Matches(msg, m.keys.Reset):
		e.RequestReset()

	case key.Matches(msg, m.keys.Configure):
		m.openConfigure()

	case key.Matches(msg, m.keys.Stats):
		m.showStats = !m.showStats

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	m.processEvents()
	return m, nil
}

// handleAlertKey answers the pending alert; number keys pick a choice and
// enter picks the first one
func (m monitorModel) handleAlertKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	alert, _ := m.session.engine.Pending()

	index := -1
	switch s := msg.String(); {
	case s == "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case s == "enter":
		index = 0
	case len(s) == 1 && s[0] >= '1' && s[0] <= '9':
		index = int(s[0] - '1')
	}

	if index < 0 || index >= len(alert.Choices) {
		return m, nil
	}

	if err := m.session.engine.Resolve(alert.Choices[index]); err != nil {
		m.addLogEntry(err.Error(), true)
	}
	m.processEvents()
	return m, nil
}

//////////////////////////////////////////////////////////////
// Configure Dialog
//////////////////////////////////////////////////////////////

func (m *monitorModel) openConfigure() {
	ports, err := serial.GetPortsList()
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Failed to list serial ports: %v", err), true)
	}

	items := make([]list.Item, 0, len(ports))
	for _, p := range ports {
		items = append(items, portItem(p))
	}
	m.portList.SetItems(items)
	m.portInput.SetValue(portName)

	m.focus = focusPortList
	m.portInput.Blur()
	if len(items) == 0 {
		m.focus = focusPortInput
		m.portInput.Focus()
	}
	m.configuring = true
}

func (m monitorModel) handleConfigureKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.configuring = false
		return m, nil

	case "tab", "shift+tab":
		if m.focus == focusPortList {
			m.focus = focusPortInput
			return m, m.portInput.Focus()
		}
		m.focus = focusPortList
		m.portInput.Blur()
		return m, nil

	case "enter":
		selected := strings.TrimSpace(m.portInput.Value())
		if m.focus == focusPortList {
			if item, ok := m.portList.SelectedItem().(portItem); ok {
				selected = string(item)
			}
		}
		if selected == "" {
			return m, nil
		}
		m.applyPort(selected)
		return m, nil
	}

	if m.focus == focusPortList {
		m.portList, cmd = m.portList.Update(msg)
	} else {
		m.portInput, cmd = m.portInput.Update(msg)
	}
	return m, cmd
}

// applyPort switches to a serial port, saves it and reconnects
func (m *monitorModel) applyPort(port string) {
	m.configuring = false
	portName = port
	wsURL = ""

	store.Set("port", port)
	store.Set("url", "")
	if err := store.Save(); err != nil {
		m.addLogEntry(err.Error(), true)
	}

	if m.session.reconnect() {
		m.addLogEntry("Connected: "+m.session.connInfo, false)
		m.session.engine.RequestReset()
	} else {
		m.addLogEntry(m.session.connErr.Error(), true)
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(0, 2)
)

func (m monitorModel) View() string {
	if m.quitting {
		return "Saving settings...\n"
	}

	e := m.session.engine
	page := e.Page()

	var s strings.Builder
	s.WriteString(titleStyle.Render("OBDSTAT - LIVE DATA"))
	s.WriteString("\n")

	connInfo := m.session.connInfo
	if connInfo == "" {
		connInfo = "not connected"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Units: %s | Page %s",
		connInfo, e.Units(), obd.FormatPageNumber(page.Number, m.session.catalog.PageCount()))))
	s.WriteString("\n")

	status := obd.FormatStatus(portLabel(), e.Verdict())
	if e.Verdict() == obd.LinkConnected {
		s.WriteString(valueStyle.Render("✓ " + status))
	} else {
		s.WriteString(warningStyle.Render("⏳ " + status))
	}
	s.WriteString("\n\n")

	// Channels
	channels := strings.Builder{}
	for i, ch := range page.Channels {
		marker := " "
		if e.State() == obd.AwaitingResponse && e.Current() == ch.Index {
			marker = "›"
		}
		label := fmt.Sprintf("%s %d %-34s", marker, i+1, ch.Label)
		switch {
		case !ch.Enabled:
			channels.WriteString(offStyle.Render(label + " " + ch.Value))
		case ch.Value == obd.ValueNotAvailable:
			channels.WriteString(labelStyle.Render(label) + " " + warningStyle.Render(ch.Value))
		default:
			channels.WriteString(labelStyle.Render(label) + " " + valueStyle.Render(ch.Value))
		}
		if i < page.Len()-1 {
			channels.WriteString("\n")
		}
	}
	s.WriteString(boxStyle.Render(channels.String()))
	s.WriteString("\n")

	inst, avg := obd.FormatRates(e.Rates())
	s.WriteString(headerStyle.Render(inst + "   " + avg))
	s.WriteString("\n\n")

	if alert, pending := e.Pending(); pending {
		s.WriteString(renderAlert(alert))
		s.WriteString("\n\n")
	}

	if m.configuring {
		s.WriteString(m.renderConfigure())
		s.WriteString("\n\n")
	}

	if m.showStats {
		s.WriteString(boxStyle.Render(strings.TrimRight(e.Stats().String(), "\n")))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - page.Len() - 16
	if logHeight < 3 {
		logHeight = 3
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
			}
		}
	}
	s.WriteString(boxStyle.Width(max(m.width-4, 20)).Render(strings.TrimRight(logContent.String(), "\n")))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}

func renderAlert(alert obd.AlertRaised) string {
	content := strings.Builder{}
	for _, line := range obd.AlertMessage(alert.Kind) {
		content.WriteString(line)
		content.WriteString("\n")
	}
	content.WriteString("\n")

	buttons := make([]string, 0, len(alert.Choices))
	for i, choice := range alert.Choices {
		buttons = append(buttons, fmt.Sprintf("[%d] %s", i+1, choice))
	}
	content.WriteString(labelStyle.Render(strings.Join(buttons, "   ")))

	return alertStyle.Render(content.String())
}

func (m monitorModel) renderConfigure() string {
	content := strings.Builder{}
	if len(m.portList.Items()) > 0 {
		content.WriteString(m.portList.View())
		content.WriteString("\n\n")
	}
	content.WriteString(labelStyle.Render("Port: "))
	content.WriteString(m.portInput.View())
	content.WriteString("\n")
	content.WriteString(headerStyle.Render("enter: connect   tab: switch field   esc: cancel"))
	return boxStyle.Render(content.String())
}
