// Package ui implements wirepod-ctl's interactive terminal inspector,
// jivetalking's internal/ui bubbletea model: a long-lived
// Model driven by messages pumped from a background goroutine, rendered
// through lipgloss styles, replacing its one-shot file-processing
// progress view with a live connection-status and control-editing view.
package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wirepod/wirepod/internal/pod"
	"github.com/wirepod/wirepod/internal/proto"
	"github.com/wirepod/wirepod/internal/wire"
)

// GraphObjectID is the well-known object id wirepod-graph binds its
// control interface to, shared with the server side in cmd/wirepod-graph.
const GraphObjectID uint32 = 1

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00AAAA")).MarginBottom(1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AA0000")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	selStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true)
)

// connectedMsg reports the outcome of the control-event polling loop.
type connectedMsg struct {
	err error
}

// eventMsg carries one decoded event from the server, currently only
// control_changed notifications.
type eventMsg struct {
	control proto.ControlChangedArgs
}

// InspectorModel is the bubbletea model for the interactive control
// client: a scrollable list of observed controls with their last known
// value, and an edit mode for sending a new value.
type InspectorModel struct {
	conn  *wire.Connection
	iface *proto.Interface

	names   []string
	values  map[string]float64
	cursor  int
	editing bool
	input   string

	status    string
	lastError error
	width     int
}

// NewInspectorModel builds the inspector model bound to conn, using iface
// to marshal outgoing set_controls calls.
func NewInspectorModel(conn *wire.Connection, iface *proto.Interface) InspectorModel {
	return InspectorModel{
		conn:   conn,
		iface:  iface,
		values: make(map[string]float64),
		status: "connected",
	}
}

// Init starts the background event-polling loop.
func (m InspectorModel) Init() tea.Cmd {
	return pollEvents(m.conn)
}

// pollEvents reads one control_changed notification from conn, or
// reports a connection error; tea.Program re-invokes it after each
// message to keep draining the socket.
func pollEvents(conn *wire.Connection) tea.Cmd {
	return func() tea.Msg {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			msg, ok, err := conn.GetNext()
			if err != nil {
				return connectedMsg{err: err}
			}
			if !ok {
				if err := conn.Refill(); err != nil {
					if werr, isWire := err.(*wire.Error); isWire && werr.Kind == wire.TryAgain {
						continue
					}
					return connectedMsg{err: err}
				}
				continue
			}
			if msg.Opcode != proto.OpControlChanged {
				msg.Release()
				continue
			}
			args, err := decodeControlChanged(msg)
			msg.Release()
			if err != nil {
				continue
			}
			return eventMsg{control: args}
		}
		return connectedMsg{err: nil}
	}
}

func decodeControlChanged(msg *wire.Message) (proto.ControlChangedArgs, error) {
	method := proto.NewGraphInterface().Methods[proto.OpControlChanged]
	v, err := method.Demarshal(pod.NewParser(msg.Payload))
	if err != nil {
		return proto.ControlChangedArgs{}, err
	}
	return v.(proto.ControlChangedArgs), nil
}

// Update handles keyboard input and background poll results.
func (m InspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case connectedMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.status = "disconnected"
			return m, nil
		}
		return m, pollEvents(m.conn)

	case eventMsg:
		name := msg.control.Node + ":" + msg.control.Control
		if _, known := m.values[name]; !known {
			m.names = append(m.names, name)
		}
		m.values[name] = msg.control.Value
		return m, pollEvents(m.conn)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m InspectorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		switch msg.Type {
		case tea.KeyEnter:
			m.editing = false
			if len(m.names) == 0 {
				return m, nil
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(m.input), 64)
			m.input = ""
			if err != nil {
				m.lastError = err
				return m, nil
			}
			return m, m.sendControl(m.names[m.cursor], v)
		case tea.KeyEsc:
			m.editing = false
			m.input = ""
			return m, nil
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil
		default:
			m.input += msg.String()
			return m, nil
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.names)-1 {
			m.cursor++
		}
	case "enter", "e":
		if len(m.names) > 0 {
			m.editing = true
		}
	}
	return m, nil
}

func (m InspectorModel) sendControl(name string, value float64) tea.Cmd {
	return func() tea.Msg {
		args := proto.SetControlsArgs{Params: []proto.ControlParam{{Name: name, Value: value}}}
		method := m.iface.Methods[proto.OpSetControls]
		if err := proto.Send(m.conn, GraphObjectID, method, args); err != nil {
			return connectedMsg{err: err}
		}
		if err := m.conn.Flush(); err != nil {
			return connectedMsg{err: err}
		}
		m.values[name] = value
		return nil
	}
}

// View renders the current control list and edit prompt.
func (m InspectorModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("wirepod-ctl inspector"))
	b.WriteString("\n")

	if m.lastError != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.lastError)))
		b.WriteString("\n")
	} else {
		b.WriteString(okStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.names) == 0 {
		b.WriteString(dimStyle.Render("waiting for control_changed events..."))
		b.WriteString("\n")
	}
	for i, name := range m.names {
		line := fmt.Sprintf("%-32s %.6f", name, m.values[name])
		if i == m.cursor {
			b.WriteString(selStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.editing {
		b.WriteString(fmt.Sprintf("new value: %s_", m.input))
	} else {
		b.WriteString(dimStyle.Render("up/down select, enter to edit, q to quit"))
	}
	return b.String()
}
