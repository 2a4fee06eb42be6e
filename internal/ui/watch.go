package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkerr/hubmaker/internal/device"
)

// maxFeedRows bounds the event history kept by the watch view.
const maxFeedRows = 500

// EventMsg carries one hub event into the watch model.
type EventMsg device.Event

// feedClosedMsg signals that the event source has gone away.
type feedClosedMsg struct{}

// WatchModel is a Bubble Tea model showing a live feed of hub events.
// Events arrive on a channel owned by the caller; the model only renders.
type WatchModel struct {
	hubName string
	events  <-chan device.Event

	spinner spinner.Model
	rows    []string
	count   int
	width   int
	height  int
	closed  bool
}

// NewWatchModel creates a watch view fed from the given channel. The caller
// keeps ownership of the channel; closing it ends the program.
func NewWatchModel(hubName string, events <-chan device.Event) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	width, height := GetTerminalSize()
	return WatchModel{
		hubName: hubName,
		events:  events,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// waitForEvent blocks on the feed channel and converts the next event into
// a message.
func waitForEvent(events <-chan device.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return feedClosedMsg{}
		}
		return EventMsg(ev)
	}
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EventMsg:
		m.rows = append(m.rows, formatEventRow(device.Event(msg)))
		if len(m.rows) > maxFeedRows {
			m.rows = m.rows[len(m.rows)-maxFeedRows:]
		}
		m.count++
		return m, waitForEvent(m.events)

	case feedClosedMsg:
		m.closed = true
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

// View implements tea.Model
func (m WatchModel) View() string {
	header := fmt.Sprintf("%s %s %s",
		m.spinner.View(),
		TitleStyle.Render(m.hubName),
		SubtitleStyle.Render(fmt.Sprintf("· %d events", m.count)),
	)

	// Show only as many rows as fit under the header and hint lines.
	visible := m.rows
	budget := m.height - 4
	if budget > 0 && len(visible) > budget {
		visible = visible[len(visible)-budget:]
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(Divider(min(m.width, MaxContentWidth)))
	b.WriteString("\n")
	if len(visible) == 0 {
		b.WriteString(SubtitleStyle.Render("  waiting for events..."))
		b.WriteString("\n")
	} else {
		b.WriteString(strings.Join(visible, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(HintStyle.Render("  q to quit"))
	return b.String()
}

// Count returns how many events the view has received.
func (m WatchModel) Count() int {
	return m.count
}

// formatEventRow renders one event as a single feed line.
func formatEventRow(ev device.Event) string {
	ts := EventTimeStyle.Render(time.Now().Format("15:04:05"))

	if ev.DeviceID == "" && ev.Name == "mode" {
		return fmt.Sprintf("  %s  %s", ts, ModeEventStyle.Render(fmt.Sprintf("mode → %v", ev.Value)))
	}

	label := ev.DisplayName
	if label == "" {
		label = ev.DeviceID
	}
	return fmt.Sprintf("  %s  %s %s %s",
		ts,
		DeviceLabelStyle.Render(label),
		AttrNameStyle.Render(ev.Name),
		ValueStyle.Render(fmt.Sprintf("%v", ev.Value)),
	)
}
