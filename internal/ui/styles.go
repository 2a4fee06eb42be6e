package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#2AA198") // Teal - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success, on states
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, off states
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

// Shared styles
var (
	// TitleStyle is for top-level headings (e.g., the hub name)
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	// SubtitleStyle is for secondary headings (e.g., "host 10.0.1.99")
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// KeyStyle is for detail keys (e.g., "Platform:")
	KeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(18)

	// ValueStyle is for detail values
	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// DeviceIDStyle is for device ids in listings
	DeviceIDStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(6).
			Align(lipgloss.Right)

	// DeviceLabelStyle is for device labels in listings
	DeviceLabelStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true)

	// AttrNameStyle is for attribute names
	AttrNameStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// EventTimeStyle is for event timestamps in the watch feed
	EventTimeStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// ModeEventStyle is for hub mode changes in the watch feed
	ModeEventStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	// ErrorStyle is for error message text
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// SuccessStyle is for success message text
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// HintStyle is for keybinding hints at the bottom of TUIs
	HintStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)
)

// Result markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
)

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, 24
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}
	return width, height
}

// HeaderBorderStyle returns the border style for section headers
func HeaderBorderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2)
}

// Divider renders a horizontal line of the given width
func Divider(width int) string {
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", width))
}
