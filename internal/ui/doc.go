// Package ui provides the terminal presentation layer: lipgloss styles and
// printing helpers for one-shot command output, and a Bubble Tea model for
// the live event watch view.
//
// Nothing in this package talks to a hub. Commands fetch data and hand it
// to a Printer; the watch view receives events on a channel the caller owns
// and only renders them.
package ui
