package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mkerr/hubmaker/internal/device"
)

// Printer provides methods for printing styled command output to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a bordered heading with a title and subtitle.
func (p *Printer) PrintHeader(title, subtitle string) {
	content := lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(" "+title),
		SubtitleStyle.Render(" "+subtitle),
	)
	p.Println(HeaderBorderStyle(p.width).Render(content))
}

// PrintDetails prints aligned key/value detail lines.
func (p *Printer) PrintDetails(details map[string]string) {
	keys := make([]string, 0, len(details))
	for key := range details {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		p.Println(KeyStyle.Render("  "+key+":") + " " + ValueStyle.Render(details[key]))
	}
}

// PrintError prints a styled error line.
func (p *Printer) PrintError(err error) {
	p.Println(ErrorStyle.Render(FailureMarker + " " + err.Error()))
}

// PrintSuccess prints a styled success line.
func (p *Printer) PrintSuccess(message string) {
	p.Println(SuccessStyle.Render(SuccessMarker + " " + message))
}

// PrintDeviceList prints a device listing, one line per device.
func (p *Printer) PrintDeviceList(devices []*device.Device) {
	for _, d := range devices {
		p.Println(DeviceIDStyle.Render(d.ID) + "  " + DeviceLabelStyle.Render(d.Label))
	}
}

// PrintDevice prints one device in full: identity, attributes, commands.
func (p *Printer) PrintDevice(d *device.Device) {
	p.PrintHeader(d.Label, fmt.Sprintf("id %s · %s", d.ID, d.Name))

	for _, attr := range d.Attributes {
		name := AttrNameStyle.Render(attr.Name)
		value := ValueStyle.Render(attr.ValueString())
		line := fmt.Sprintf("  %s = %s", name, value)
		if len(attr.Values) > 0 {
			line += " " + SubtitleStyle.Render("("+strings.Join(attr.Values, "|")+")")
		}
		p.Println(line)
	}

	if len(d.Commands) > 0 {
		commands := make([]string, len(d.Commands))
		for i, c := range d.Commands {
			commands[i] = string(c)
		}
		p.Newline()
		p.Println(SubtitleStyle.Render("  commands: " + strings.Join(commands, ", ")))
	}
}
