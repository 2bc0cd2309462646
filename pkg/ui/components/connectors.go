// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConnectorRow represents a wallet connector in the list.
type ConnectorRow struct {
	ID          string
	Name        string
	Recommended bool
	Ready       bool
}

// ConnectorsComponent renders the connector picker.
type ConnectorsComponent struct {
	rows   []ConnectorRow
	cursor int
}

// NewConnectorsComponent creates a new connectors component.
func NewConnectorsComponent() *ConnectorsComponent {
	return &ConnectorsComponent{}
}

// SetRows replaces the list, keeping the cursor in range.
func (c *ConnectorsComponent) SetRows(rows []ConnectorRow) {
	c.rows = rows
	if c.cursor >= len(rows) {
		c.cursor = max(len(rows)-1, 0)
	}
}

// Up moves the cursor up.
func (c *ConnectorsComponent) Up() {
	if c.cursor > 0 {
		c.cursor--
	}
}

// Down moves the cursor down.
func (c *ConnectorsComponent) Down() {
	if c.cursor < len(c.rows)-1 {
		c.cursor++
	}
}

// Selected returns the row under the cursor.
func (c *ConnectorsComponent) Selected() (ConnectorRow, bool) {
	if len(c.rows) == 0 {
		return ConnectorRow{}, false
	}
	return c.rows[c.cursor], true
}

// View renders the connectors component.
func (c *ConnectorsComponent) View() string {
	if len(c.rows) == 0 {
		return "No wallet connectors configured"
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	readyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	tagStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	var sb strings.Builder
	for i, row := range c.rows {
		pointer := "  "
		if i == c.cursor {
			pointer = cursorStyle.Render("> ")
		}

		label := fmt.Sprintf("Connect %s", row.Name)
		if row.Ready {
			label = readyStyle.Render(label)
		} else {
			label = mutedStyle.Render(label + " (not configured)")
		}

		sb.WriteString(pointer + label)
		if row.Recommended {
			sb.WriteString(" " + tagStyle.Render("recommended"))
		}
		if i < len(c.rows)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
