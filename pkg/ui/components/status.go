package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// WalletStatus is the wallet line shown above the crystal ball.
type WalletStatus struct {
	Network   string
	Connected bool
	Address   string // already shortened
	Balance   string // empty when unknown
}

// StatusComponent renders the network and wallet status.
type StatusComponent struct {
	status WalletStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{}
}

// Update updates the wallet status.
func (s *StatusComponent) Update(status WalletStatus) {
	s.status = status
}

// View renders the status component.
func (s *StatusComponent) View() string {
	connectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	disconnectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var parts []string
	if s.status.Connected {
		parts = append(parts, connectedStyle.Render("● Connected: "+s.status.Address))
		if s.status.Balance != "" {
			parts = append(parts, fmt.Sprintf("Balance: %s ETH", s.status.Balance))
		}
	} else {
		parts = append(parts, disconnectedStyle.Render("○ Not connected"))
	}
	if s.status.Network != "" {
		parts = append(parts, mutedStyle.Render("Network: "+s.status.Network))
	}

	return strings.Join(parts, "  │  ")
}
