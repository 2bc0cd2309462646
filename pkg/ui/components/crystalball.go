package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CrystalBall is what the ball currently shows.
type CrystalBall struct {
	Animating bool
	Spinner   string // current spinner frame
	Answer    string
}

// Placeholder is shown in an idle ball.
const Placeholder = "Ask your question..."

// CrystalBallComponent renders the ball.
type CrystalBallComponent struct {
	ball  CrystalBall
	width int
}

// NewCrystalBallComponent creates a new crystal ball component.
func NewCrystalBallComponent(width int) *CrystalBallComponent {
	return &CrystalBallComponent{width: width}
}

// Update updates the ball contents.
func (c *CrystalBallComponent) Update(ball CrystalBall) {
	c.ball = ball
}

// Text returns the line shown inside the ball.
func (c *CrystalBallComponent) Text() string {
	switch {
	case c.ball.Animating:
		return strings.TrimSpace(c.ball.Spinner + " The mists are swirling...")
	case c.ball.Answer != "":
		return c.ball.Answer
	default:
		return Placeholder
	}
}

// View renders the crystal ball component.
func (c *CrystalBallComponent) View() string {
	ballStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Width(c.width).
		Height(3).
		Align(lipgloss.Center, lipgloss.Center)

	textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	switch {
	case c.ball.Animating:
		textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))
	case c.ball.Answer != "":
		textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	}

	base := lipgloss.NewStyle().Foreground(lipgloss.Color("#374151")).
		Width(c.width + 2).
		Align(lipgloss.Center)

	return lipgloss.JoinVertical(lipgloss.Center,
		ballStyle.Render(textStyle.Render(c.Text())),
		base.Render("/‾‾‾‾‾‾‾‾‾‾\\"),
	)
}
