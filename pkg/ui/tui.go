package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/crystal-ball/business/oracle/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
	"github.com/fd1az/crystal-ball/internal/asset"
	"github.com/fd1az/crystal-ball/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Connector list or oracle, by wallet state
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// Button labels.
const (
	ButtonIdle = "Consult the Oracle"
	ButtonBusy = "Channeling Magic..."
)

var startupOrder = []string{"config", "rpc", "wallet", "oracle"}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	connectors *components.ConnectorsComponent
	status     *components.StatusComponent
	ball       *components.CrystalBallComponent
	input      textinput.Model
	spinner    spinner.Model
	help       help.Model
	keys       KeyMap

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// Startup state
	startupSteps map[string]*StartupStep
	startupTime  time.Time
	startupErr   error

	// Session state
	ctrl       Controller
	network    string
	snap       domain.Snapshot
	connecting bool
	errorMsg   string

	width    int
	height   int
	quitting bool
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()

	input := textinput.New()
	input.Placeholder = "Will it rain tomorrow?"
	input.Prompt = "> "
	input.CharLimit = 280
	input.Width = 48

	sp := spinner.New()
	sp.Spinner = spinner.Moon

	return Model{
		connectors:   components.NewConnectorsComponent(),
		status:       components.NewStatusComponent(),
		ball:         components.NewCrystalBallComponent(44),
		input:        input,
		spinner:      sp,
		help:         help.New(),
		keys:         DefaultKeyMap(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		startupSteps: map[string]*StartupStep{
			"config": {Name: "Loading configuration", Status: "done"},
			"rpc":    {Name: "Connecting to RPC", Status: "pending"},
			"wallet": {Name: "Connecting wallet", Status: "pending"},
			"oracle": {Name: "Reading prophecy counter", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			return m.enterStartup(), tickCmd()
		}
		if m.phase != PhaseDashboard || m.ctrl == nil {
			return m, nil
		}
		if m.snap.Connected() {
			return m.updateOracle(msg)
		}
		return m.updateConnect(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m = m.enterStartup()
		}
		if m.phase == PhaseDashboard {
			return m, nil
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.syncBall()
		return m, cmd

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}

	case StartupFailedMsg:
		m.startupErr = msg.Err

	case ReadyMsg:
		m.ctrl = msg.Controller
		m.network = m.ctrl.Network()
		m.phase = PhaseDashboard
		m.refreshConnectors()
		m.applySnapshot(m.ctrl.Snapshot())
		return m, m.input.Focus()

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)

	case connectResultMsg:
		m.connecting = false
		if msg.err != nil {
			m.errorMsg = apperror.UserMessage(msg.err)
		} else {
			m.errorMsg = ""
		}
		if m.ctrl != nil {
			m.applySnapshot(m.ctrl.Snapshot())
		}

	case actionErrorMsg:
		m.errorMsg = apperror.UserMessage(msg.err)
	}

	return m, nil
}

func (m Model) enterStartup() Model {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Trigger callback directly (don't use Send() from within Update)
	if OnStartModules != nil {
		go OnStartModules()
	}
	return m
}

// updateConnect handles keys on the connector list.
func (m Model) updateConnect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.connectors.Up()
	case key.Matches(msg, m.keys.Down):
		m.connectors.Down()
	case key.Matches(msg, m.keys.Connect):
		row, ok := m.connectors.Selected()
		if !ok || m.connecting {
			return m, nil
		}
		m.connecting = true
		m.errorMsg = ""
		return m, connectCmd(m.ctrl, row.ID)
	}
	return m, nil
}

// updateOracle handles keys on the oracle screen. Anything not bound goes to
// the question input.
func (m Model) updateOracle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Ask):
		m.errorMsg = ""
		if err := m.ctrl.Ask(context.Background()); err != nil && !quietReject(err) {
			m.errorMsg = apperror.UserMessage(err)
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, refreshCmd(m.ctrl)
	case key.Matches(msg, m.keys.Disconnect):
		m.ctrl.Disconnect(context.Background())
		m.applySnapshot(m.ctrl.Snapshot())
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.ctrl.SetQuestion(v)
	}
	return m, cmd
}

// quietReject reports guard rejections the screen already makes obvious.
func quietReject(err error) bool {
	switch apperror.GetCode(err) {
	case apperror.CodeEmptyQuestion, apperror.CodeSessionBusy:
		return true
	}
	return false
}

func connectCmd(ctrl Controller, id string) tea.Cmd {
	return func() tea.Msg {
		return connectResultMsg{err: ctrl.Connect(context.Background(), id)}
	}
}

func refreshCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		if err := ctrl.Refresh(context.Background()); err != nil {
			return actionErrorMsg{err: err}
		}
		return nil
	}
}

func (m *Model) refreshConnectors() {
	infos := m.ctrl.Connectors()
	rows := make([]components.ConnectorRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, components.ConnectorRow{
			ID:          info.ID,
			Name:        info.Name,
			Recommended: info.Recommended,
			Ready:       info.Ready,
		})
	}
	m.connectors.SetRows(rows)
}

func (m *Model) applySnapshot(snap domain.Snapshot) {
	m.snap = snap

	ws := components.WalletStatus{Network: m.network, Connected: snap.Connected()}
	if snap.Account != nil {
		ws.Address = snap.Account.ShortAddress()
		if snap.Account.Balance != nil {
			ws.Balance = asset.NewAmount(asset.Ether, snap.Account.Balance).StringFixed(4)
		}
	}
	m.status.Update(ws)
	m.syncBall()
}

func (m *Model) syncBall() {
	ball := components.CrystalBall{Spinner: m.spinner.View()}
	switch m.snap.Phase() {
	case domain.PhaseAnimating:
		ball.Animating = true
	case domain.PhaseAnswered:
		ball.Answer = m.snap.Answer
	}
	m.ball.Update(ball)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  The mists close. Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" 🔮 Crystal Ball Prophecies "))
	b.WriteString("\n\n")
	b.WriteString(m.status.View())
	b.WriteString("\n\n")

	if m.snap.Connected() {
		b.WriteString(m.renderOracle())
	} else {
		b.WriteString(m.renderConnect())
	}

	if line := m.errorLine(); line != "" {
		b.WriteString("\n\n")
		b.WriteString(ErrorStyle.Render("  ✗ " + line))
	}

	b.WriteString("\n\n")
	if m.snap.Connected() {
		b.WriteString(HelpStyle.Render(m.help.View(oracleKeys{m.keys})))
	} else {
		b.WriteString(HelpStyle.Render(m.help.View(connectKeys{m.keys})))
	}

	return b.String()
}

// errorLine prefers the session error over local ones.
func (m Model) errorLine() string {
	if m.snap.LastError != "" {
		return m.snap.LastError
	}
	return m.errorMsg
}

func (m Model) renderConnect() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("Connect a wallet to consult the oracle"))
	sb.WriteString("\n\n")
	sb.WriteString(m.connectors.View())
	if m.connecting {
		sb.WriteString("\n\n")
		sb.WriteString(MutedValue.Render("  " + m.spinner.View() + " Connecting..."))
	}
	return BoxStyle.Render(sb.String())
}

func (m Model) renderOracle() string {
	var sb strings.Builder

	sb.WriteString(m.ball.View())
	sb.WriteString("\n\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	switch {
	case m.snap.Busy():
		sb.WriteString(ButtonBusyStyle.Render(ButtonBusy))
	case m.snap.CanAsk():
		sb.WriteString(ButtonStyle.Render(ButtonIdle))
	default:
		sb.WriteString(ButtonDisabledStyle.Render(ButtonIdle))
	}
	sb.WriteString("\n\n")

	sb.WriteString("Prophecies revealed: " + CountStyle.Render(m.snap.Count.String()))

	if p := m.snap.Pending; p != nil && p.Submitted() {
		sb.WriteString("\n")
		sb.WriteString(MutedValue.Render("Pending tx: " + p.Hash.Hex()))
	}

	return BoxStyle.Render(sb.String())
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))

	goldStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#F59E0B"))

	mutedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	greenStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder

	sb.WriteString("\n\n\n")

	ball := `
                     .-""""""-.
                   .'  *    .  '.
                  /   .   *   .  \
                 :  *    .   *    :
                 :   .  *   .   * :
                  \  *   .    .  /
                   '.   .  *   .'
                     '-......-'
                    /__________\
`
	sb.WriteString(titleStyle.Render(ball))
	sb.WriteString("\n")

	subtitle := "       C R Y S T A L   B A L L   P R O P H E C I E S"
	sb.WriteString(titleStyle.Render(subtitle))
	sb.WriteString("\n\n\n")

	tagline := "              Ask, and the chain shall remember"
	sb.WriteString(goldStyle.Render(tagline))
	sb.WriteString("\n\n\n")

	loading := fmt.Sprintf("                    Gazing%s", dots)
	sb.WriteString(greenStyle.Render(loading))
	sb.WriteString("\n\n")

	hint := "             Press any key to skip, or wait..."
	sb.WriteString(mutedStyle.Render(hint))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF"))

	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	connectingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  🔮 Crystal Ball Prophecies"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range startupOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon = "✓"
			statusText = "Ready"
			style = successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon = spinners[idx]
			statusText = "Connecting..."
			style = connectingStyle
		case "failed":
			icon = "✗"
			statusText = "Failed"
			style = failedStyle
		default:
			icon = "○"
			statusText = "Pending"
			style = mutedStyle
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			mutedStyle.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	if m.startupErr != nil {
		sb.WriteString(failedStyle.Render("  " + apperror.UserMessage(m.startupErr)))
		sb.WriteString("\n\n")
		sb.WriteString(mutedStyle.Render("  Press esc to quit"))
		sb.WriteString("\n")
		return sb.String()
	}

	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n")

	return sb.String()
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
