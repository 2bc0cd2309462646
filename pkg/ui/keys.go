package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Connect    key.Binding
	Ask        key.Binding
	Refresh    key.Binding
	Disconnect key.Binding
	Quit       key.Binding
	Help       key.Binding
}

// DefaultKeyMap returns the default keybindings. The question input owns
// printable keys, so oracle actions use control chords.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Connect: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect"),
		),
		Ask: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "consult the oracle"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "refresh count"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "disconnect"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "help"),
		),
	}
}

// connectKeys is the help shown on the connector screen.
type connectKeys struct{ KeyMap }

// ShortHelp returns keybindings to be shown in the mini help view.
func (k connectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Connect, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k connectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Connect, k.Quit}}
}

// oracleKeys is the help shown on the oracle screen.
type oracleKeys struct{ KeyMap }

// ShortHelp returns keybindings to be shown in the mini help view.
func (k oracleKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Refresh, k.Quit, k.Help}
}

// FullHelp returns keybindings for the expanded help view.
func (k oracleKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Ask, k.Refresh},
		{k.Disconnect, k.Quit, k.Help},
	}
}
