package teleop

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the teleoperation key bindings.
type KeyMap struct {
	Forward     key.Binding
	Backward    key.Binding
	Left        key.Binding
	Right       key.Binding
	RotateLeft  key.Binding
	RotateRight key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns WASD for translation, Q/E for rotation and
// ESC, C or ctrl+c to quit.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Forward: key.NewBinding(
			key.WithKeys("w", "W"),
			key.WithHelp("w", "forward"),
		),
		Backward: key.NewBinding(
			key.WithKeys("s", "S"),
			key.WithHelp("s", "backward"),
		),
		Left: key.NewBinding(
			key.WithKeys("a", "A"),
			key.WithHelp("a", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("d", "D"),
			key.WithHelp("d", "right"),
		),
		RotateLeft: key.NewBinding(
			key.WithKeys("q", "Q"),
			key.WithHelp("q", "rotate left"),
		),
		RotateRight: key.NewBinding(
			key.WithKeys("e", "E"),
			key.WithHelp("e", "rotate right"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "c", "C", "ctrl+c"),
			key.WithHelp("esc/c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Forward, k.Backward, k.Left, k.Right, k.RotateLeft, k.RotateRight, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Forward, k.Backward, k.Left, k.Right},
		{k.RotateLeft, k.RotateRight},
		{k.Quit},
	}
}
