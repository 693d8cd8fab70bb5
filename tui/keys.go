package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Resume  key.Binding
	Play    key.Binding
	Back    key.Binding
	Forward key.Binding
	Slower  key.Binding
	Faster  key.Binding
	Deleted key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Resume: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "resume"),
	),
	Play: key.NewBinding(
		key.WithKeys(" ", "p"),
		key.WithHelp("space", "play/pause"),
	),
	Back: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "-10s"),
	),
	Forward: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "+10s"),
	),
	Slower: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "slower"),
	),
	Faster: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "faster"),
	),
	Deleted: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "deleted"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Play, k.Back, k.Forward, k.Slower, k.Faster, k.Resume, k.Deleted, k.Quit}
}
