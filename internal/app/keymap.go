package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all application keybindings.
type KeyMap struct {
	// Navigation
	FocusNext     key.Binding
	FocusPrev     key.Binding
	FocusExplorer key.Binding
	FocusEditor   key.Binding
	FocusResults  key.Binding

	// Buffers
	NewBuffer   key.Binding
	CloseBuffer key.Binding
	NextBuffer  key.Binding
	PrevBuffer  key.Binding

	// Editor
	ExecuteQuery key.Binding
	CancelQuery  key.Binding

	// App
	Quit           key.Binding
	Help           key.Binding
	ToggleExplorer key.Binding
	History        key.Binding
	Export         key.Binding

	// Pane resizing
	ResizeLeft  key.Binding
	ResizeRight key.Binding
	ResizeUp    key.Binding
	ResizeDown  key.Binding
}

// DefaultKeyMap returns the application keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		FocusNext: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		FocusPrev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev pane"),
		),
		FocusExplorer: key.NewBinding(
			key.WithKeys("alt+1"),
			key.WithHelp("alt+1", "explorer"),
		),
		FocusEditor: key.NewBinding(
			key.WithKeys("alt+2"),
			key.WithHelp("alt+2", "editor"),
		),
		FocusResults: key.NewBinding(
			key.WithKeys("alt+3"),
			key.WithHelp("alt+3", "results"),
		),
		NewBuffer: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "new buffer"),
		),
		CloseBuffer: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("ctrl+w", "close buffer"),
		),
		NextBuffer: key.NewBinding(
			key.WithKeys("ctrl+pgdown", "ctrl+]"),
			key.WithHelp("ctrl+pgdn", "next buffer"),
		),
		PrevBuffer: key.NewBinding(
			key.WithKeys("ctrl+pgup", "ctrl+["),
			key.WithHelp("ctrl+pgup", "prev buffer"),
		),
		ExecuteQuery: key.NewBinding(
			key.WithKeys("ctrl+enter", "f5", "ctrl+g"),
			key.WithHelp("ctrl+enter", "run query"),
		),
		CancelQuery: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "cancel query"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("f1", "help"),
		),
		ToggleExplorer: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("ctrl+b", "toggle explorer"),
		),
		History: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("ctrl+h", "history"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "export"),
		),
		ResizeLeft: key.NewBinding(
			key.WithKeys("ctrl+left"),
			key.WithHelp("ctrl+←", "shrink explorer"),
		),
		ResizeRight: key.NewBinding(
			key.WithKeys("ctrl+right"),
			key.WithHelp("ctrl+→", "grow explorer"),
		),
		ResizeUp: key.NewBinding(
			key.WithKeys("ctrl+up"),
			key.WithHelp("ctrl+↑", "shrink editor"),
		),
		ResizeDown: key.NewBinding(
			key.WithKeys("ctrl+down"),
			key.WithHelp("ctrl+↓", "grow editor"),
		),
	}
}

// ShortHelp returns a subset of keybindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.ExecuteQuery, k.FocusNext, k.NewBuffer, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ExecuteQuery, k.CancelQuery, k.Export},
		{k.FocusNext, k.FocusPrev, k.FocusExplorer, k.FocusEditor, k.FocusResults},
		{k.NewBuffer, k.CloseBuffer, k.NextBuffer, k.PrevBuffer},
		{k.ToggleExplorer, k.History},
		{k.ResizeLeft, k.ResizeRight, k.ResizeUp, k.ResizeDown},
		{k.Quit, k.Help},
	}
}
