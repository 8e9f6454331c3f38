package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/ColonelBlimp/cwtutor/internal/profile"
)

type keyMap struct {
	Quit     key.Binding
	NewRound key.Binding
	Abort    key.Binding
	Finish   key.Binding
	Mode     key.Binding
	Open     key.Binding
	Groups   key.Binding
	Stats    key.Binding
	Dit      key.Binding
	Dah      key.Binding
}

// newKeyMap builds the bindings. Paddle keys come from the profile and are
// swapped when swap is set.
func newKeyMap(kb profile.KeyBindings, swap bool) keyMap {
	dit, dah := terminalKey(kb.PaddleDit), terminalKey(kb.PaddleDah)
	if swap {
		dit, dah = dah, dit
	}
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		NewRound: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "new round")),
		Abort:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "abort")),
		Finish:   key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "finish")),
		Mode:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "typing/paddle")),
		Open:     key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open passage")),
		Groups:   key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "groups")),
		Stats:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "stats")),
		Dit:      key.NewBinding(key.WithKeys(dit), key.WithHelp(dit, "dit")),
		Dah:      key.NewBinding(key.WithKeys(dah), key.WithHelp(dah, "dah")),
	}
}

// terminalKey maps a settings key name to the string Bubble Tea reports.
func terminalKey(name string) string {
	if name == "space" {
		return " "
	}
	return name
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewRound, k.Abort, k.Mode, k.Stats, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NewRound, k.Finish, k.Abort},
		{k.Mode, k.Dit, k.Dah},
		{k.Open, k.Groups, k.Stats, k.Quit},
	}
}
