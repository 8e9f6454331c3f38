package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette is a named colour scheme.
type Palette struct {
	Name      string
	Bg        string
	Fg        string
	Primary   string
	Danger    string
	Success   string
	Secondary string
}

// Palettes lists the built-in colour schemes.
var Palettes = []Palette{
	{"Deuteranopia (Red-Green)", "#000000", "#ffffff", "#ffd700", "#ff0000", "#008000", "#808080"},
	{"Tritanopia (Blue-Yellow)", "#ffffff", "#000000", "#ff0000", "#800080", "#008000", "#808080"},
	{"Achromatopsia (Monochromatic)", "#000000", "#ffffff", "#ffffff", "#808080", "#4b5563", "#6b7280"},
	{"VGA Teal", "#008080", "#c0c0c0", "#0000ff", "#ff0000", "#00ff00", "#808080"},
	{"Amber on Black", "#000000", "#ffb000", "#ffb000", "#ffb000", "#ffb000", "#666600"},
	{"Windows 1.0", "#c0c0c0", "#000000", "#000080", "#ff0000", "#008000", "#808080"},
	{"Windows 3.1", "#ffffff", "#000000", "#008080", "#ff0000", "#008000", "#c0c0c0"},
	{"Windows 95", "#c0c0c0", "#000000", "#000080", "#ff0000", "#008000", "#808080"},
	{"Windows XP", "#3a6ea5", "#000000", "#3a6ea5", "#d0322b", "#50b848", "#8a94a2"},
	{"Windows 10", "#000000", "#ffffff", "#0078d7", "#ff0000", "#00ff00", "#808080"},
	{"Mac OS 7", "#000000", "#d0d0d0", "#333333", "#ff0000", "#00ff00", "#606060"},
	{"Mac OS X", "#ffffff", "#000000", "#007aff", "#ff3b30", "#34c759", "#8e8e93"},
	{"Linux Terminal", "#000000", "#f8f8f8", "#1abc9c", "#e74c3c", "#2ecc71", "#95a5a6"},
	{"ZX Spectrum", "#000000", "#00ff00", "#0000ff", "#ff0000", "#00ff00", "#ff00ff"},
	{"Commodore 64", "#211c52", "#a399cc", "#a399cc", "#7c281e", "#56c63b", "#584e8b"},
	{"Atari 800", "#000000", "#ffffff", "#3b477b", "#ff0000", "#00ff00", "#888888"},
	{"Apple IIe", "#000000", "#22b2da", "#22b2da", "#ff0000", "#00ff00", "#aaaaaa"},
	{"IBM PC DOS", "#000000", "#ffffff", "#0000ff", "#ff0000", "#00ff00", "#808080"},
}

// LookupPalette finds a palette by name. Unknown names fall back to the
// first palette and report false.
func LookupPalette(name string) (Palette, bool) {
	for _, p := range Palettes {
		if p.Name == name {
			return p, true
		}
	}
	return Palettes[0], false
}

// PaletteNames returns the palette names in display order.
func PaletteNames() []string {
	names := make([]string, len(Palettes))
	for i, p := range Palettes {
		names[i] = p.Name
	}
	return names
}

// Reversed swaps background and foreground.
func (p Palette) Reversed() Palette {
	p.Bg, p.Fg = p.Fg, p.Bg
	return p
}

type styles struct {
	base      lipgloss.Style
	title     lipgloss.Style
	current   lipgloss.Style
	pending   lipgloss.Style
	correct   lipgloss.Style
	incorrect lipgloss.Style
	muted     lipgloss.Style
	err       lipgloss.Style
	panel     lipgloss.Style
}

func newStyles(p Palette) styles {
	bg := lipgloss.Color(p.Bg)
	base := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Fg)).Background(bg)
	return styles{
		base:      base,
		title:     base.Foreground(lipgloss.Color(p.Primary)).Bold(true),
		current:   base.Foreground(lipgloss.Color(p.Primary)).Underline(true),
		pending:   base.Foreground(lipgloss.Color(p.Secondary)),
		correct:   base.Foreground(lipgloss.Color(p.Success)),
		incorrect: base.Foreground(lipgloss.Color(p.Danger)),
		muted:     base.Foreground(lipgloss.Color(p.Secondary)),
		err:       base.Foreground(lipgloss.Color(p.Danger)).Bold(true),
		panel: base.
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color(p.Primary)).
			BorderBackground(bg).
			Padding(0, 1),
	}
}
