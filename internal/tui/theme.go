package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// palette is the set of colors one appearance profile uses.
type palette struct {
	muted     lipgloss.TerminalColor
	header    lipgloss.TerminalColor
	cursorBg  lipgloss.TerminalColor
	cursorFg  lipgloss.TerminalColor
	bandBg    lipgloss.TerminalColor
	selectBg  lipgloss.TerminalColor
	accent    lipgloss.TerminalColor
	accentFg  lipgloss.TerminalColor
	errorFg   lipgloss.TerminalColor
	stderrFg  lipgloss.TerminalColor
	surfaceBg lipgloss.TerminalColor
}

var palettes = map[string]palette{
	"default": {
		muted:     ac("240", "243"),
		header:    ac("236", "252"),
		cursorBg:  ac("27", "62"),
		cursorFg:  ac("255", "255"),
		bandBg:    ac("#e9e9e9", "#262626"),
		selectBg:  ac("153", "24"),
		accent:    ac("27", "62"),
		accentFg:  ac("255", "235"),
		errorFg:   ac("160", "203"),
		stderrFg:  ac("166", "215"),
		surfaceBg: ac("255", "235"),
	},
	"neon": {
		muted:     ac("244", "245"),
		header:    ac("90", "213"),
		cursorBg:  ac("201", "201"),
		cursorFg:  ac("255", "16"),
		bandBg:    ac("225", "53"),
		selectBg:  ac("159", "23"),
		accent:    ac("201", "51"),
		accentFg:  ac("255", "16"),
		errorFg:   ac("196", "196"),
		stderrFg:  ac("202", "214"),
		surfaceBg: ac("255", "233"),
	},
	"mono": {
		muted:     lipgloss.NoColor{},
		header:    lipgloss.NoColor{},
		cursorBg:  lipgloss.NoColor{},
		cursorFg:  lipgloss.NoColor{},
		bandBg:    lipgloss.NoColor{},
		selectBg:  lipgloss.NoColor{},
		accent:    lipgloss.NoColor{},
		accentFg:  lipgloss.NoColor{},
		errorFg:   lipgloss.NoColor{},
		stderrFg:  lipgloss.NoColor{},
		surfaceBg: lipgloss.NoColor{},
	},
}

// styles are derived from a palette once per profile.
type styles struct {
	mono      bool
	header    lipgloss.Style
	gutter    lipgloss.Style
	cell      lipgloss.Style
	null      lipgloss.Style
	cursor    lipgloss.Style
	band      lipgloss.Style
	selection lipgloss.Style
	mode      lipgloss.Style
	status    lipgloss.Style
	flash     lipgloss.Style
	flashErr  lipgloss.Style
	stderr    lipgloss.Style
	display   lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	hint      lipgloss.Style
}

func newStyles(profile string) styles {
	p, ok := palettes[profile]
	if !ok {
		p = palettes["default"]
	}
	mono := profile == "mono"
	s := styles{
		mono:      mono,
		header:    lipgloss.NewStyle().Bold(true).Foreground(p.header),
		gutter:    lipgloss.NewStyle().Foreground(p.muted),
		cell:      lipgloss.NewStyle(),
		null:      lipgloss.NewStyle().Foreground(p.muted),
		cursor:    lipgloss.NewStyle().Background(p.cursorBg).Foreground(p.cursorFg).Bold(true),
		band:      lipgloss.NewStyle().Background(p.bandBg),
		selection: lipgloss.NewStyle().Background(p.selectBg),
		mode:      lipgloss.NewStyle().Background(p.accent).Foreground(p.accentFg).Bold(true).Padding(0, 1),
		status:    lipgloss.NewStyle().Foreground(p.muted),
		flash:     lipgloss.NewStyle().Foreground(p.header),
		flashErr:  lipgloss.NewStyle().Foreground(p.errorFg).Bold(true),
		stderr:    lipgloss.NewStyle().Foreground(p.stderrFg),
		display:   lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		tab:       lipgloss.NewStyle().Foreground(p.muted).Padding(0, 1),
		activeTab: lipgloss.NewStyle().Foreground(p.accentFg).Background(p.accent).Padding(0, 1),
		hint:      lipgloss.NewStyle().Foreground(p.muted).Italic(true),
	}
	if mono {
		s.cursor = lipgloss.NewStyle().Reverse(true).Bold(true)
		s.band = lipgloss.NewStyle().Underline(true)
		s.selection = lipgloss.NewStyle().Reverse(true)
		s.mode = lipgloss.NewStyle().Reverse(true).Padding(0, 1)
		s.activeTab = lipgloss.NewStyle().Reverse(true).Padding(0, 1)
	}
	return s
}

// applyColorProfilePreference picks the lipgloss color profile for the TUI. Only
// NO_COLOR disables color; otherwise termenv's guess is upgraded when TERM or
// COLORTERM advertise more.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	term := strings.ToLower(os.Getenv("TERM"))
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	switch {
	case profile == termenv.Ascii:
	case strings.Contains(colorterm, "truecolor"), strings.Contains(colorterm, "24bit"):
		profile = termenv.TrueColor
	case strings.Contains(term, "256color") && profile == termenv.ANSI:
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}

// profileName resolves the appearance profile: TABEDIT_TUI_PROFILE wins over config.
func profileName(configured string) string {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("TABEDIT_TUI_PROFILE"))); v != "" {
		return v
	}
	return configured
}
