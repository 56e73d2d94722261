package tui

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"tabedit/internal/editor"
)

var (
	mdRendererMu sync.Mutex
	// Keyed by style and wrap width. A fixed standard style avoids the terminal
	// background query WithAutoStyle performs.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

func markdownStyle() string {
	switch {
	case lipgloss.ColorProfile() == termenv.Ascii:
		return "notty"
	case lipgloss.HasDarkBackground():
		return "dark"
	}
	return "light"
}

func renderMarkdown(md, style string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	width = max(width, 10)
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	defer mdRendererMu.Unlock()
	r := mdRenderers[key]
	if r == nil {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRenderers[key] = r
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// jsonMarkdown wraps JSON text in a fenced block so glamour highlights it.
func jsonMarkdown(text string) string {
	return "```json\n" + strings.TrimSpace(text) + "\n```"
}

func (m *appModel) openPreview(p editor.PreviewJSON) {
	style := markdownStyle()
	if m.st.mono {
		style = "notty"
	}
	m.previewTitle = p.Title
	m.preview.SetContent(renderMarkdown(jsonMarkdown(p.Text), style, m.preview.Width))
	m.preview.GotoTop()
	m.overlay = overlayPreview
}
