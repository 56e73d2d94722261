package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tabedit/internal/editor"
)

// layout sizes the bubbles components for the current window.
func (m *appModel) layout() {
	m.prompt.Width = max(m.width-20, 10)
	m.console.SetWidth(max(m.width, 20))
	outH := max(m.height/3-consoleHeight, outputMinHeight)
	m.output.Width = max(m.width, 20)
	m.output.Height = outH
	m.preview.Width = max(m.width, 20)
	m.preview.Height = max(m.height-2, 3)
}

// consoleLines is how many screen lines the console pane takes.
func (m *appModel) consoleLines() int {
	return consoleHeight + m.output.Height + 1
}

func (m *appModel) View() string {
	if m.overlay == overlayPreview {
		title := m.st.header.Render(m.previewTitle) + "  " + m.st.hint.Render("esc to close")
		return title + "\n" + m.preview.View()
	}

	top := m.renderTabs()
	status := m.renderStatus()
	bottom := m.renderBottomLine()

	gridH := m.height - 3
	var pane string
	if m.overlay == overlayConsole {
		gridH -= m.consoleLines()
		pane = m.renderConsole()
	}
	grid := renderGrid(m.doc, m.sess, m.st, m.width, max(gridH, 2))
	gridLines := strings.Count(grid, "\n") + 1
	if pad := gridH - gridLines; pad > 0 {
		grid += strings.Repeat("\n", pad)
	}

	parts := []string{top, grid}
	if pane != "" {
		parts = append(parts, pane)
	}
	parts = append(parts, status, bottom)
	return strings.Join(parts, "\n")
}

func (m *appModel) renderTabs() string {
	name := "[no file]"
	if m.path != "" {
		name = filepath.Base(m.path)
	}
	if m.doc.Dirty() {
		name += " [+]"
	}
	out := []string{m.st.header.Render(name) + " "}
	for i, s := range m.doc.SheetNames() {
		if i == m.doc.ActiveIndex() {
			out = append(out, m.st.activeTab.Render(s))
		} else {
			out = append(out, m.st.tab.Render(s))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m *appModel) renderStatus() string {
	mode := m.sess.Mode.String()
	if m.running {
		mode = "RUNNING"
	}
	parts := []string{m.st.mode.Render(mode)}
	if m.sess.Count > 0 {
		parts = append(parts, m.st.status.Render(fmt.Sprintf("%d", m.sess.Count)))
	}
	if pending, path := m.sess.LeaderPending(); pending {
		label := "leader"
		if path != "" {
			label += " " + path
		}
		parts = append(parts, m.st.header.Render(label+":"), m.st.hint.Render(strings.Join(m.sess.LeaderHints(), "  ")))
	} else {
		t := m.doc.Table()
		cur := m.doc.Cursor()
		col := t.Columns[cur.Col]
		pos := fmt.Sprintf("R%d/%d C%d/%d  %s:%s", cur.Row+1, t.NumRows(), cur.Col+1, t.NumCols(), col.Name, col.Type)
		if m.sess.Mode == editor.ModeVisual {
			r := m.sess.Selection(m.doc)
			pos += fmt.Sprintf("  sel %dx%d", r.Rows(), r.Cols())
		}
		parts = append(parts, m.st.status.Render(pos))
	}
	return strings.Join(parts, " ")
}

func (m *appModel) renderBottomLine() string {
	switch {
	case m.overlay == overlayPrompt:
		return m.prompt.View()
	case m.running:
		return m.spinner.View() + m.st.status.Render(" running… esc to cancel")
	case m.flash != "":
		if m.flashErr {
			return m.st.flashErr.Render(m.flash)
		}
		return m.st.flash.Render(m.flash)
	}
	return ""
}

func (m *appModel) renderConsole() string {
	help := m.st.hint.Render("ctrl+s run · ctrl+l clear output · pgup/pgdown scroll · esc close")
	return lipgloss.JoinVertical(lipgloss.Left, m.output.View(), help, m.console.View())
}
