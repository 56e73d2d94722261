package tui

import (
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"tabedit/internal/editor"
)

// externalEditorName picks the editor: config, then VISUAL, then EDITOR, then vi.
func externalEditorName(configured string) string {
	for _, v := range []string{configured, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return "vi"
}

func (m *appModel) openExternalEditor(target editor.ExternalEdit) (tea.Cmd, error) {
	args := splitShellWords(externalEditorName(m.cfg.Editor))
	if len(args) == 0 {
		args = []string{"vi"}
	}

	f, err := os.CreateTemp("", "tabedit-cell-*.txt")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	if _, err := f.WriteString(target.Text); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	_ = f.Close()

	m.externalEditorPath = path
	m.externalEditorTarget = target

	cmd := exec.Command(args[0], append(args[1:], path)...)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return externalEditorDoneMsg{err: err}
	}), nil
}

func (m *appModel) applyExternalEditorResult(msg externalEditorDoneMsg) tea.Cmd {
	path := m.externalEditorPath
	target := m.externalEditorTarget
	m.externalEditorPath = ""
	m.externalEditorTarget = editor.ExternalEdit{}
	if path == "" {
		return nil
	}
	defer func() { _ = os.Remove(path) }()

	if msg.err != nil {
		return m.showFlash("editor failed: "+msg.err.Error(), true)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return m.showFlash("editor read failed: "+err.Error(), true)
	}
	editor.ApplyExternalEdit(m.sess, m.doc, target, string(b))
	if m.sess.Flash == "" {
		return m.showFlash("updated from "+externalEditorName(m.cfg.Editor), false)
	}
	return m.showFlash(m.sess.Flash, m.sess.FlashErr)
}
