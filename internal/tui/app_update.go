package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tabedit/internal/bridge"
	"tabedit/internal/editor"
	"tabedit/internal/store"
)

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
			m.sess.Flash = ""
		}
		return m, nil

	case leaderTickMsg:
		if m.sess.ExpireLeader() {
			return m, m.showFlash(m.sess.Flash, true)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case execDoneMsg:
		return m, m.finishExec(msg)

	case externalEditorDoneMsg:
		return m, m.applyExternalEditorResult(msg)

	case clipboardDoneMsg:
		if msg.err != nil {
			return m, m.showFlash("copy failed: "+msg.err.Error(), true)
		}
		return m, m.showFlash("yanked "+msg.what, false)

	case pasteDoneMsg:
		if msg.err != nil {
			return m, m.showFlash("paste failed: "+msg.err.Error(), true)
		}
		editor.ApplyPaste(m.sess, m.doc, msg.target, msg.text)
		return m, m.showFlash(m.sess.Flash, m.sess.FlashErr)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *appModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if m.running {
		if key == "esc" || key == "ctrl+c" {
			if m.cancel != nil {
				m.cancel()
			}
			return m.showFlash("cancelling…", false)
		}
		return nil
	}

	switch m.overlay {
	case overlayPrompt:
		return m.handlePromptKey(msg)
	case overlayConsole:
		return m.handleConsoleKey(msg)
	case overlayPreview:
		switch key {
		case "esc", "q", "enter":
			m.overlay = overlayNone
			return nil
		}
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return cmd
	}

	if msg.Paste {
		if editor.HandlePaste(m.sess, string(msg.Runes)) {
			return nil
		}
	}
	if key == "ctrl+c" {
		return m.apply(editor.ApplyPrompt(m.sess, m.doc, editor.PromptEx, "q"))
	}
	return m.apply(editor.HandleKey(m.sess, m.doc, key))
}

func (m *appModel) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		text := m.prompt.Value()
		m.closePrompt()
		return m.apply(editor.ApplyPrompt(m.sess, m.doc, m.promptKind, text))
	case "esc", "ctrl+c":
		m.closePrompt()
		editor.CancelPrompt(m.sess)
		return nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return cmd
}

func (m *appModel) closePrompt() {
	m.prompt.Blur()
	m.prompt.SetValue("")
	m.overlay = overlayNone
}

func (m *appModel) handleConsoleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.console.Blur()
		m.overlay = overlayNone
		return nil
	case "ctrl+s", "ctrl+x":
		code := m.console.Value()
		if strings.TrimSpace(code) == "" {
			return m.showFlash("nothing to run", false)
		}
		return m.startExec(code)
	case "ctrl+l":
		m.lines = nil
		m.output.SetContent("")
		return nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return cmd
	}
	var cmd tea.Cmd
	m.console, cmd = m.console.Update(msg)
	return cmd
}

// apply carries out the effects an editor handler asked for.
func (m *appModel) apply(out editor.Outcome) tea.Cmd {
	var cmds []tea.Cmd
	if m.sess.Flash != "" {
		cmds = append(cmds, m.showFlash(m.sess.Flash, m.sess.FlashErr))
	}
	if pending, _ := m.sess.LeaderPending(); pending {
		cmds = append(cmds, tea.Tick(m.sess.LeaderTimeout()+10*time.Millisecond, func(time.Time) tea.Msg {
			return leaderTickMsg{}
		}))
	}

	for _, e := range out.Effects {
		switch e := e.(type) {
		case editor.Prompt:
			m.openPrompt(e)
		case editor.OpenConsole:
			m.overlay = overlayConsole
			m.layout()
			cmds = append(cmds, m.console.Focus())
		case editor.ExternalEdit:
			cmd, err := m.openExternalEditor(e)
			if err != nil {
				cmds = append(cmds, m.showFlash("editor failed: "+err.Error(), true))
				continue
			}
			cmds = append(cmds, cmd)
		case editor.Copy:
			cmds = append(cmds, m.copyCmd(e))
		case editor.Paste:
			cmds = append(cmds, m.pasteCmd(e))
		case editor.PreviewJSON:
			m.openPreview(e)
		case editor.Save:
			if err := m.save(e.Path); err != nil {
				cmds = append(cmds, m.showFlash("save failed: "+err.Error(), true))
				continue
			}
			if e.Quit {
				return tea.Quit
			}
			cmds = append(cmds, m.showFlash("saved "+m.path, false))
		case editor.Quit:
			return tea.Quit
		}
	}
	return tea.Batch(cmds...)
}

func (m *appModel) openPrompt(p editor.Prompt) {
	m.promptKind = p.Kind
	m.prompt.Prompt = p.Kind.Label() + " "
	if p.Kind == editor.PromptEx {
		m.prompt.Prompt = ":"
	}
	m.prompt.SetValue(p.Initial)
	m.prompt.CursorEnd()
	m.prompt.Focus()
	m.overlay = overlayPrompt
}

func (m *appModel) save(path string) error {
	if path != "" {
		m.path = path
	}
	if m.path == "" {
		return errors.New("no file name")
	}
	return store.Save(m.path, m.doc)
}

func (m *appModel) showFlash(text string, isErr bool) tea.Cmd {
	if text == "" {
		return nil
	}
	m.flashSeq++
	seq := m.flashSeq
	m.flash = text
	m.flashErr = isErr
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

func (m *appModel) startExec(code string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.runSeq++
	seq := m.runSeq
	table := m.doc.Table().Clone()
	r := m.router
	m.appendOutput(m.st.status.Render(">>> " + firstLine(code)))

	run := func() tea.Msg {
		defer cancel()
		start := time.Now()
		res, route := r.Execute(ctx, code, table)
		return execDoneMsg{seq: seq, res: res, route: route, elapsed: time.Since(start)}
	}
	return tea.Batch(run, m.spinner.Tick)
}

func (m *appModel) finishExec(msg execDoneMsg) tea.Cmd {
	if msg.seq != m.runSeq {
		return nil
	}
	m.running = false
	m.cancel = nil
	res := msg.res

	for _, l := range res.Stdout {
		m.appendOutput(l)
	}
	for _, l := range res.Stderr {
		m.appendOutput(m.st.stderr.Render(l))
	}
	if res.Display != "" {
		m.appendOutput(m.st.display.Render(res.Display))
	}
	slog.Info("console run", "route", msg.route.Route.String(), "committed", res.Committed, "reason", res.Reason, "elapsed", msg.elapsed)

	var be *bridge.BridgeError
	switch {
	case errors.As(res.Err, &be):
		return m.showFlash(be.Error(), true)
	case res.Err != nil:
		return m.showFlash(fmt.Sprintf("%s error (%s)", msg.route.Route, res.Reason), true)
	case res.Committed && res.Table != nil:
		if err := editor.ApplyCommit(m.sess, m.doc, res.Table); err != nil {
			return m.showFlash(err.Error(), true)
		}
		return m.showFlash(fmt.Sprintf("committed (%s, %s)", res.Reason, msg.route.Route), false)
	}
	return m.showFlash(fmt.Sprintf("not committed (%s, %s)", res.Reason, msg.route.Route), false)
}

func (m *appModel) appendOutput(line string) {
	m.lines = append(m.lines, strings.Split(line, "\n")...)
	if over := len(m.lines) - maxOutputLines; over > 0 {
		m.lines = m.lines[over:]
	}
	m.output.SetContent(strings.Join(m.lines, "\n"))
	m.output.GotoBottom()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
