package tui

import (
	"bytes"
	"errors"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"tabedit/internal/editor"
)

// clipboardCmd is one candidate program for a clipboard direction.
type clipboardCmd struct {
	name string
	args []string
}

func defaultCopyCmds() []clipboardCmd {
	switch runtime.GOOS {
	case "darwin":
		return []clipboardCmd{{"pbcopy", nil}}
	case "windows":
		return []clipboardCmd{
			{"cmd", []string{"/c", "clip"}},
			{"powershell", []string{"-NoProfile", "-Command", "Set-Clipboard"}},
		}
	default:
		return []clipboardCmd{
			{"wl-copy", nil},
			{"xclip", []string{"-selection", "clipboard"}},
			{"xsel", []string{"--clipboard", "--input"}},
		}
	}
}

func defaultPasteCmds() []clipboardCmd {
	switch runtime.GOOS {
	case "darwin":
		return []clipboardCmd{{"pbpaste", nil}}
	case "windows":
		return []clipboardCmd{{"powershell", []string{"-NoProfile", "-Command", "Get-Clipboard"}}}
	default:
		return []clipboardCmd{
			{"wl-paste", []string{"--no-newline"}},
			{"xclip", []string{"-selection", "clipboard", "-o"}},
			{"xsel", []string{"--clipboard", "--output"}},
		}
	}
}

// candidates returns the configured argv when set, else the platform defaults.
func candidates(argv []string, defaults func() []clipboardCmd) []clipboardCmd {
	if len(argv) > 0 && strings.TrimSpace(argv[0]) != "" {
		return []clipboardCmd{{argv[0], argv[1:]}}
	}
	return defaults()
}

func copyToClipboard(argv []string, s string) error {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var errs []error
	for _, c := range candidates(argv, defaultCopyCmds) {
		if _, err := runClipboardCmd(c, s); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}

func readClipboard(argv []string) (string, error) {
	var errs []error
	for _, c := range candidates(argv, defaultPasteCmds) {
		out, err := runClipboardCmd(c, "")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return out, nil
	}
	return "", errors.Join(errs...)
}

func runClipboardCmd(c clipboardCmd, stdin string) (string, error) {
	if _, err := exec.LookPath(c.name); err != nil {
		return "", err
	}
	cmd := exec.Command(c.name, c.args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", errors.New(c.name + ": " + err.Error())
	}
	return out.String(), nil
}

func (m *appModel) copyCmd(c editor.Copy) tea.Cmd {
	argv := m.cfg.ClipboardCopy
	return func() tea.Msg {
		return clipboardDoneMsg{what: c.What, err: copyToClipboard(argv, c.Text)}
	}
}

func (m *appModel) pasteCmd(p editor.Paste) tea.Cmd {
	argv := m.cfg.ClipboardPaste
	return func() tea.Msg {
		text, err := readClipboard(argv)
		return pasteDoneMsg{target: p, text: text, err: err}
	}
}
