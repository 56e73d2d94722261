// Package tui is the terminal shell around the editor: it turns key messages into
// editor input, carries out the effects the editor asks for and draws the sheet.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"tabedit/internal/document"
	"tabedit/internal/router"
	"tabedit/internal/store"
)

type Options struct {
	// Path is where :w saves; empty until the user names a file.
	Path   string
	Doc    *document.Document
	Router *router.Router
	Config *store.Config
}

func Run(opts Options) error {
	applyColorProfilePreference()
	m := newAppModel(opts)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
