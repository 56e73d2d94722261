package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"tabedit/internal/document"
	"tabedit/internal/editor"
	"tabedit/internal/router"
	"tabedit/internal/store"
)

type appModel struct {
	path   string
	doc    *document.Document
	sess   *editor.Session
	router *router.Router
	cfg    *store.Config
	st     styles

	width  int
	height int

	overlay    overlay
	prompt     textinput.Model
	promptKind editor.PromptKind

	console textarea.Model
	output  viewport.Model
	lines   []string

	preview      viewport.Model
	previewTitle string

	running bool
	cancel  context.CancelFunc
	runSeq  int
	spinner spinner.Model

	flash    string
	flashErr bool
	flashSeq int

	externalEditorPath   string
	externalEditorTarget editor.ExternalEdit
}

func newAppModel(opts Options) *appModel {
	cfg := opts.Config
	if cfg == nil {
		cfg = &store.Config{}
	}

	ti := textinput.New()
	ti.CharLimit = 4096

	ta := textarea.New()
	ta.Placeholder = "df['total'] = df['price'] * df['qty']"
	ta.ShowLineNumbers = true
	ta.SetHeight(consoleHeight)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &appModel{
		path:   opts.Path,
		doc:    opts.Doc,
		router: opts.Router,
		cfg:    cfg,
		st:     newStyles(profileName(cfg.Profile())),
		sess: editor.NewSession(editor.Options{
			LeaderKey:     cfg.Leader(),
			LeaderTimeout: cfg.LeaderTimeout(),
		}),
		prompt:  ti,
		console: ta,
		output:  viewport.New(0, outputMinHeight),
		preview: viewport.New(0, 0),
		spinner: sp,
		width:   80,
		height:  24,
	}
	if m.router == nil {
		m.router = &router.Router{}
	}
	return m
}

func (m *appModel) Init() tea.Cmd {
	return nil
}
