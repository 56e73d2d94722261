package tui

import (
	"time"

	"tabedit/internal/editor"
	"tabedit/internal/router"
	"tabedit/internal/sandbox"
)

type overlay int

const (
	overlayNone overlay = iota
	overlayPrompt
	overlayConsole
	overlayPreview
)

type flashDoneMsg struct{ seq int }

type leaderTickMsg struct{}

type execDoneMsg struct {
	seq     int
	res     sandbox.Result
	route   router.Classification
	elapsed time.Duration
}

type externalEditorDoneMsg struct {
	err error
}

type clipboardDoneMsg struct {
	what string
	err  error
}

type pasteDoneMsg struct {
	target editor.Paste
	text   string
	err    error
}

const (
	flashDuration   = 4 * time.Second
	maxOutputLines  = 500
	consoleHeight   = 8
	outputMinHeight = 3
)
