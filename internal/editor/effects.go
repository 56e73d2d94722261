package editor

import "tabedit/internal/model"

// Effect is a request the UI shell must carry out.
type Effect interface{ isEffect() }

type PromptKind int

const (
	PromptEx PromptKind = iota
	PromptRename
	PromptRetype
	PromptFill
)

func (k PromptKind) Label() string {
	switch k {
	case PromptRename:
		return "rename column"
	case PromptRetype:
		return "column type"
	case PromptFill:
		return "fill with"
	default:
		return ":"
	}
}

// Prompt asks for one line of input, answered through ApplyPrompt.
type Prompt struct {
	Kind    PromptKind
	Initial string
}

// OpenConsole opens the code console.
type OpenConsole struct{}

// ExternalEdit opens a cell in the user's editor; answered through ApplyExternalEdit.
type ExternalEdit struct {
	Row, Col int
	Text     string
}

// Copy sends text to the clipboard copy command.
type Copy struct {
	Text string
	What string
}

// Paste reads the clipboard paste command; answered through ApplyPaste.
type Paste struct {
	Row, Col int
}

type PreviewJSON struct {
	Title string
	Text  string
}

// Save writes the document. An empty Path means the file it was loaded from.
type Save struct {
	Path string
	Quit bool
}

type Quit struct {
	Force bool
}

func (Prompt) isEffect()       {}
func (OpenConsole) isEffect()  {}
func (ExternalEdit) isEffect() {}
func (Copy) isEffect()         {}
func (Paste) isEffect()        {}
func (PreviewJSON) isEffect()  {}
func (Save) isEffect()         {}
func (Quit) isEffect()         {}

// promptState remembers what an open prompt applies to.
type promptState struct {
	kind PromptKind
	rect model.Rect
}
