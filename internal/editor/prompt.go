package editor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tabedit/internal/document"
	"tabedit/internal/model"
)

// ApplyPrompt answers the prompt opened by the last Prompt effect.
func ApplyPrompt(s *Session, doc *document.Document, kind PromptKind, text string) Outcome {
	p := s.prompt
	s.prompt = promptState{}
	s.Reset()
	text = strings.TrimSpace(text)

	switch kind {
	case PromptEx:
		return exCommand(s, doc, text)
	case PromptRename:
		if text == "" {
			s.flash("rename cancelled")
			return Outcome{}
		}
		_ = perform(s, doc, Action{Kind: ActRenameColumn, Text: text})
	case PromptRetype:
		typ, err := model.ParseColumnType(text)
		if err != nil {
			s.fail(err.Error())
			return Outcome{}
		}
		_ = perform(s, doc, Action{Kind: ActRetypeColumn, Type: typ})
	case PromptFill:
		if p.kind != PromptFill {
			s.fail("no selection to fill")
			return Outcome{}
		}
		r := p.rect
		doc.SetCursor(r.Top, r.Left)
		_ = perform(s, doc, Action{Kind: ActFillRange, Text: text, Rows: r.Rows(), Cols: r.Cols()})
	}
	return Outcome{}
}

// CancelPrompt drops a pending prompt.
func CancelPrompt(s *Session) {
	s.prompt = promptState{}
	s.Reset()
}

func exCommand(s *Session, doc *document.Document, line string) Outcome {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	if n, err := strconv.Atoi(cmd); err == nil && arg == "" {
		doc.SetCursor(n-1, doc.Cursor().Col)
		return Outcome{}
	}
	switch cmd {
	case "":
		return Outcome{}
	case "w", "write":
		return effect(Save{Path: arg})
	case "wq", "x":
		return effect(Save{Path: arg, Quit: true})
	case "q", "quit":
		if doc.Dirty() {
			s.fail("unsaved changes (add ! to override)")
			return Outcome{}
		}
		return effect(Quit{})
	case "q!", "quit!":
		return effect(Quit{Force: true})
	case "sheet":
		if arg == "" {
			s.flash("sheets: " + strings.Join(doc.SheetNames(), ", "))
			return Outcome{}
		}
		err := doc.SwitchSheet(arg)
		var nf document.SheetNotFoundError
		if errors.As(err, &nf) {
			_, err = doc.AddSheet(arg, model.BlankTable())
			if err == nil {
				s.flash("new sheet: " + arg)
				return Outcome{}
			}
		}
		if err != nil {
			s.fail(err.Error())
			return Outcome{}
		}
		s.flash("sheet: " + arg)
	default:
		s.fail(fmt.Sprintf("not an editor command: %s", cmd))
	}
	return Outcome{}
}

// ApplyExternalEdit writes text returned by the external editor into the target
// cell. A single trailing newline, which most editors add, is dropped.
func ApplyExternalEdit(s *Session, doc *document.Document, target ExternalEdit, text string) {
	s.Reset()
	text = trimNewline(text)
	if text == target.Text {
		s.flash("cell unchanged")
		return
	}
	doc.SetCursor(target.Row, target.Col)
	_ = perform(s, doc, Action{Kind: ActSetCell, Text: text})
}

// ApplyPaste writes clipboard text into the target cell.
func ApplyPaste(s *Session, doc *document.Document, target Paste, text string) {
	s.Reset()
	doc.SetCursor(target.Row, target.Col)
	if perform(s, doc, Action{Kind: ActSetCell, Text: trimNewline(text)}) == nil {
		s.flash("pasted")
	}
}

// ApplyCommit replaces the active table with an execution result.
func ApplyCommit(s *Session, doc *document.Document, t *model.Table) error {
	s.Reset()
	if err := doc.Commit(t); err != nil {
		s.fail(err.Error())
		return err
	}
	return nil
}

func trimNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
