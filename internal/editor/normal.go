package editor

import (
	"bytes"
	"fmt"
	"strings"

	"tabedit/internal/coerce"
	"tabedit/internal/document"
	"tabedit/internal/store"
)

// PageRows is the distance of ctrl+d and ctrl+u.
const PageRows = 10

// motion applies a grid cursor motion. It reports false when key is not a motion.
func motion(s *Session, doc *document.Document, key string) bool {
	cur := doc.Cursor()
	t := doc.Table()
	switch key {
	case "h", "left":
		doc.MoveCursor(0, -s.count())
	case "l", "right":
		doc.MoveCursor(0, s.count())
	case "k", "up":
		doc.MoveCursor(-s.count(), 0)
	case "j", "down":
		doc.MoveCursor(s.count(), 0)
	case "ctrl+d", "pgdown":
		doc.MoveCursor(PageRows*s.count(), 0)
	case "ctrl+u", "pgup":
		doc.MoveCursor(-PageRows*s.count(), 0)
	case "0", "home":
		s.Count = 0
		doc.SetCursor(cur.Row, 0)
	case "$", "end":
		s.Count = 0
		doc.SetCursor(cur.Row, t.NumCols()-1)
	case "g":
		s.Count = 0
		doc.SetCursor(0, cur.Col)
	case "G":
		row := t.NumRows() - 1
		if s.Count > 0 {
			row = s.Count - 1
		}
		s.Count = 0
		doc.SetCursor(row, cur.Col)
	default:
		return false
	}
	return true
}

func handleNormal(s *Session, doc *document.Document, key string) Outcome {
	if s.pushDigit(key) {
		return Outcome{}
	}
	if key == s.opts.LeaderKey {
		s.startLeader(normalLeader)
		return Outcome{}
	}
	if motion(s, doc, key) {
		return Outcome{}
	}

	cur := doc.Cursor()
	switch key {
	case "i":
		s.Count = 0
		s.Buffer = newBuffer(cur.Row, cur.Col, cellText(doc, cur))
		s.Mode = ModeCellInsert
	case "enter":
		s.Count = 0
		s.Buffer = newBuffer(cur.Row, cur.Col, cellText(doc, cur))
		s.Buffer.Home()
		s.Mode = ModeCellNormal
	case "v":
		s.Count = 0
		s.Anchor = cur
		s.Mode = ModeVisual
	case "x", "delete":
		s.Count = 0
		_ = perform(s, doc, Action{Kind: ActClearCell})
	case "u":
		n := s.count()
		for i := 0; i < n; i++ {
			left, err := doc.Undo()
			if err != nil {
				s.fail(err.Error())
				break
			}
			s.flash(fmt.Sprintf("undone (%d more)", left))
		}
	case "ctrl+r":
		n := s.count()
		for i := 0; i < n; i++ {
			left, err := doc.Redo()
			if err != nil {
				s.fail(err.Error())
				break
			}
			s.flash(fmt.Sprintf("redone (%d more)", left))
		}
	case ".":
		repeat(s, doc, s.count())
	case "[":
		s.Count = 0
		doc.PrevSheet()
		s.flash("sheet: " + doc.Active().Name)
	case "]":
		s.Count = 0
		doc.NextSheet()
		s.flash("sheet: " + doc.Active().Name)
	case ":":
		s.Count = 0
		return s.openPrompt(PromptEx, "")
	case "!":
		s.Count = 0
		return effect(OpenConsole{})
	default:
		s.Count = 0
	}
	return Outcome{}
}

func cellText(doc *document.Document, cur document.Cursor) string {
	return coerce.Format(doc.Table().Cell(cur.Row, cur.Col))
}

func (s *Session) openPrompt(kind PromptKind, initial string) Outcome {
	s.prompt = promptState{kind: kind}
	return effect(Prompt{Kind: kind, Initial: initial})
}

func yankCell(_ *Session, doc *document.Document) Outcome {
	return effect(Copy{Text: cellText(doc, doc.Cursor()), What: "cell"})
}

func yankRow(_ *Session, doc *document.Document) Outcome {
	row := doc.Table().Row(doc.Cursor().Row)
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = coerce.Format(v)
	}
	return effect(Copy{Text: strings.Join(parts, "\t"), What: "row"})
}

func yankTable(s *Session, doc *document.Document) Outcome {
	var buf bytes.Buffer
	if err := store.WriteCSV(&buf, doc.Table()); err != nil {
		s.fail(err.Error())
		return Outcome{}
	}
	return effect(Copy{Text: buf.String(), What: "table"})
}

func openExternal(_ *Session, doc *document.Document) Outcome {
	cur := doc.Cursor()
	return effect(ExternalEdit{Row: cur.Row, Col: cur.Col, Text: cellText(doc, cur)})
}

func previewRow(s *Session, doc *document.Document) Outcome {
	row := doc.Cursor().Row
	b, err := doc.RowJSON(row)
	if err != nil {
		s.fail(err.Error())
		return Outcome{}
	}
	return effect(PreviewJSON{Title: fmt.Sprintf("%s row %d", doc.Active().Name, row+1), Text: string(b)})
}
