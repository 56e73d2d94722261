package editor

import (
	"strings"

	"tabedit/internal/coerce"
	"tabedit/internal/document"
	"tabedit/internal/model"
)

// Selection returns the visual rectangle, clamped to the table.
func (s *Session) Selection(doc *document.Document) model.Rect {
	cur := doc.Cursor()
	t := doc.Table()
	return model.RectFrom(s.Anchor.Row, s.Anchor.Col, cur.Row, cur.Col).Clamp(t.NumRows(), t.NumCols())
}

func handleVisual(s *Session, doc *document.Document, key string) Outcome {
	if s.pushDigit(key) {
		return Outcome{}
	}
	if motion(s, doc, key) {
		return Outcome{}
	}
	rect := s.Selection(doc)
	switch key {
	case "d", "x":
		s.Reset()
		doc.SetCursor(rect.Top, rect.Left)
		_ = perform(s, doc, Action{Kind: ActClearRange, Rows: rect.Rows(), Cols: rect.Cols()})
	case "f":
		s.Reset()
		out := s.openPrompt(PromptFill, "")
		s.prompt.rect = rect
		return out
	case "y":
		s.Reset()
		return effect(Copy{Text: rangeTSV(doc.Table(), rect), What: "selection"})
	case "esc", "v":
		s.Reset()
	default:
		s.Count = 0
	}
	return Outcome{}
}

func rangeTSV(t *model.Table, r model.Rect) string {
	var b strings.Builder
	for row := r.Top; row <= r.Bottom; row++ {
		for col := r.Left; col <= r.Right; col++ {
			if col > r.Left {
				b.WriteByte('\t')
			}
			b.WriteString(coerce.Format(t.Cell(row, col)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
