package editor

import (
	"fmt"

	"tabedit/internal/document"
)

func handleCellInsert(s *Session, doc *document.Document, key string) Outcome {
	switch key {
	case "enter":
		commitBuffer(s, doc)
	case "esc":
		s.Buffer.Move(-1)
		s.Buffer.settle()
		s.Mode = ModeCellNormal
	case "backspace", "ctrl+h":
		s.Buffer.Backspace()
	case "delete", "ctrl+d":
		s.Buffer.DeleteForward(1)
	case "space":
		s.Buffer.Insert(" ")
	default:
		if r, ok := printable(key); ok {
			s.Buffer.Insert(string(r))
		}
	}
	return Outcome{}
}

func handleCellNormal(s *Session, doc *document.Document, key string) Outcome {
	if key == s.opts.LeaderKey {
		s.startLeader(cellLeader)
		return Outcome{}
	}
	if s.pushDigit(key) {
		return Outcome{}
	}

	b := &s.Buffer
	switch key {
	case "h", "left":
		b.Move(-s.count())
	case "l", "right":
		b.Move(s.count())
		b.settle()
	case "w":
		for n := s.count(); n > 0; n-- {
			b.WordForward()
		}
		b.settle()
	case "b":
		for n := s.count(); n > 0; n-- {
			b.WordBackward()
		}
	case "0", "home":
		s.Count = 0
		b.Home()
	case "$", "end":
		s.Count = 0
		b.End()
		b.settle()
	case "x", "delete":
		b.DeleteForward(s.count())
		b.settle()
	case "i":
		s.Count = 0
		s.Mode = ModeCellInsert
	case "a":
		s.Count = 0
		if len(b.Runes) > 0 {
			b.Move(1)
		}
		s.Mode = ModeCellInsert
	case "I":
		s.Count = 0
		b.Home()
		s.Mode = ModeCellInsert
	case "A":
		s.Count = 0
		b.End()
		s.Mode = ModeCellInsert
	case "enter":
		s.Count = 0
		commitBuffer(s, doc)
	case "esc":
		s.Reset()
	default:
		s.Count = 0
	}
	return Outcome{}
}

// commitBuffer writes the staged text through the column's coercion. On failure
// the buffer and mode are kept so the text can be corrected.
func commitBuffer(s *Session, doc *document.Document) {
	text := s.Buffer.String()
	doc.SetCursor(s.Buffer.Row, s.Buffer.Col)
	if err := perform(s, doc, Action{Kind: ActSetCell, Text: text}); err != nil {
		if t := doc.Table(); t.InBounds(s.Buffer.Row, s.Buffer.Col) {
			col := t.Columns[s.Buffer.Col]
			s.fail(fmt.Sprintf("%s (%s): %v", col.Name, col.Type, err))
		}
		return
	}
	s.Reset()
}
