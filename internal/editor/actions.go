package editor

import (
	"fmt"

	"tabedit/internal/document"
	"tabedit/internal/model"
)

type ActionKind int

const (
	ActInsertRowAbove ActionKind = iota + 1
	ActInsertRowBelow
	ActDeleteRow
	ActExpandRows
	ActCollapseRows
	ActInsertColumnLeft
	ActInsertColumnRight
	ActDeleteColumn
	ActRenameColumn
	ActRetypeColumn
	ActWidenColumn
	ActNarrowColumn
	ActSetCell
	ActClearCell
	ActClearRange
	ActFillRange
)

var actionNames = map[ActionKind]string{
	ActInsertRowAbove:    "insert row above",
	ActInsertRowBelow:    "insert row below",
	ActDeleteRow:         "delete row",
	ActExpandRows:        "expand rows",
	ActCollapseRows:      "collapse rows",
	ActInsertColumnLeft:  "insert column left",
	ActInsertColumnRight: "insert column right",
	ActDeleteColumn:      "delete column",
	ActRenameColumn:      "rename column",
	ActRetypeColumn:      "retype column",
	ActWidenColumn:       "widen column",
	ActNarrowColumn:      "narrow column",
	ActSetCell:           "set cell",
	ActClearCell:         "clear cell",
	ActClearRange:        "clear range",
	ActFillRange:         "fill range",
}

func (k ActionKind) String() string {
	if n, ok := actionNames[k]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// ColumnStep is the width change of one widen or narrow.
const ColumnStep = 2

// Action is a recorded mutation. Row and column targets are always taken from the
// cursor at the time it runs, so a replay applies where the cursor is now.
type Action struct {
	Kind  ActionKind
	Count int
	Text  string
	Type  model.ColumnType
	// Rows and Cols size a range action.
	Rows, Cols int
}

// apply runs a on doc at the current cursor.
func (a Action) apply(doc *document.Document) error {
	cur := doc.Cursor()
	n := a.Count
	if n < 1 {
		n = 1
	}
	switch a.Kind {
	case ActInsertRowAbove:
		return doc.InsertRows(cur.Row, n)
	case ActInsertRowBelow:
		return doc.InsertRows(cur.Row+1, n)
	case ActDeleteRow:
		return doc.DeleteRows(cur.Row, n)
	case ActExpandRows:
		return doc.ExpandRows(n)
	case ActCollapseRows:
		return doc.CollapseRows()
	case ActInsertColumnLeft:
		return doc.InsertColumns(cur.Col, n)
	case ActInsertColumnRight:
		return doc.InsertColumns(cur.Col+1, n)
	case ActDeleteColumn:
		return doc.DeleteColumns(cur.Col, n)
	case ActRenameColumn:
		return doc.RenameColumn(cur.Col, a.Text)
	case ActRetypeColumn:
		return doc.RetypeColumn(cur.Col, a.Type)
	case ActWidenColumn:
		return doc.ResizeColumn(cur.Col, ColumnStep*n)
	case ActNarrowColumn:
		return doc.ResizeColumn(cur.Col, -ColumnStep*n)
	case ActSetCell:
		return doc.SetCell(cur.Row, cur.Col, a.Text)
	case ActClearCell:
		return doc.ClearCell(cur.Row, cur.Col)
	case ActClearRange:
		return doc.ClearRange(a.rectAt(cur))
	case ActFillRange:
		return doc.FillRange(a.rectAt(cur), a.Text)
	}
	return fmt.Errorf("cannot repeat %s", a.Kind)
}

func (a Action) rectAt(cur document.Cursor) model.Rect {
	return model.Rect{
		Top:    cur.Row,
		Left:   cur.Col,
		Bottom: cur.Row + max(a.Rows, 1) - 1,
		Right:  cur.Col + max(a.Cols, 1) - 1,
	}
}

// perform applies a and records it for repeat when it succeeds.
func perform(s *Session, doc *document.Document, a Action) error {
	if err := a.apply(doc); err != nil {
		s.fail(err.Error())
		return err
	}
	s.LastAction = &a
	return nil
}

// repeat replays the last action once. A count replaces the recorded one, so the
// replay is still a single mutation.
func repeat(s *Session, doc *document.Document, n int) {
	if s.LastAction == nil {
		s.fail("nothing to repeat")
		return
	}
	a := *s.LastAction
	if n > 1 {
		a.Count = n
	}
	if err := a.apply(doc); err != nil {
		s.fail(err.Error())
		return
	}
	s.flash("repeated " + a.Kind.String())
}
