package document

import (
	"log/slog"

	"tabedit/internal/model"
)

// MaxUndoDepth bounds each sheet's undo and redo stacks.
const MaxUndoDepth = 50

// Snapshot is a deep copy of a sheet's restorable state.
type Snapshot struct {
	Table     *model.Table
	Cursor    Cursor
	Viewport  Viewport
	Highlight HighlightMode
	Layout    Layout
}

func (s *Sheet) snapshot() Snapshot {
	return Snapshot{
		Table:     s.Table.Clone(),
		Cursor:    s.Cursor,
		Viewport:  s.Viewport,
		Highlight: s.Highlight,
		Layout:    s.Layout.clone(),
	}
}

func (s *Sheet) restore(snap Snapshot) {
	s.Table = snap.Table
	s.Cursor = snap.Cursor
	s.Viewport = snap.Viewport
	s.Highlight = snap.Highlight
	s.Layout = snap.Layout
}

func pushBounded(stack []Snapshot, snap Snapshot) []Snapshot {
	stack = append(stack, snap)
	if len(stack) > MaxUndoDepth {
		// Evict the oldest entry.
		copy(stack, stack[len(stack)-MaxUndoDepth:])
		stack = stack[:MaxUndoDepth]
	}
	return stack
}

// PushUndo snapshots the active sheet before a mutation and clears its redo stack.
func (d *Document) PushUndo() {
	s := d.Active()
	s.undo = pushBounded(s.undo, s.snapshot())
	s.redo = nil
}

// Undo restores the latest snapshot and reports how many remain.
func (d *Document) Undo() (int, error) {
	s := d.Active()
	if len(s.undo) == 0 {
		return 0, ErrNothingToUndo
	}
	snap := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = pushBounded(s.redo, s.snapshot())
	s.restore(snap)
	d.dirty = true
	slog.Debug("undo", "sheet", s.Name, "remaining", len(s.undo))
	return len(s.undo), nil
}

// Redo mirrors Undo.
func (d *Document) Redo() (int, error) {
	s := d.Active()
	if len(s.redo) == 0 {
		return 0, ErrNothingToRedo
	}
	snap := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = pushBounded(s.undo, s.snapshot())
	s.restore(snap)
	d.dirty = true
	slog.Debug("redo", "sheet", s.Name, "remaining", len(s.redo))
	return len(s.redo), nil
}

func (d *Document) UndoDepth() int { return len(d.Active().undo) }

func (d *Document) RedoDepth() int { return len(d.Active().redo) }
