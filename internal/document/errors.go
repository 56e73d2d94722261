package document

import (
	"errors"
	"fmt"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// StructuralOpError reports a rejected structural operation. The document is unchanged.
type StructuralOpError struct {
	Op     string
	Reason string
}

func (e *StructuralOpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func opErr(op, format string, args ...any) error {
	return &StructuralOpError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// SheetNotFoundError is returned when switching to an unknown sheet.
type SheetNotFoundError struct {
	Name string
}

func (e SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet not found: %s", e.Name)
}
