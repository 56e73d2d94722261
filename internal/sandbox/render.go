package sandbox

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"

	"tabedit/internal/coerce"
	"tabedit/internal/model"
)

const maxCellWidth = 24

// renderTable draws at most maxRows rows of t as a bordered text table.
func renderTable(t *model.Table, maxRows int) string {
	if t == nil {
		return "<nil table>"
	}
	rows := t.NumRows()
	shown := rows
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.ColumnNames()...)
	for r := 0; r < shown; r++ {
		cells := make([]string, t.NumCols())
		for c := range cells {
			v := t.Cell(r, c)
			if v == nil {
				continue
			}
			cells[c] = ansi.Truncate(coerce.Format(v), maxCellWidth, "…")
		}
		tbl.Row(cells...)
	}

	out := tbl.String()
	if shown < rows {
		out += fmt.Sprintf("\n[%d rows x %d columns]", rows, t.NumCols())
	}
	return out
}

// RenderTable renders the whole table.
func RenderTable(t *model.Table) string {
	return renderTable(t, 0)
}
