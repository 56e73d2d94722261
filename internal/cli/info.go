package cli

import (
	"github.com/spf13/cobra"

	"tabedit/internal/model"
	"tabedit/internal/store"
)

type columnSummary struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Nulls int    `json:"nulls"`
}

type sheetSummary struct {
	Name    string          `json:"name"`
	Rows    int             `json:"rows"`
	Columns []columnSummary `json:"columns"`
}

func summarize(name string, t *model.Table) sheetSummary {
	out := sheetSummary{Name: name, Rows: t.NumRows(), Columns: make([]columnSummary, 0, t.NumCols())}
	for _, c := range t.Columns {
		nulls := 0
		for _, v := range c.Values {
			if v == nil {
				nulls++
			}
		}
		out.Columns = append(out.Columns, columnSummary{Name: c.Name, Type: string(c.Type), Nulls: nulls})
	}
	return out
}

func newInfoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info PATH",
		Short: "Describe the sheets and columns of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := store.DocumentFormat(path)
			if err != nil {
				return err
			}
			doc, err := store.Load(path)
			if err != nil {
				return err
			}
			sheets := make([]sheetSummary, 0, len(doc.Sheets()))
			for _, s := range doc.Sheets() {
				sheets = append(sheets, summarize(s.Name, s.Table))
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"path":   path,
					"format": format,
					"sheets": sheets,
				},
			})
		},
	}
}
