package cli

import (
	"github.com/spf13/cobra"

	"tabedit/internal/router"
)

func newClassifyCmd(app *App) *cobra.Command {
	var code, file string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show where a code buffer would run, without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readCode(cmd, code, file)
			if err != nil {
				return err
			}
			c := router.Classify(src)
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"route":  c.Route.String(),
					"reason": c.Reason,
					"parsed": c.Parsed,
				},
			})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Code to classify")
	cmd.Flags().StringVar(&file, "file", "", "Read code from a file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("code", "file")
	return cmd
}
