package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"tabedit/internal/store"
)

type execOutput struct {
	Path         string       `json:"path"`
	Route        string       `json:"route"`
	RouteReason  string       `json:"routeReason"`
	Committed    bool         `json:"committed"`
	CommitReason string       `json:"commitReason"`
	Stdout       []string     `json:"stdout"`
	Stderr       []string     `json:"stderr"`
	Display      string       `json:"display,omitempty"`
	Saved        bool         `json:"saved"`
	Sheet        sheetSummary `json:"sheet"`
}

func newExecCmd(app *App) *cobra.Command {
	var (
		code string
		file string
		save bool
	)
	cmd := &cobra.Command{
		Use:   "exec PATH",
		Short: "Run console code against a file without the UI",
		Long: strings.TrimSpace(`
Runs code the same way the console does: buffers that import modules or call table
extensions go to a worker process, everything else runs in-process. The commit rules
are the same as in the editor. --save writes a committed result back to PATH.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			src, err := readCode(cmd, code, file)
			if err != nil {
				return err
			}
			doc, err := store.Load(path)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
			defer stop()
			res, route := app.newRouter().Execute(ctx, src, doc.Table().Clone())

			out := execOutput{
				Path:         path,
				Route:        route.Route.String(),
				RouteReason:  route.Reason,
				Committed:    res.Committed,
				CommitReason: res.Reason,
				Stdout:       nonNil(res.Stdout),
				Stderr:       nonNil(res.Stderr),
				Display:      res.Display,
			}
			if res.Committed && res.Table != nil {
				if err := doc.Commit(res.Table); err != nil {
					return err
				}
				if save {
					if err := store.Save(path, doc); err != nil {
						return err
					}
					out.Saved = true
				}
			}
			out.Sheet = summarize(doc.Active().Name, doc.Table())
			if err := writeOut(cmd, app, map[string]any{"data": out}); err != nil {
				return err
			}
			return res.Err
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Code to run")
	cmd.Flags().StringVar(&file, "file", "", "Read code from a file (- for stdin)")
	cmd.Flags().BoolVar(&save, "save", false, "Save the committed table back to PATH")
	cmd.MarkFlagsMutuallyExclusive("code", "file")
	return cmd
}

// readCode returns --code, or the contents of --file; "-" reads stdin.
func readCode(cmd *cobra.Command, code, file string) (string, error) {
	switch {
	case code != "":
		return code, nil
	case file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read code: %w", err)
		}
		return string(b), nil
	}
	return "", errors.New("one of --code or --file is required")
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
