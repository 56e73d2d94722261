package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tabedit/internal/bridge"
	"tabedit/internal/document"
	"tabedit/internal/extensions"
	"tabedit/internal/format"
	"tabedit/internal/model"
	"tabedit/internal/router"
	"tabedit/internal/store"
	"tabedit/internal/tui"
)

type App struct {
	Extensions string
	LogPath    string
	Verbose    bool
	PrettyJSON bool
	Format     string

	cfg     *store.Config
	logFile io.Closer
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tabedit [FILE]",
		Short:        "Modal terminal editor for tabular data",
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		Example: strings.TrimSpace(`
  # Edit a CSV file (created on :w when it does not exist)
  tabedit prices.csv

  # Multi-sheet columnar file
  tabedit book.tcol

  # Run code headlessly and save the result
  tabedit exec prices.csv --code "df['total'] = df['price'] * df['qty']" --save
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runTUI(app, path)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := store.LoadConfig()
		if err != nil {
			return err
		}
		app.cfg = cfg
		return app.setupLogging()
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.logFile != nil {
			_ = app.logFile.Close()
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Extensions, "extensions", envOr("TABEDIT_EXTENSIONS", ""), "Extension directory (default: config extensionsDir or ~/.tabedit/extensions)")
	cmd.PersistentFlags().StringVar(&app.LogPath, "log", envOr("TABEDIT_LOG", ""), "Append structured logs to this file")
	cmd.PersistentFlags().BoolVar(&app.Verbose, "verbose", false, "Log at debug level")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TABEDIT_FORMAT", "json"), "Output format ("+strings.Join(format.Names, "|")+")")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return format.Names, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(newExecCmd(app))
	cmd.AddCommand(newInfoCmd(app))
	cmd.AddCommand(newClassifyCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newWorkerCmd(app))

	return cmd
}

// setupLogging routes slog to the log file. Without one, logs are discarded since the
// terminal belongs to the UI.
func (app *App) setupLogging() error {
	path := app.LogPath
	if path == "" && app.cfg != nil {
		path = app.cfg.LogPath
	}
	level := slog.LevelInfo
	if app.Verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = io.Discard
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		app.logFile = f
		w = f
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func (app *App) extensionsDir() string {
	if app.Extensions != "" {
		return app.Extensions
	}
	return app.cfg.ExtensionsPath()
}

// newRouter wires the remote bridge. Extension modules are only executed by the
// worker; here they are just listed.
func (app *App) newRouter() *router.Router {
	dir := app.extensionsDir()
	mods, err := extensions.Modules(dir)
	if err != nil {
		slog.Warn("extension directory unreadable", "dir", dir, "err", err)
	}
	slog.Info("extensions found", "dir", dir, "modules", len(mods))
	return &router.Router{
		AlwaysCommit: app.cfg.AlwaysCommit,
		MaxSteps:     app.cfg.MaxSteps,
		Remote: &bridge.Client{
			ExtensionsDir: dir,
			AlwaysCommit:  app.cfg.AlwaysCommit,
			MaxSteps:      app.cfg.MaxSteps,
			Timeout:       app.cfg.RemoteTimeout(),
		},
	}
}

func runTUI(app *App, path string) error {
	doc := document.New(model.BlankTable())
	if path != "" {
		d, created, err := store.LoadOrCreate(path)
		if err != nil {
			return err
		}
		doc = d
		if !created {
			restoreView(path, doc)
		}
	}
	err := tui.Run(tui.Options{
		Path:   path,
		Doc:    doc,
		Router: app.newRouter(),
		Config: app.cfg,
	})
	rememberView(path, doc)
	return err
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}
