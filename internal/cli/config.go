package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tabedit/internal/store"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the user configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := store.ConfigPath()
			if err != nil {
				return err
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"path": path, "config": app.cfg},
			})
		},
	}
	cmd.AddCommand(newConfigSetCmd(app))
	return cmd
}

func newConfigSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set one configuration key (dotted for nested keys, e.g. tui.profile)",
		Example: strings.TrimSpace(`
  tabedit config set leaderTimeoutMs 800
  tabedit config set clipboardCopy '["xclip","-selection","clipboard"]'
  tabedit config set tui.profile mono
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setConfigKey(app.cfg, args[0], args[1])
			if err != nil {
				return err
			}
			if err := store.SaveConfig(cfg); err != nil {
				return err
			}
			app.cfg = cfg
			return writeOut(cmd, app, map[string]any{"data": cfg})
		},
	}
}

// setConfigKey returns a copy of cfg with key set to raw. raw is read as JSON when it
// parses, otherwise as a plain string.
func setConfigKey(cfg *store.Config, key, raw string) (*store.Config, error) {
	if cfg == nil {
		cfg = &store.Config{}
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}
	parts := strings.Split(key, ".")
	m := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v

	b, err = json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var out store.Config
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("config %s: %w", key, err)
	}
	return &out, nil
}
