package store

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Config holds user preferences read from config.json.
type Config struct {
	// AlwaysCommit commits the table after every successful execution that no other
	// rule decided.
	AlwaysCommit bool `json:"alwaysCommit,omitempty"`

	// ClipboardCopy / ClipboardPaste are argv for the system clipboard. Empty means
	// auto-detect (pbcopy, wl-copy, xclip, ...).
	ClipboardCopy  []string `json:"clipboardCopy,omitempty"`
	ClipboardPaste []string `json:"clipboardPaste,omitempty"`

	// Editor overrides $VISUAL/$EDITOR for external cell editing.
	Editor string `json:"editor,omitempty"`

	ExtensionsDir string `json:"extensionsDir,omitempty"`

	LeaderKey       string `json:"leaderKey,omitempty"`
	LeaderTimeoutMs int    `json:"leaderTimeoutMs,omitempty"`

	RemoteTimeoutSeconds int    `json:"remoteTimeoutSeconds,omitempty"`
	MaxSteps             uint64 `json:"maxSteps,omitempty"`

	LogPath string `json:"logPath,omitempty"`

	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Profile is the appearance profile id ("default", "mono", "neon").
	Profile string `json:"profile,omitempty"`
}

const (
	DefaultLeaderKey     = " "
	DefaultLeaderTimeout = 1500 * time.Millisecond
	DefaultRemoteTimeout = 120 * time.Second
)

func (c *Config) Leader() string {
	if c == nil || c.LeaderKey == "" {
		return DefaultLeaderKey
	}
	if c.LeaderKey == "space" {
		return " "
	}
	return c.LeaderKey
}

func (c *Config) LeaderTimeout() time.Duration {
	if c == nil || c.LeaderTimeoutMs <= 0 {
		return DefaultLeaderTimeout
	}
	return time.Duration(c.LeaderTimeoutMs) * time.Millisecond
}

func (c *Config) RemoteTimeout() time.Duration {
	if c == nil || c.RemoteTimeoutSeconds <= 0 {
		return DefaultRemoteTimeout
	}
	return time.Duration(c.RemoteTimeoutSeconds) * time.Second
}

// ExtensionsPath is the configured extension directory or <config dir>/extensions.
func (c *Config) ExtensionsPath() string {
	if c != nil && strings.TrimSpace(c.ExtensionsDir) != "" {
		return expandHome(strings.TrimSpace(c.ExtensionsDir))
	}
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "extensions")
}

func (c *Config) Profile() string {
	if c == nil || c.TUI == nil || c.TUI.Profile == "" {
		return "default"
	}
	return c.TUI.Profile
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// ConfigError reports an unreadable or invalid config file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

//go:embed config.cue
var configSchema string

// ValidateConfig checks raw JSON against the embedded schema.
func ValidateConfig(b []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	data := ctx.CompileBytes(b)
	if err := data.Err(); err != nil {
		return err
	}
	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(data)
	return v.Validate(cue.Concrete(true))
}

func ConfigDir() (string, error) {
	// Keeps unit tests from touching ~/.tabedit.
	if v := strings.TrimSpace(os.Getenv("TABEDIT_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabedit"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig reads config.json. A missing file yields defaults.
func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, &ConfigError{Path: path, Err: err}
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return &Config{}, nil
	}
	if err := ValidateConfig(b); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := ValidateConfig(b); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}
