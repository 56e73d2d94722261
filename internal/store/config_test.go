package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("TABEDIT_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, " ", cfg.Leader())
	assert.Equal(t, DefaultLeaderTimeout, cfg.LeaderTimeout())
	assert.Equal(t, DefaultRemoteTimeout, cfg.RemoteTimeout())
	assert.Equal(t, "default", cfg.Profile())
}

func TestLoadConfigValidatesSchema(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TABEDIT_CONFIG_DIR", dir)
	path := filepath.Join(dir, "config.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"leaderKey":",","leaderTimeoutMs":800,"remoteTimeoutSeconds":5,"tui":{"profile":"mono"}}`), 0o644))
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ",", cfg.Leader())
	assert.Equal(t, 800*time.Millisecond, cfg.LeaderTimeout())
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, "mono", cfg.Profile())

	for _, bad := range []string{
		`{"leaderTimeoutMs": 5}`,
		`{"alwaysCommit": "yes"}`,
		`{"unknownKey": 1}`,
		`{"tui": {"profile": "rainbow"}}`,
		`{"leaderKey": "ab"}`,
	} {
		require.NoError(t, os.WriteFile(path, []byte(bad), 0o644))
		_, err := LoadConfig()
		var ce *ConfigError
		assert.True(t, errors.As(err, &ce), bad)
	}
}

func TestExtensionsPathDefaultsUnderConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TABEDIT_CONFIG_DIR", dir)
	assert.Equal(t, filepath.Join(dir, "extensions"), (&Config{}).ExtensionsPath())
	assert.Equal(t, "/opt/ext", (&Config{ExtensionsDir: " /opt/ext "}).ExtensionsPath())
}

func TestSaveConfigConcurrentWritersDoNotCorrupt(t *testing.T) {
	t.Setenv("TABEDIT_CONFIG_DIR", t.TempDir())
	require.NoError(t, SaveConfig(&Config{Editor: "vi"}))

	const n = 32
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg, err := LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			cfg.LeaderTimeoutMs = 100 + i
			errCh <- SaveConfig(cfg)
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		assert.NoError(t, err)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "vi", cfg.Editor)
	assert.GreaterOrEqual(t, cfg.LeaderTimeoutMs, 100)
}
