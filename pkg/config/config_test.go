package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.Memory.MaxEntitiesPerType)
	assert.Equal(t, 10, cfg.Session.ShortTermWindow)
	assert.Equal(t, "instant", cfg.Session.ExecutionMode)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err, "missing config file must not error")
	assert.Equal(t, "~/.contextgate/sessions", cfg.Storage.Dir)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"memory":{"max_entities_per_type":9},"resolver":{"search_tools":["my_search"]}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Memory.MaxEntitiesPerType)
	assert.Equal(t, FlexibleStringSlice{"my_search"}, cfg.Resolver.SearchTools)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"session":{"short_term_window":3}}`), 0o600))
	t.Setenv("CONTEXTGATE_SESSION_SHORT_TERM_WINDOW", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Session.ShortTermWindow, "env must beat file")
}

func TestFlexibleStringSlice_MixedTypes(t *testing.T) {
	var f FlexibleStringSlice
	require.NoError(t, json.Unmarshal([]byte(`["a", 42, true]`), &f))
	assert.Equal(t, FlexibleStringSlice{"a", "42", "true"}, f)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Session.ModelName = "gpt-5.2"

	require.NoError(t, SaveConfig(path, cfg))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5.2", loaded.Session.ModelName)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(home, ".contextgate", "sessions"), filepath.Clean(cfg.StorageDir()))
	assert.NotContains(t, cfg.ArchivePath(), "~")
}
