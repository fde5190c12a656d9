package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, ConfigDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func TestLoadDefaultsWhenNoFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestWorkspaceOverridesHome(t *testing.T) {
	home := t.TempDir()
	workspace := t.TempDir()
	t.Setenv("HOME", home)

	writeConfig(t, home, "llm:\n  provider: anthropic\n  model: claude-sonnet-4\nlog_level: debug\n")
	writeConfig(t, workspace, "llm:\n  provider: anthropic\n  model: claude-opus-4\n")

	cfg, err := Load(workspace)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	// Workspace value wins for the field it sets.
	assert.Equal(t, "claude-opus-4", cfg.LLM.Model)
	// Home value survives for fields the workspace file omits.
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	workspace := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	writeConfig(t, workspace, "llm: [unclosed\n")

	_, err := Load(workspace)
	assert.Error(t, err)
}

func TestEngineConfigMergesOverDefaults(t *testing.T) {
	cfg := Default()
	cfg.Engine.CheckpointInterval = 5
	cfg.Engine.LLMTimeoutSeconds = 30
	cfg.Engine.DisableLoopDetect = true
	cfg.LLM.MaxTokens = 2048

	ec := cfg.EngineConfig()
	assert.Equal(t, 5, ec.CheckpointInterval)
	assert.Equal(t, 30*time.Second, ec.LLMTimeout)
	assert.False(t, ec.EnableLoopDetection)
	assert.Equal(t, 2048, ec.MaxTokens)
	// Untouched tunables keep their defaults.
	assert.Equal(t, 6, ec.KeepRecentTurns)
	assert.Equal(t, 30, ec.PruneThreshold)
}

func TestAPIKeyResolvesEnv(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKeyEnv = "NEO_TEST_API_KEY"
	t.Setenv("NEO_TEST_API_KEY", "sk-test")

	assert.Equal(t, "sk-test", cfg.APIKey())

	cfg.LLM.APIKeyEnv = ""
	assert.Empty(t, cfg.APIKey())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LLM.Provider = ""
	assert.Error(t, cfg.Validate())
}

func TestStorePath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/ws", ConfigDirName, "sessions"), cfg.StorePath("/ws"))

	cfg.Store.Path = "/var/lib/neo/sessions.db"
	assert.Equal(t, "/var/lib/neo/sessions.db", cfg.StorePath("/ws"))
}
