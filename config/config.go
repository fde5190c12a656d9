// Package config loads neo's YAML configuration. Settings come from
// the user's home directory first, then the workspace, with the
// workspace file taking precedence field by field.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rahulgovind/neo/agent"
)

// ConfigDirName is the directory, under both $HOME and the workspace
// root, that holds config.yaml.
const ConfigDirName = ".neo"

// LLMConfig selects the completion provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// StoreConfig selects the session persistence backend.
type StoreConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `yaml:"backend"`
	// Path is the session directory (file) or database file (sqlite).
	// Relative paths resolve against the workspace root.
	Path string `yaml:"path"`
}

// EngineConfig exposes the step-loop tunables. Zero values fall back
// to the engine defaults.
type EngineConfig struct {
	CheckpointInterval  int  `yaml:"checkpoint_interval"`
	KeepRecentTurns     int  `yaml:"keep_recent_turns"`
	PruneThreshold      int  `yaml:"prune_threshold"`
	HardCap             int  `yaml:"hard_cap"`
	MaxProtocolRetries  int  `yaml:"max_protocol_retries"`
	LLMTimeoutSeconds   int  `yaml:"llm_timeout_seconds"`
	DisableLoopDetect   bool `yaml:"disable_loop_detection"`
	LoopDetectionWindow int  `yaml:"loop_detection_window"`
}

// Config is the full configuration tree.
type Config struct {
	LLM          LLMConfig    `yaml:"llm"`
	Store        StoreConfig  `yaml:"store"`
	Engine       EngineConfig `yaml:"engine"`
	Instructions string       `yaml:"instructions"`
	LogLevel     string       `yaml:"log_level"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    filepath.Join(ConfigDirName, "sessions"),
		},
		LogLevel: "info",
	}
}

// Load reads ~/.neo/config.yaml and then <workspace>/.neo/config.yaml
// on top of the defaults. Missing files are not errors.
func Load(workspaceRoot string) (Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		if err := loadFile(filepath.Join(home, ConfigDirName, "config.yaml"), &cfg); err != nil {
			return Config{}, fmt.Errorf("load user config: %w", err)
		}
	}

	if workspaceRoot != "" {
		if err := loadFile(filepath.Join(workspaceRoot, ConfigDirName, "config.yaml"), &cfg); err != nil {
			return Config{}, fmt.Errorf("load workspace config: %w", err)
		}
	}

	return cfg, nil
}

// loadFile unmarshals path into cfg, leaving fields absent from the
// YAML untouched. A missing file is skipped.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// APIKey resolves the configured key environment variable. Empty when
// unset, in which case the provider SDK falls back to its own lookup.
func (c Config) APIKey() string {
	if c.LLM.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.LLM.APIKeyEnv)
}

// EngineConfig merges the YAML tunables over the engine defaults.
func (c Config) EngineConfig() agent.Config {
	ec := agent.DefaultConfig()
	if c.Engine.CheckpointInterval > 0 {
		ec.CheckpointInterval = c.Engine.CheckpointInterval
	}
	if c.Engine.KeepRecentTurns > 0 {
		ec.KeepRecentTurns = c.Engine.KeepRecentTurns
	}
	if c.Engine.PruneThreshold > 0 {
		ec.PruneThreshold = c.Engine.PruneThreshold
	}
	if c.Engine.HardCap > 0 {
		ec.HardCap = c.Engine.HardCap
	}
	if c.Engine.MaxProtocolRetries > 0 {
		ec.MaxProtocolRetries = c.Engine.MaxProtocolRetries
	}
	if c.Engine.LLMTimeoutSeconds > 0 {
		ec.LLMTimeout = time.Duration(c.Engine.LLMTimeoutSeconds) * time.Second
	}
	if c.Engine.DisableLoopDetect {
		ec.EnableLoopDetection = false
	}
	if c.Engine.LoopDetectionWindow > 0 {
		ec.LoopDetectionWindow = c.Engine.LoopDetectionWindow
	}
	if c.LLM.MaxTokens > 0 {
		ec.MaxTokens = c.LLM.MaxTokens
	}
	return ec
}

// StorePath resolves the store path against the workspace root when
// relative.
func (c Config) StorePath(workspaceRoot string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(workspaceRoot, c.Store.Path)
}

// Validate rejects settings the rest of the system cannot honor.
func (c Config) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider must not be empty")
	}
	switch c.Store.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("store.backend must be \"file\" or \"sqlite\", got %q", c.Store.Backend)
	}
	return nil
}
