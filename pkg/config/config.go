package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers and mixed
// arrays, so hand-edited config files stay forgiving.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Storage  StorageConfig  `json:"storage"`
	Resolver ResolverConfig `json:"resolver"`
	Memory   MemoryConfig   `json:"memory"`
	Session  SessionConfig  `json:"session"`
	Log      LogConfig      `json:"log"`
}

type StorageConfig struct {
	Dir         string `json:"dir" env:"CONTEXTGATE_STORAGE_DIR"`
	ArchivePath string `json:"archive_path" env:"CONTEXTGATE_STORAGE_ARCHIVE_PATH"`
}

// ResolverConfig exposes the fixed configuration surfaces of the resolution
// path: the search-tool registry and the query-argument key order. Empty
// lists fall back to the package defaults.
type ResolverConfig struct {
	SearchTools  FlexibleStringSlice `json:"search_tools" env:"CONTEXTGATE_RESOLVER_SEARCH_TOOLS"`
	QueryArgKeys FlexibleStringSlice `json:"query_arg_keys" env:"CONTEXTGATE_RESOLVER_QUERY_ARG_KEYS"`
}

type MemoryConfig struct {
	MaxEntitiesPerType int `json:"max_entities_per_type" env:"CONTEXTGATE_MEMORY_MAX_ENTITIES_PER_TYPE"`
}

type SessionConfig struct {
	ExecutionMode   string `json:"execution_mode" env:"CONTEXTGATE_SESSION_EXECUTION_MODE"`
	ShortTermWindow int    `json:"short_term_window" env:"CONTEXTGATE_SESSION_SHORT_TERM_WINDOW"`
	ModelName       string `json:"model_name" env:"CONTEXTGATE_SESSION_MODEL_NAME"`
}

type LogConfig struct {
	Level string `json:"level" env:"CONTEXTGATE_LOG_LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:         "~/.contextgate/sessions",
			ArchivePath: "~/.contextgate/state/archive.db",
		},
		Resolver: ResolverConfig{
			SearchTools:  FlexibleStringSlice{},
			QueryArgKeys: FlexibleStringSlice{},
		},
		Memory: MemoryConfig{
			MaxEntitiesPerType: 5,
		},
		Session: SessionConfig{
			ExecutionMode:   "instant",
			ShortTermWindow: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads path over the defaults, then applies env overrides.
// A missing file is not an error; the defaults stand.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// StorageDir returns the session directory with ~ expanded.
func (c *Config) StorageDir() string {
	return expandHome(c.Storage.Dir)
}

// ArchivePath returns the archive database path with ~ expanded.
func (c *Config) ArchivePath() string {
	return expandHome(c.Storage.ArchivePath)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
