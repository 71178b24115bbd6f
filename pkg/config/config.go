/*
Package config manages TOML config for kanaserve services.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/bastiangx/kanaserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Predictor PredictorConfig `toml:"predictor"`
	History   HistoryConfig   `toml:"history"`
	Storage   StorageConfig   `toml:"storage"`
	Aggregate AggregateConfig `toml:"aggregate"`
	Dict      DictConfig      `toml:"dict"`
}

// ServerConfig has IPC server related options.
type ServerConfig struct {
	MaxLimit  int `toml:"max_limit"`
	MaxKeyLen int `toml:"max_key_len"`
}

// PredictorConfig holds merge/rank options.
type PredictorConfig struct {
	DefaultLimit    int  `toml:"default_limit"`
	SuggestionLimit int  `toml:"suggestion_limit"`
	EnableFilter    bool `toml:"enable_filter"`
}

// HistoryConfig holds user history options.
type HistoryConfig struct {
	Capacity         int `toml:"capacity"`
	MaxSuggestions   int `toml:"max_suggestions"`
	SaveIntervalSecs int `toml:"save_interval_secs"`
	CompactAfterDays int `toml:"compact_after_days"`
}

// StorageConfig holds encrypted history storage options.
type StorageConfig struct {
	Path string `toml:"path"`
}

// AggregateConfig holds candidate source options.
type AggregateConfig struct {
	SourceTimeoutMS int    `toml:"source_timeout_ms"`
	ZeroQueryPath   string `toml:"zero_query_path"`
}

// DictConfig holds static dictionary options.
type DictConfig struct {
	Path            string `toml:"path"`
	SingleKanjiPath string `toml:"single_kanji_path"`
	MaxTokens       int    `toml:"max_tokens"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "kanaserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "kanaserve")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/kanaserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit:  64,
			MaxKeyLen: 60,
		},
		Predictor: PredictorConfig{
			DefaultLimit:    12,
			SuggestionLimit: 3,
			EnableFilter:    true,
		},
		History: HistoryConfig{
			Capacity:         10000,
			MaxSuggestions:   8,
			SaveIntervalSecs: 300,
			CompactAfterDays: 62,
		},
		Storage: StorageConfig{
			Path: "",
		},
		Aggregate: AggregateConfig{
			SourceTimeoutMS: 50,
			ZeroQueryPath:   "",
		},
		Dict: DictConfig{
			Path:            "",
			SingleKanjiPath: "",
			MaxTokens:       64,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. Missing fields keep default values;
// a file that cannot be parsed at all falls back to builtin defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return DefaultConfig(), nil
	}
	config.Clamp()
	return config, nil
}

// Clamp forces out-of-range values back to sane bounds instead of failing.
func (c *Config) Clamp() {
	if c.Server.MaxLimit < 1 || c.Server.MaxLimit > 256 {
		c.Server.MaxLimit = 64
	}
	if c.Server.MaxKeyLen < 1 || c.Server.MaxKeyLen > 300 {
		c.Server.MaxKeyLen = 60
	}
	if c.Predictor.DefaultLimit < 1 || c.Predictor.DefaultLimit > c.Server.MaxLimit {
		c.Predictor.DefaultLimit = 12
	}
	if c.Predictor.SuggestionLimit < 1 || c.Predictor.SuggestionLimit > 20 {
		c.Predictor.SuggestionLimit = 3
	}
	if c.History.Capacity < 16 {
		c.History.Capacity = 10000
	}
	if c.History.MaxSuggestions < 1 || c.History.MaxSuggestions > 20 {
		c.History.MaxSuggestions = 8
	}
	if c.History.SaveIntervalSecs < 10 {
		c.History.SaveIntervalSecs = 300
	}
	if c.History.CompactAfterDays < 1 {
		c.History.CompactAfterDays = 62
	}
	if c.Aggregate.SourceTimeoutMS < 1 || c.Aggregate.SourceTimeoutMS > 1000 {
		c.Aggregate.SourceTimeoutMS = 50
	}
	if c.Dict.MaxTokens < 1 || c.Dict.MaxTokens > 512 {
		c.Dict.MaxTokens = 64
	}
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}
