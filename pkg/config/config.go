/*
Package config manages TOML config for cityserve.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/cityserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Filter  FilterConfig  `toml:"filter"`
	Input   InputConfig   `toml:"input"`
	Server  ServerConfig  `toml:"server"`
	Markers MarkersConfig `toml:"markers"`
	Session SessionConfig `toml:"session"`
	CLI     CliConfig     `toml:"cli"`
}

// FilterConfig holds prefix filter options.
type FilterConfig struct {
	SampleCap   int `toml:"sample_cap"`
	MinPerGroup int `toml:"min_per_group"`
}

// InputConfig holds options for the text input side.
type InputConfig struct {
	DebounceMs int `toml:"debounce_ms"`
	MaxPrefix  int `toml:"max_prefix"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	WSAddr   string `toml:"ws_addr"`
	EnableWS bool   `toml:"enable_ws"`
}

// MarkersConfig holds bubble sizing for the map layer.
type MarkersConfig struct {
	MinRadius int `toml:"min_radius"`
	MaxRadius int `toml:"max_radius"`
}

// SessionConfig holds last-prefix persistence options.
type SessionConfig struct {
	Dir     string `toml:"dir"`
	Enabled bool   `toml:"enabled"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	ShowStats bool `toml:"show_stats"`
}

// Debounce returns the input debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Input.DebounceMs) * time.Millisecond
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "cityserve")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "cityserve")
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
// 2. Default path: [UserConfigDir]/cityserve/config.toml
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
		Filter: FilterConfig{
			SampleCap:   5000,
			MinPerGroup: 30,
		},
		Input: InputConfig{
			DebounceMs: 800,
			MaxPrefix:  60,
		},
		Server: ServerConfig{
			WSAddr:   "127.0.0.1:8765",
			EnableWS: false,
		},
		Markers: MarkersConfig{
			MinRadius: 1,
			MaxRadius: 9,
		},
		Session: SessionConfig{
			Dir:     "",
			Enabled: true,
		},
		CLI: CliConfig{
			ShowStats: true,
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

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	config.sanitize()
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "filter"); ok {
		extractFilterConfig(section, &config.Filter)
	}
	if section, ok := utils.ExtractSection(tempConfig, "input"); ok {
		extractInputConfig(section, &config.Input)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "markers"); ok {
		extractMarkersConfig(section, &config.Markers)
	}
	if section, ok := utils.ExtractSection(tempConfig, "session"); ok {
		extractSessionConfig(section, &config.Session)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		if val, ok := utils.ExtractBool(section, "show_stats"); ok {
			config.CLI.ShowStats = val
		}
	}
	config.sanitize()
	return config, nil
}

func extractFilterConfig(data map[string]any, filter *FilterConfig) {
	if val, ok := utils.ExtractInt64(data, "sample_cap"); ok {
		filter.SampleCap = val
	}
	if val, ok := utils.ExtractInt64(data, "min_per_group"); ok {
		filter.MinPerGroup = val
	}
}

func extractInputConfig(data map[string]any, input *InputConfig) {
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		input.DebounceMs = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		input.MaxPrefix = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractString(data, "ws_addr"); ok {
		server.WSAddr = val
	}
	if val, ok := utils.ExtractBool(data, "enable_ws"); ok {
		server.EnableWS = val
	}
}

func extractMarkersConfig(data map[string]any, markers *MarkersConfig) {
	if val, ok := utils.ExtractInt64(data, "min_radius"); ok {
		markers.MinRadius = val
	}
	if val, ok := utils.ExtractInt64(data, "max_radius"); ok {
		markers.MaxRadius = val
	}
}

func extractSessionConfig(data map[string]any, session *SessionConfig) {
	if val, ok := utils.ExtractString(data, "dir"); ok {
		session.Dir = val
	}
	if val, ok := utils.ExtractBool(data, "enabled"); ok {
		session.Enabled = val
	}
}

// sanitize replaces out-of-range values with defaults.
func (c *Config) sanitize() {
	defaults := DefaultConfig()
	if c.Filter.SampleCap < 1 {
		log.Warnf("Invalid sample_cap %d, using %d", c.Filter.SampleCap, defaults.Filter.SampleCap)
		c.Filter.SampleCap = defaults.Filter.SampleCap
	}
	if c.Filter.MinPerGroup < 0 {
		c.Filter.MinPerGroup = defaults.Filter.MinPerGroup
	}
	if c.Input.DebounceMs < 0 {
		c.Input.DebounceMs = defaults.Input.DebounceMs
	}
	if c.Input.MaxPrefix < 1 {
		c.Input.MaxPrefix = defaults.Input.MaxPrefix
	}
	if c.Markers.MinRadius < 1 || c.Markers.MaxRadius < c.Markers.MinRadius {
		c.Markers = defaults.Markers
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
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

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes the filter values and saves to file
func (c *Config) Update(configPath string, sampleCap, minPerGroup, debounceMs *int) error {
	if sampleCap != nil {
		c.Filter.SampleCap = *sampleCap
	}
	if minPerGroup != nil {
		c.Filter.MinPerGroup = *minPerGroup
	}
	if debounceMs != nil {
		c.Input.DebounceMs = *debounceMs
	}
	c.sanitize()
	return SaveConfig(c, configPath)
}
